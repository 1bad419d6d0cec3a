package models

import "time"

// TranscriptEntry records one answered (or skipped) question.
type TranscriptEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Points   int    `json:"points"`
}

// TranscriptAttempt is one complete quiz run for a user's transcript file.
type TranscriptAttempt struct {
	Timestamp time.Time         `json:"timestamp"`
	Entries   []TranscriptEntry `json:"entries"`
}
