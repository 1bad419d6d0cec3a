package models

// SessionOutcome is the terminal state of one quiz session.
type SessionOutcome string

const (
	OutcomePassed   SessionOutcome = "passed"
	OutcomeFailed   SessionOutcome = "failed"
	OutcomeTimedOut SessionOutcome = "timed_out"
	OutcomeAborted  SessionOutcome = "aborted"
)

// VerificationRequest is a user's forwarded verification command.
type VerificationRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username" validate:"required"`
	// ChannelID is the public channel the command was issued in; rejection
	// and status messages go back there.
	ChannelID string `json:"channel_id" validate:"required"`
}

// Reply is a user's private-channel message forwarded by the gateway.
type Reply struct {
	UserID    string `json:"user_id" validate:"required"`
	ChannelID string `json:"channel_id" validate:"required"`
	Content   string `json:"content"`
}
