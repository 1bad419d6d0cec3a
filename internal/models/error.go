package models

import "errors"

// Sentinel errors for admission rejections and delivery failures
var (
	ErrOnCooldown       = errors.New("user is on quiz cooldown")
	ErrAlreadyVerified  = errors.New("user is already verified")
	ErrNotEligible      = errors.New("user is not permitted to take the quiz")
	ErrAttemptsExceeded = errors.New("daily quiz attempts exceeded")
	ErrSessionActive    = errors.New("user already has an active quiz session")
	ErrTooManySessions  = errors.New("too many concurrent quiz sessions")
	ErrGloballyBlocked  = errors.New("sends are blocked by the global cooldown")
	ErrBurstThrottled   = errors.New("verification starts are throttled")

	// Session-level failures
	ErrUnreachable  = errors.New("recipient cannot be reached")
	ErrReplyTimeout = errors.New("timed out waiting for a reply")
)
