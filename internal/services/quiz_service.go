package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verdantchat/gatekeeper/internal/models"
	"github.com/verdantchat/gatekeeper/internal/ratelimit"
	"github.com/verdantchat/gatekeeper/internal/transport"
)

// AttemptRecorder is the slice of the attempt ledger the session needs.
type AttemptRecorder interface {
	RecordAttempt(userID string) error
	RemainingAttempts(userID string) int
}

// TranscriptWriter persists per-user quiz transcripts. Its failures never
// abort a session.
type TranscriptWriter interface {
	Append(username string, attempt models.TranscriptAttempt) error
}

// QuestionSource yields the question set for one quiz run.
type QuestionSource interface {
	Pick() []models.Question
}

// Sender is the reliable-delivery slice of the messenger.
type Sender interface {
	Send(ctx context.Context, ch transport.Channel, content string) bool
	OpenDirectChannel(ctx context.Context, userID string) (transport.Channel, error)
}

// ReplyWaiter blocks a session until the user answers or the deadline hits.
type ReplyWaiter interface {
	Await(ctx context.Context, userID, channelID string, timeout time.Duration) (string, error)
}

// QuizConfig holds the scoring and pacing parameters for quiz sessions.
type QuizConfig struct {
	PassScore int
	MaxScore  int
	// MaxDailyAttempts is only used for user-facing messages; the ledger
	// enforces the actual cap.
	MaxDailyAttempts int
	QuestionTimeout  time.Duration
	// MessageDelay paces consecutive sends to the same user.
	MessageDelay time.Duration
	// SmoothingMin/Max bound the randomized delay between admission and the
	// first send, so near-simultaneous admissions don't burst.
	SmoothingMin time.Duration
	SmoothingMax time.Duration
	// LogChannelID receives per-quiz summary lines; empty disables them.
	LogChannelID   string
	AlertWindow    time.Duration
	AlertThreshold int
	Roles          RoleNames
}

// DefaultQuizConfig returns the production quiz parameters.
func DefaultQuizConfig() QuizConfig {
	return QuizConfig{
		PassScore:        30,
		MaxScore:         40,
		MaxDailyAttempts: 4,
		QuestionTimeout:  300 * time.Second,
		MessageDelay:     time.Second,
		SmoothingMin:     time.Second,
		SmoothingMax:     2500 * time.Millisecond,
		AlertWindow:      5 * time.Minute,
		AlertThreshold:   5,
		Roles:            DefaultRoleNames(),
	}
}

// QuizService runs verification quiz sessions end to end: admission,
// private-channel delivery, scoring, role changes, transcripts, and the
// moderation summary. Transport failures are contained here; only plain
// user-facing messages leave this boundary.
type QuizService struct {
	admission   *AdmissionController
	messenger   Sender
	replies     ReplyWaiter
	ledger      AttemptRecorder
	transcripts TranscriptWriter
	roles       RoleStore
	source      QuestionSource
	failures    *ratelimit.FailureTracker
	config      QuizConfig
	logger      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewQuizService wires a quiz service from its collaborators.
func NewQuizService(
	admission *AdmissionController,
	messenger Sender,
	replies ReplyWaiter,
	ledger AttemptRecorder,
	transcripts TranscriptWriter,
	roles RoleStore,
	source QuestionSource,
	failures *ratelimit.FailureTracker,
	config QuizConfig,
	logger *slog.Logger,
) *QuizService {
	return &QuizService{
		admission:   admission,
		messenger:   messenger,
		replies:     replies,
		ledger:      ledger,
		transcripts: transcripts,
		roles:       roles,
		source:      source,
		failures:    failures,
		config:      config,
		logger:      logger,
		sleep:       sleepContext,
		now:         time.Now,
	}
}

// Start admits the user and, on success, runs the session in the background,
// returning its id. A non-nil error is an admission rejection;
// RejectionMessage translates it for the user.
func (s *QuizService) Start(ctx context.Context, req models.VerificationRequest) (string, error) {
	if err := s.admission.Admit(ctx, req.UserID); err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	s.logger.Info("quiz session starting",
		slog.String("session_id", sessionID),
		slog.String("user_id", req.UserID))

	// The session outlives the originating request
	go s.RunSession(context.WithoutCancel(ctx), req)
	return sessionID, nil
}

// RejectionMessage maps an admission error to the status message the user
// sees in the originating channel.
func (s *QuizService) RejectionMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrOnCooldown):
		// Cooldown is configured on the admission controller
		return fmt.Sprintf("You can only start a quiz every %d minutes. Please wait.",
			int(s.admission.config.Cooldown.Minutes()))
	case errors.Is(err, models.ErrAlreadyVerified):
		return "You are already verified and cannot take the quiz again."
	case errors.Is(err, models.ErrNotEligible):
		return "You are not permitted to take the verification quiz."
	case errors.Is(err, models.ErrAttemptsExceeded):
		return fmt.Sprintf("You have reached the maximum number of quiz attempts (%d) for today.",
			s.config.MaxDailyAttempts)
	case errors.Is(err, models.ErrSessionActive):
		return "You're already in a quiz session."
	case errors.Is(err, models.ErrTooManySessions):
		return "Too many users are currently taking the quiz. Please wait a moment and try again."
	default:
		return "Something went wrong starting your quiz. Please try again later."
	}
}

// RunSession drives one admitted session to a terminal outcome. The
// admission slot is released on every exit path.
func (s *QuizService) RunSession(ctx context.Context, req models.VerificationRequest) models.SessionOutcome {
	defer s.admission.Release(req.UserID)

	origin := transport.Channel{ID: req.ChannelID}

	// Burst smoothing before the first outbound message
	if err := s.sleep(ctx, s.smoothingDelay()); err != nil {
		return models.OutcomeAborted
	}

	dm, err := s.messenger.OpenDirectChannel(ctx, req.UserID)
	if err != nil {
		if transport.KindOf(err) == transport.KindPermission {
			s.messenger.Send(ctx, origin, "I couldn't open a private chat with you. Please enable private messages and try again.")
		} else {
			s.messenger.Send(ctx, origin, "The verification service is busy right now. Please try again later.")
		}
		s.logger.Warn("quiz aborted, direct channel unavailable",
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
		return models.OutcomeAborted
	}

	intro := fmt.Sprintf(
		"Hello! You're about to take a short verification quiz. You'll need %d/%d to pass. "+
			"Answer each question with A, B, C, or D (just the letter). Good luck!",
		s.config.PassScore, s.config.MaxScore)
	if !s.messenger.Send(ctx, dm, intro) {
		s.messenger.Send(ctx, origin, "I couldn't message you privately. Please enable private messages and try again.")
		return models.OutcomeAborted
	}

	score, entries, outcome := s.askQuestions(ctx, req, origin, dm)
	if outcome != "" {
		return outcome
	}

	if err := s.transcripts.Append(req.Username, models.TranscriptAttempt{Timestamp: s.now().UTC(), Entries: entries}); err != nil {
		// Transcript persistence must never fail the quiz flow
		s.logger.Error("transcript write failed",
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
	}

	if err := s.ledger.RecordAttempt(req.UserID); err != nil {
		s.logger.Error("failed to record quiz attempt",
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
	}

	if score >= s.config.PassScore {
		s.grantVerified(ctx, req, dm, score)
		outcome = models.OutcomePassed
	} else {
		remaining := s.ledger.RemainingAttempts(req.UserID)
		s.messenger.Send(ctx, dm, fmt.Sprintf(
			"Sorry, you scored %d/%d, which isn't quite enough to pass. You can try again from the verification channel. "+
				"You have %d attempt(s) left today.",
			score, s.config.MaxScore, remaining))
		outcome = models.OutcomeFailed
	}

	s.postSummary(ctx, req, score)

	s.logger.Info("quiz session finished",
		slog.String("user_id", req.UserID),
		slog.Int("score", score),
		slog.String("outcome", string(outcome)))
	return outcome
}

// askQuestions runs the question loop. A non-empty outcome means the session
// ended early; otherwise the returned entries cover every question.
func (s *QuizService) askQuestions(ctx context.Context, req models.VerificationRequest, origin, dm transport.Channel) (int, []models.TranscriptEntry, models.SessionOutcome) {
	questions := s.source.Pick()
	score := 0
	entries := make([]models.TranscriptEntry, 0, len(questions))

	for _, q := range questions {
		if err := s.sleep(ctx, s.config.MessageDelay); err != nil {
			return 0, nil, models.OutcomeAborted
		}

		if !s.messenger.Send(ctx, dm, formatPrompt(q)) {
			s.messenger.Send(ctx, origin, "Something went wrong sending you quiz questions. Try again later.")
			return 0, nil, models.OutcomeAborted
		}

		answer, err := s.replies.Await(ctx, req.UserID, dm.ID, s.config.QuestionTimeout)
		if err != nil {
			if errors.Is(err, models.ErrReplyTimeout) {
				s.messenger.Send(ctx, dm, "Time's up! Try again later when you're ready.")
				return 0, nil, models.OutcomeTimedOut
			}
			return 0, nil, models.OutcomeAborted
		}

		letter := strings.ToUpper(strings.TrimSpace(answer))
		if opt, ok := q.Options[letter]; ok {
			score += opt.Points
			entries = append(entries, models.TranscriptEntry{
				Question: q.Text,
				Answer:   opt.Text,
				Points:   opt.Points,
			})
		} else {
			s.messenger.Send(ctx, dm, "That wasn't one of the options, so we'll skip this one.")
			entries = append(entries, models.TranscriptEntry{
				Question: q.Text,
				Answer:   "Invalid/Skipped: " + strings.TrimSpace(answer),
				Points:   0,
			})
		}
	}

	return score, entries, ""
}

func (s *QuizService) grantVerified(ctx context.Context, req models.VerificationRequest, dm transport.Channel, score int) {
	roles := s.config.Roles

	if err := s.roles.RemoveRole(ctx, req.UserID, roles.Unverified); err != nil {
		// Not fatal: the user may simply not carry the role
		s.logger.Warn("failed to remove unverified role",
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
	}
	_ = s.sleep(ctx, s.config.MessageDelay)

	if err := s.roles.AddRole(ctx, req.UserID, roles.Verified); err != nil {
		s.logger.Error("failed to grant verified role",
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
		s.messenger.Send(ctx, dm, fmt.Sprintf(
			"You passed with %d/%d, but I couldn't assign the %s role. Please contact a moderator.",
			score, s.config.MaxScore, roles.Verified))
		return
	}

	s.messenger.Send(ctx, dm, fmt.Sprintf(
		"Congratulations, you passed with %d/%d! Welcome aboard - don't forget to read the rules channel before you jump in.",
		score, s.config.MaxScore))
}

// postSummary drops a short line in the moderation log channel and raises
// the delivery-failure alert when the tracker crosses its threshold.
func (s *QuizService) postSummary(ctx context.Context, req models.VerificationRequest, score int) {
	if s.config.LogChannelID == "" {
		return
	}
	logCh := transport.Channel{ID: s.config.LogChannelID}

	_ = s.sleep(ctx, s.config.MessageDelay)
	s.messenger.Send(ctx, logCh, fmt.Sprintf("User: %s — Final Score: %d/%d", req.Username, score, s.config.MaxScore))

	if recent := s.failures.RecentFailureCount(s.config.AlertWindow); recent >= s.config.AlertThreshold {
		s.messenger.Send(ctx, logCh, "Alert: high number of recent failed message sends. Check rate limits or bot health.")
	}
}

func (s *QuizService) smoothingDelay() time.Duration {
	spread := s.config.SmoothingMax - s.config.SmoothingMin
	if spread <= 0 {
		return s.config.SmoothingMin
	}
	return s.config.SmoothingMin + time.Duration(rand.Int63n(int64(spread)))
}

// SetSleeper replaces the pacing sleep function. Intended for tests.
func (s *QuizService) SetSleeper(sleep func(ctx context.Context, d time.Duration) error) {
	s.sleep = sleep
}

// formatPrompt renders a question with its options in letter order.
func formatPrompt(q models.Question) string {
	letters := make([]string, 0, len(q.Options))
	for letter := range q.Options {
		letters = append(letters, letter)
	}
	sort.Strings(letters)

	var b strings.Builder
	b.WriteString("**" + q.Text + "**")
	for _, letter := range letters {
		b.WriteString("\n" + letter + ". " + q.Options[letter].Text)
	}
	return b.String()
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
