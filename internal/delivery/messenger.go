package delivery

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/verdantchat/gatekeeper/internal/ratelimit"
	"github.com/verdantchat/gatekeeper/internal/transport"
)

// MessengerConfig holds the retry and cooldown policy for outbound sends.
type MessengerConfig struct {
	// MaxAttempts is the total delivery budget per Send call.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff for transient failures.
	BaseDelay time.Duration
	// RateLimitBackoff is the wait schedule for rate-limit failures, indexed
	// by attempt and clamped to its last entry. Rate-limit recovery windows
	// are externally imposed and far longer than transient ones.
	RateLimitBackoff []time.Duration
	// TripDuration is how long the global cooldown gate blocks after a
	// rate-limit signal.
	TripDuration time.Duration
	// AlertWindow and AlertThreshold drive the operator warning on sustained
	// delivery failures.
	AlertWindow    time.Duration
	AlertThreshold int
}

// DefaultMessengerConfig returns the production policy.
func DefaultMessengerConfig() MessengerConfig {
	return MessengerConfig{
		MaxAttempts:      3,
		BaseDelay:        1500 * time.Millisecond,
		RateLimitBackoff: []time.Duration{1 * time.Hour, 2 * time.Hour, 6 * time.Hour},
		TripDuration:     15 * time.Minute,
		AlertWindow:      5 * time.Minute,
		AlertThreshold:   5,
	}
}

// Messenger wraps a Transport with retry, backoff, and circuit-breaking.
// Every outbound message in the verification flow goes through it.
type Messenger struct {
	transport transport.Transport
	gate      *ratelimit.CooldownGate
	failures  *ratelimit.FailureTracker
	config    MessengerConfig
	logger    *slog.Logger

	// sleep and jitter are swappable so tests can observe the schedule
	// without waiting on it.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewMessenger creates a Messenger around the given transport.
func NewMessenger(t transport.Transport, gate *ratelimit.CooldownGate, failures *ratelimit.FailureTracker, config MessengerConfig, logger *slog.Logger) *Messenger {
	return &Messenger{
		transport: t,
		gate:      gate,
		failures:  failures,
		config:    config,
		logger:    logger,
		sleep:     sleepContext,
		jitter: func() time.Duration {
			return time.Duration(rand.Float64() * float64(500*time.Millisecond))
		},
	}
}

// SetSleeper replaces the backoff sleep function. Intended for tests.
func (m *Messenger) SetSleeper(sleep func(ctx context.Context, d time.Duration) error) {
	m.sleep = sleep
}

// SetJitter replaces the jitter source. Intended for tests.
func (m *Messenger) SetJitter(jitter func() time.Duration) {
	m.jitter = jitter
}

// Send delivers content to the channel, retrying per policy. It returns true
// iff the transport accepted the message. While the global cooldown is in
// force it refuses immediately without touching the transport.
func (m *Messenger) Send(ctx context.Context, ch transport.Channel, content string) bool {
	if m.gate.IsBlocked() {
		m.logger.Info("send skipped, global cooldown active",
			slog.String("channel_id", ch.ID),
			slog.Int("remaining_seconds", m.gate.RemainingSeconds()))
		return false
	}

	for attempt := 0; attempt < m.config.MaxAttempts; attempt++ {
		err := m.transport.Send(ctx, ch, content)
		if err == nil {
			return true
		}

		var wait time.Duration
		switch transport.KindOf(err) {
		case transport.KindPermission:
			// Retrying cannot succeed
			m.logger.Warn("send forbidden",
				slog.String("channel_id", ch.ID),
				slog.Any("error", err))
			return false

		case transport.KindRateLimited:
			m.logger.Warn("rate limit detected, tripping global cooldown",
				slog.String("channel_id", ch.ID),
				slog.Int("attempt", attempt+1))
			m.gate.Trip(m.config.TripDuration)
			wait = m.rateLimitWait(attempt)

		default:
			wait = m.config.BaseDelay * (1 << attempt)
			m.logger.Info("transient send failure",
				slog.String("channel_id", ch.ID),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))
		}

		if attempt == m.config.MaxAttempts-1 {
			break
		}
		if err := m.sleep(ctx, wait+m.jitter()); err != nil {
			m.logger.Info("send abandoned, context cancelled", slog.String("channel_id", ch.ID))
			return false
		}
	}

	m.recordExhaustion(ch)
	return false
}

// OpenDirectChannel opens a private channel to the user through the
// transport, honoring the global cooldown.
func (m *Messenger) OpenDirectChannel(ctx context.Context, userID string) (transport.Channel, error) {
	if m.gate.IsBlocked() {
		return transport.Channel{}, &transport.DeliveryError{Kind: transport.KindRateLimited}
	}
	return m.transport.CreateDirectChannel(ctx, userID)
}

func (m *Messenger) rateLimitWait(attempt int) time.Duration {
	schedule := m.config.RateLimitBackoff
	if len(schedule) == 0 {
		return m.config.BaseDelay
	}
	if attempt >= len(schedule) {
		attempt = len(schedule) - 1
	}
	return schedule[attempt]
}

func (m *Messenger) recordExhaustion(ch transport.Channel) {
	m.failures.RecordFailure()

	recent := m.failures.RecentFailureCount(m.config.AlertWindow)
	m.logger.Error("send failed after all attempts",
		slog.String("channel_id", ch.ID),
		slog.Int("attempts", m.config.MaxAttempts))

	if recent >= m.config.AlertThreshold {
		m.logger.Warn("high delivery failure rate",
			slog.Int("recent_failures", recent),
			slog.Duration("window", m.config.AlertWindow))
	}
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
