package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/verdantchat/gatekeeper/internal/models"
)

// AttemptGate is the slice of the attempt ledger admission needs.
type AttemptGate interface {
	CanAttempt(userID string) bool
}

// AdmissionConfig holds the gate parameters for quiz admission.
type AdmissionConfig struct {
	// Cooldown is the minimum interval between quiz starts per user.
	Cooldown time.Duration
	// MaxConcurrent bounds how many quiz sessions may run at once.
	MaxConcurrent int
	Roles         RoleNames
}

// DefaultAdmissionConfig returns the production gate parameters.
func DefaultAdmissionConfig() AdmissionConfig {
	return AdmissionConfig{
		Cooldown:      120 * time.Second,
		MaxConcurrent: 5,
		Roles:         DefaultRoleNames(),
	}
}

// AdmissionController decides whether a verification request may become a
// quiz session. It owns the active-session set and the per-user last-start
// timestamps; every admitted session must be released on every exit path.
type AdmissionController struct {
	ledger AttemptGate
	roles  RoleStore
	config AdmissionConfig
	logger *slog.Logger

	mu        sync.Mutex
	active    map[string]struct{}
	lastStart map[string]time.Time
	now       func() time.Time
}

// NewAdmissionController creates a controller with no active sessions.
func NewAdmissionController(ledger AttemptGate, roles RoleStore, config AdmissionConfig, logger *slog.Logger) *AdmissionController {
	return &AdmissionController{
		ledger:    ledger,
		roles:     roles,
		config:    config,
		logger:    logger,
		active:    make(map[string]struct{}),
		lastStart: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Admit runs the gate checks in order and, if all pass, registers the user
// as an active session and stamps their cooldown. A rejection returns a
// sentinel error and leaves all state untouched.
func (c *AdmissionController) Admit(ctx context.Context, userID string) error {
	// 1. Per-user cooldown
	c.mu.Lock()
	if last, ok := c.lastStart[userID]; ok && c.now().Sub(last) < c.config.Cooldown {
		c.mu.Unlock()
		return models.ErrOnCooldown
	}
	c.mu.Unlock()

	// 2. Eligibility via the role store; not under the lock, it's a network call
	if err := c.checkEligibility(ctx, userID); err != nil {
		return err
	}

	// 3. Daily attempt cap
	if !c.ledger.CanAttempt(userID) {
		return models.ErrAttemptsExceeded
	}

	// Remaining checks and the admission itself are one atomic step so two
	// concurrent requests cannot both slip past the set or the cap.
	c.mu.Lock()
	defer c.mu.Unlock()

	// 4. Re-entrancy
	if _, ok := c.active[userID]; ok {
		return models.ErrSessionActive
	}

	// 5. Global concurrency cap
	if len(c.active) >= c.config.MaxConcurrent {
		return models.ErrTooManySessions
	}

	c.active[userID] = struct{}{}
	c.lastStart[userID] = c.now()

	c.logger.Info("quiz session admitted",
		slog.String("user_id", userID),
		slog.Int("active_sessions", len(c.active)))
	return nil
}

func (c *AdmissionController) checkEligibility(ctx context.Context, userID string) error {
	roles, err := c.roles.Roles(ctx, userID)
	if err != nil {
		// Fail closed: an unknown role set must not admit anyone
		return fmt.Errorf("check roles for %s: %w", userID, err)
	}
	for i, r := range roles {
		roles[i] = strings.ToLower(r)
	}

	names := c.config.Roles
	isMod := slices.Contains(roles, names.Moderator)
	isVerified := slices.Contains(roles, names.Verified)
	isUnverified := slices.Contains(roles, names.Unverified)

	switch {
	case isMod:
		return nil
	case isUnverified && !isVerified:
		return nil
	case isVerified:
		return models.ErrAlreadyVerified
	default:
		return models.ErrNotEligible
	}
}

// Release removes the user from the active-session set. Safe to call more
// than once; every session exit path must reach it.
func (c *AdmissionController) Release(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.active[userID]; ok {
		delete(c.active, userID)
		c.logger.Info("quiz session released",
			slog.String("user_id", userID),
			slog.Int("active_sessions", len(c.active)))
	}
}

// ActiveCount returns the number of sessions currently mid-quiz.
func (c *AdmissionController) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// PruneCooldowns drops last-start stamps that no longer gate anything and
// returns how many were removed.
func (c *AdmissionController) PruneCooldowns() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for userID, last := range c.lastStart {
		if c.now().Sub(last) >= c.config.Cooldown {
			delete(c.lastStart, userID)
			removed++
		}
	}
	return removed
}

// SetClock replaces the controller's time source. Intended for tests.
func (c *AdmissionController) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
