package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantchat/gatekeeper/internal/config"
)

func TestLoad_RequiresGatewayURL(t *testing.T) {
	t.Setenv("GATEWAY_URL", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GATEWAY_URL", "http://localhost:9000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Limits.MaxAttemptsPerDay)
	assert.Equal(t, 120*time.Second, cfg.Limits.SessionCooldown)
	assert.Equal(t, 5, cfg.Limits.MaxConcurrentSessions)
	assert.Equal(t, 3, cfg.Limits.SendAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Limits.CooldownTrip)
	assert.Equal(t, 30, cfg.Quiz.PassScore)
	assert.Equal(t, 300*time.Second, cfg.Quiz.QuestionTimeout)
	assert.Equal(t, "attempts.json", cfg.Storage.LedgerPath)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GATEWAY_URL", "http://localhost:9000")
	t.Setenv("MAX_ATTEMPTS_PER_DAY", "2")
	t.Setenv("SESSION_COOLDOWN", "30s")
	t.Setenv("QUIZ_PASS_SCORE", "25")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Limits.MaxAttemptsPerDay)
	assert.Equal(t, 30*time.Second, cfg.Limits.SessionCooldown)
	assert.Equal(t, 25, cfg.Quiz.PassScore)
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	t.Setenv("GATEWAY_URL", "http://localhost:9000")
	t.Setenv("SESSION_COOLDOWN", "not-a-duration")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, cfg.Limits.SessionCooldown)
}

func TestLoad_ProductionRequiresToken(t *testing.T) {
	t.Setenv("GATEWAY_URL", "http://localhost:9000")
	t.Setenv("ENV", "production")
	t.Setenv("GATEWAY_TOKEN", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsPassScoreAboveMax(t *testing.T) {
	t.Setenv("GATEWAY_URL", "http://localhost:9000")
	t.Setenv("QUIZ_PASS_SCORE", "50")
	t.Setenv("QUIZ_MAX_SCORE", "40")

	_, err := config.Load()
	assert.Error(t, err)
}
