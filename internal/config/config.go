package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Gateway GatewayConfig
	Quiz    QuizConfig
	Limits  LimitsConfig
	Storage StorageConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type GatewayConfig struct {
	// BaseURL is the chat-gateway API root all sends and role operations go to.
	BaseURL string
	// Token authenticates both directions: presented by the gateway on
	// forwarded requests and by us on outbound calls.
	Token string
	// LogChannelID receives per-quiz summary lines; empty disables them.
	LogChannelID string
}

type QuizConfig struct {
	QuestionFile    string
	AnchorQuestion  string
	SampleCount     int
	PassScore       int
	MaxScore        int
	QuestionTimeout time.Duration
	MessageDelay    time.Duration
}

type LimitsConfig struct {
	MaxAttemptsPerDay     int
	SessionCooldown       time.Duration
	MaxConcurrentSessions int
	SendAttempts          int
	BaseRetryDelay        time.Duration
	CooldownTrip          time.Duration
	FailureWindow         time.Duration
	FailureThreshold      int
	BurstWindow           time.Duration
}

type StorageConfig struct {
	LedgerPath    string
	TranscriptDir string
	Retention     time.Duration
	PruneInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	gatewayURL := getEnv("GATEWAY_URL", "")
	if gatewayURL == "" {
		return nil, fmt.Errorf("GATEWAY_URL is required")
	}

	env := getEnv("ENV", "development")
	token := getEnv("GATEWAY_TOKEN", "")
	if env == "production" && token == "" {
		return nil, fmt.Errorf("GATEWAY_TOKEN is required in production")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Gateway: GatewayConfig{
			BaseURL:      gatewayURL,
			Token:        token,
			LogChannelID: getEnv("LOG_CHANNEL_ID", ""),
		},
		Quiz: QuizConfig{
			QuestionFile:    getEnv("QUIZ_FILE", "quiz.json"),
			AnchorQuestion:  getEnv("QUIZ_ANCHOR_QUESTION", ""),
			SampleCount:     getEnvAsInt("QUIZ_SAMPLE_COUNT", 7),
			PassScore:       getEnvAsInt("QUIZ_PASS_SCORE", 30),
			MaxScore:        getEnvAsInt("QUIZ_MAX_SCORE", 40),
			QuestionTimeout: getEnvAsDuration("QUIZ_QUESTION_TIMEOUT", 300*time.Second),
			MessageDelay:    getEnvAsDuration("QUIZ_MESSAGE_DELAY", time.Second),
		},
		Limits: LimitsConfig{
			MaxAttemptsPerDay:     getEnvAsInt("MAX_ATTEMPTS_PER_DAY", 4),
			SessionCooldown:       getEnvAsDuration("SESSION_COOLDOWN", 120*time.Second),
			MaxConcurrentSessions: getEnvAsInt("MAX_CONCURRENT_SESSIONS", 5),
			SendAttempts:          getEnvAsInt("SEND_ATTEMPTS", 3),
			BaseRetryDelay:        getEnvAsDuration("BASE_RETRY_DELAY", 1500*time.Millisecond),
			CooldownTrip:          getEnvAsDuration("COOLDOWN_TRIP", 15*time.Minute),
			FailureWindow:         getEnvAsDuration("FAILURE_WINDOW", 5*time.Minute),
			FailureThreshold:      getEnvAsInt("FAILURE_THRESHOLD", 5),
			BurstWindow:           getEnvAsDuration("BURST_WINDOW", 10*time.Second),
		},
		Storage: StorageConfig{
			LedgerPath:    getEnv("LEDGER_PATH", "attempts.json"),
			TranscriptDir: getEnv("TRANSCRIPT_DIR", "answer-logs"),
			Retention:     getEnvAsDuration("LEDGER_RETENTION", 90*24*time.Hour),
			PruneInterval: getEnvAsDuration("PRUNE_INTERVAL", time.Hour),
		},
	}

	if cfg.Quiz.PassScore > cfg.Quiz.MaxScore {
		return nil, fmt.Errorf("QUIZ_PASS_SCORE (%d) cannot exceed QUIZ_MAX_SCORE (%d)",
			cfg.Quiz.PassScore, cfg.Quiz.MaxScore)
	}
	if cfg.Limits.MaxConcurrentSessions < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_SESSIONS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
