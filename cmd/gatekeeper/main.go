package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/verdantchat/gatekeeper/internal/background"
	"github.com/verdantchat/gatekeeper/internal/config"
	"github.com/verdantchat/gatekeeper/internal/delivery"
	"github.com/verdantchat/gatekeeper/internal/handlers"
	middlewareCustom "github.com/verdantchat/gatekeeper/internal/middleware"
	"github.com/verdantchat/gatekeeper/internal/quiz"
	"github.com/verdantchat/gatekeeper/internal/ratelimit"
	"github.com/verdantchat/gatekeeper/internal/repositories"
	"github.com/verdantchat/gatekeeper/internal/routes"
	"github.com/verdantchat/gatekeeper/internal/services"
	"github.com/verdantchat/gatekeeper/internal/transport"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Durable state
	ledger, err := repositories.NewAttemptLedger(cfg.Storage.LedgerPath, cfg.Limits.MaxAttemptsPerDay, logger)
	if err != nil {
		logger.Error("failed to open attempt ledger", slog.Any("error", err))
		os.Exit(1)
	}

	transcripts, err := repositories.NewTranscriptLog(cfg.Storage.TranscriptDir, logger)
	if err != nil {
		logger.Error("failed to open transcript log", slog.Any("error", err))
		os.Exit(1)
	}

	// Quiz content
	questions, err := quiz.Load(cfg.Quiz.QuestionFile)
	if err != nil {
		logger.Error("failed to load quiz file", slog.Any("error", err))
		os.Exit(1)
	}
	selector, err := quiz.NewSelector(questions, cfg.Quiz.AnchorQuestion, cfg.Quiz.SampleCount)
	if err != nil {
		logger.Error("invalid quiz configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Shared gating state, constructed once and passed everywhere
	gate := ratelimit.NewCooldownGate()
	failures := ratelimit.NewFailureTracker()
	replyRouter := delivery.NewReplyRouter()

	// Gateway collaborators
	gateway := transport.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Gateway.Token, nil, logger)

	messengerConfig := delivery.MessengerConfig{
		MaxAttempts:      cfg.Limits.SendAttempts,
		BaseDelay:        cfg.Limits.BaseRetryDelay,
		RateLimitBackoff: []time.Duration{1 * time.Hour, 2 * time.Hour, 6 * time.Hour},
		TripDuration:     cfg.Limits.CooldownTrip,
		AlertWindow:      cfg.Limits.FailureWindow,
		AlertThreshold:   cfg.Limits.FailureThreshold,
	}
	messenger := delivery.NewMessenger(gateway, gate, failures, messengerConfig, logger)

	// Admission and session services
	admissionConfig := services.AdmissionConfig{
		Cooldown:      cfg.Limits.SessionCooldown,
		MaxConcurrent: cfg.Limits.MaxConcurrentSessions,
		Roles:         services.DefaultRoleNames(),
	}
	admission := services.NewAdmissionController(ledger, gateway, admissionConfig, logger)

	quizConfig := services.QuizConfig{
		PassScore:        cfg.Quiz.PassScore,
		MaxScore:         cfg.Quiz.MaxScore,
		MaxDailyAttempts: cfg.Limits.MaxAttemptsPerDay,
		QuestionTimeout:  cfg.Quiz.QuestionTimeout,
		MessageDelay:     cfg.Quiz.MessageDelay,
		SmoothingMin:     time.Second,
		SmoothingMax:     2500 * time.Millisecond,
		LogChannelID:     cfg.Gateway.LogChannelID,
		AlertWindow:      cfg.Limits.FailureWindow,
		AlertThreshold:   cfg.Limits.FailureThreshold,
		Roles:            services.DefaultRoleNames(),
	}
	quizService := services.NewQuizService(
		admission, messenger, replyRouter, ledger, transcripts, gateway,
		selector, failures, quizConfig, logger)

	// Handlers
	verifyHandler := handlers.NewVerificationHandler(quizService, gate, cfg.Limits.BurstWindow, logger)
	replyHandler := handlers.NewReplyHandler(replyRouter, logger)
	statusHandler := handlers.NewStatusHandler(admission, gate, failures, cfg.Limits.FailureWindow)

	// Background pruning
	pruneManager := background.NewPruneManager(ledger, admission, logger, cfg.Storage.PruneInterval, cfg.Storage.Retention)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders)
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	commandLimit := middlewareCustom.CommandRateLimit{
		Requests: 1,
		Window:   cfg.Limits.SessionCooldown,
	}
	routes.RegisterRoutes(router, verifyHandler, replyHandler, statusHandler, cfg.Gateway.Token, commandLimit)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start prune task
	pruneCtx, pruneCancel := context.WithCancel(context.Background())
	defer pruneCancel()

	go pruneManager.Start(pruneCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	pruneCancel()
	pruneManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
