// Package main implements the entry point for the taskloop API server,
// which provides multi-tenant task management with recurrence, reminders,
// lifecycle events and an optional LLM assistant.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/taskloop/taskloop/internal/agent"
	"github.com/taskloop/taskloop/internal/api"
	"github.com/taskloop/taskloop/internal/api/middleware"
	"github.com/taskloop/taskloop/internal/config"
	"github.com/taskloop/taskloop/internal/events"
	"github.com/taskloop/taskloop/internal/platform/kafka"
	"github.com/taskloop/taskloop/internal/platform/logger"
	"github.com/taskloop/taskloop/internal/platform/postgres"
	"github.com/taskloop/taskloop/internal/scheduler"
	"github.com/taskloop/taskloop/internal/service"
	"github.com/taskloop/taskloop/internal/service/auth"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// run initializes every component, starts the HTTP server and blocks until
// shutdown completes. Kept separate from main so it can return errors.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	appLogger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("events_enabled", cfg.Events.Enabled),
		slog.Bool("kafka_configured", len(cfg.Events.KafkaBrokers) > 0),
		slog.Bool("agent_configured", cfg.Agent.GeminiAPIKey != ""))

	// Database
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return err
	}

	// Event transport
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	publisher, subscriber := buildEventTransport(cfg.Events, appLogger)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("failed to close publisher", slog.String("error", err.Error()))
		}
	}()

	if subscriber != nil {
		registerEventHandlers(subscriber, appLogger)
		if err := subscriber.Start(rootCtx); err != nil {
			return fmt.Errorf("failed to start event consumer: %w", err)
		}
	}

	// Stores and services
	taskStore := postgres.NewPostgresTaskStore(db, appLogger)
	userStore := postgres.NewPostgresUserStore(db, appLogger)
	taskRepo := service.NewTaskRepositoryAdapter(taskStore, db)

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenLifetimeMinutes)*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to create JWT service: %w", err)
	}

	taskService := service.NewTaskService(taskRepo, publisher, appLogger)
	userService := service.NewUserService(userStore, hasher, appLogger)

	// Assistant (optional)
	var assistant agent.Agent = agent.NullAgent{}
	if cfg.Agent.GeminiAPIKey != "" {
		geminiAgent, err := agent.NewGeminiAgent(rootCtx, cfg.Agent.GeminiAPIKey, cfg.Agent.ModelName, taskService, appLogger)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		assistant = geminiAgent
	}

	// Background sweeps
	sched := scheduler.New(taskService, appLogger)
	if err := sched.Start(rootCtx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP server
	router := api.NewRouter(api.RouterDeps{
		AuthHandler:    api.NewAuthHandler(userService, jwtService),
		TaskHandler:    api.NewTaskHandler(taskService),
		AgentHandler:   api.NewAgentHandler(taskService, assistant),
		AuthMiddleware: middleware.NewAuthMiddleware(jwtService),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		appLogger.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	appLogger.Info("server stopped")
	return nil
}

// buildEventTransport selects the publisher and subscriber from
// configuration: Kafka when brokers are given, the in-process channel bus
// otherwise, and a no-op publisher when eventing is disabled.
func buildEventTransport(cfg config.EventsConfig, appLogger *slog.Logger) (events.Publisher, events.Subscriber) {
	if !cfg.Enabled {
		return events.NewNoopPublisher(appLogger), nil
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, appLogger)
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, appLogger)
		return producer, consumer
	}
	bus := events.NewChannelBus(cfg.BufferSize, appLogger)
	return bus, bus
}

// registerEventHandlers wires the built-in consumers: lifecycle logging,
// reminder notifications, and an occurrence counter for generated tasks.
func registerEventHandlers(subscriber events.Subscriber, appLogger *slog.Logger) {
	logging := events.NewLoggingHandler(appLogger)
	subscriber.RegisterHandler(events.TaskCreated, logging)
	subscriber.RegisterHandler(events.TaskUpdated, logging)
	subscriber.RegisterHandler(events.TaskCompleted, logging)
	subscriber.RegisterHandler(events.TaskDeleted, logging)
	subscriber.RegisterHandler(events.ReminderTriggered, events.NewNotificationHandler(appLogger))
	subscriber.RegisterHandler(events.RecurringTaskGenerated, events.NewCountingHandler(logging))
}
