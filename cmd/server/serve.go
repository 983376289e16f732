package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/honeynil/BizPromptService/internal/api"
	"github.com/honeynil/BizPromptService/internal/handler"
	"github.com/honeynil/BizPromptService/internal/infrastructure/auth"
	"github.com/honeynil/BizPromptService/internal/infrastructure/kafka"
	"github.com/honeynil/BizPromptService/internal/marketing"
	core "github.com/honeynil/BizPromptService/internal/repository/postgres"
)

var (
	serveMigrate bool
	serveWorker  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Examples:
  bizprompt serve
  bizprompt serve --migrate --worker`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply the database schema before serving")
	serveCmd.Flags().BoolVar(&serveWorker, "worker", false, "also run the marketing queue consumer in this process")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if serveMigrate {
		if err := core.Migrate(ctx, a.db); err != nil {
			return err
		}
	}

	c, err := a.buildServices(ctx)
	if err != nil {
		return err
	}
	if err := c.services.Auth.EnsureAdmin(ctx, a.cfg.AdminEmail, a.cfg.AdminPassword); err != nil {
		slog.Error("admin bootstrap failed", "error", err)
	}

	if serveWorker && len(a.cfg.KafkaBrokers) > 0 {
		go a.runConsumer(ctx)
	}

	router := api.SetupRouter(handler.NewHandler(c.services), auth.NewMiddleware(c.tokens, c.redis), api.Options{
		CORSOrigins:    a.cfg.CORSOrigins,
		MetricsHandler: a.metricsHandler,
		HealthChecks: map[string]api.HealthCheck{
			"postgres": a.db.PingContext,
			"redis":    c.redis.Ping,
		},
	})

	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", a.cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// runConsumer processes queued marketing tasks until ctx is cancelled.
func (a *app) runConsumer(ctx context.Context) {
	automation := marketing.NewAutomation(a.espClient())
	consumer := kafka.NewConsumer(a.cfg.KafkaBrokers, a.cfg.MarketingTopic, "bizprompt-marketing", automation.HandleMessage)
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close Kafka consumer", "error", err)
		}
	}()
	slog.Info("marketing consumer started", "topic", a.cfg.MarketingTopic)
	consumer.Consume(ctx)
}
