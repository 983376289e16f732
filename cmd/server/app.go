package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/honeynil/BizPromptService/internal/catalog"
	"github.com/honeynil/BizPromptService/internal/config"
	"github.com/honeynil/BizPromptService/internal/handler"
	"github.com/honeynil/BizPromptService/internal/infrastructure/auth"
	"github.com/honeynil/BizPromptService/internal/infrastructure/convertkit"
	"github.com/honeynil/BizPromptService/internal/infrastructure/kafka"
	"github.com/honeynil/BizPromptService/internal/infrastructure/redis"
	"github.com/honeynil/BizPromptService/internal/infrastructure/stripe"
	"github.com/honeynil/BizPromptService/internal/marketing"
	"github.com/honeynil/BizPromptService/internal/observability"
	core "github.com/honeynil/BizPromptService/internal/repository/postgres"
	service "github.com/honeynil/BizPromptService/internal/services"
)

const serviceName = "bizprompt-service"

// app holds the process-wide dependencies shared by the commands.
type app struct {
	cfg            *config.Config
	db             *sql.DB
	metricsHandler http.Handler
	closers        []func() error
	shutdownTracer func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	shutdown, metricsHandler := observability.Setup(ctx, serviceName, cfg.LogLevel, cfg.OTLPEndpoint)

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	a := &app{cfg: cfg, db: db, metricsHandler: metricsHandler, shutdownTracer: shutdown}
	a.closers = append(a.closers, db.Close)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("failed to release resource", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTracer(ctx); err != nil {
		slog.Error("failed to shut down tracer", "error", err)
	}
}

func (a *app) espClient() *convertkit.Client {
	ck := a.cfg.ConvertKit
	return convertkit.NewClient(convertkit.Config{
		BaseURL:   ck.BaseURL,
		APIKey:    ck.APIKey,
		APISecret: ck.APISecret,
		FormID:    ck.FormID,
		Sequences: ck.Sequences,
		Tags:      ck.Tags,
	}, nil)
}

// marketingQueue publishes to Kafka when brokers are configured and otherwise
// runs tasks in-process.
func (a *app) marketingQueue(automation *marketing.Automation) marketing.Queue {
	if len(a.cfg.KafkaBrokers) == 0 {
		slog.Warn("no Kafka brokers configured, marketing tasks run in-process")
		q := marketing.NewInlineQueue(automation, time.Minute)
		a.closers = append(a.closers, func() error { q.Wait(); return nil })
		return q
	}
	producer := kafka.NewProducer(a.cfg.KafkaBrokers)
	a.closers = append(a.closers, producer.Close)
	return marketing.NewKafkaQueue(producer, a.cfg.MarketingTopic)
}

// paymentProvider returns nil when Stripe is not configured at all. A key
// without a webhook secret, or the reverse, fails startup.
func (a *app) paymentProvider() (service.PaymentProvider, error) {
	if a.cfg.StripeAPIKey == "" && a.cfg.StripeWebhookSecret == "" {
		slog.Warn("stripe is not configured, payments disabled")
		return nil, nil
	}
	provider, err := stripe.NewProvider(a.cfg.StripeAPIKey, a.cfg.StripeWebhookSecret, nil)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

type components struct {
	services handler.Services
	redis    *redis.Client
	tokens   *auth.TokenService
}

func (a *app) buildServices(ctx context.Context) (*components, error) {
	payments, err := a.paymentProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to configure payments: %w", err)
	}

	redisClient, err := redis.NewClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.closers = append(a.closers, redisClient.Close)

	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	userRepo := core.NewPostgresUserRepository(a.db)
	transactionRepo := core.NewPostgresTransactionRepository(a.db)
	leadRepo := core.NewPostgresLeadRepository(a.db)
	responseRepo := core.NewPostgresSurveyResponseRepository(a.db)

	esp := a.espClient()
	automation := marketing.NewAutomation(esp)
	queue := a.marketingQueue(automation)
	tokens := auth.NewTokenService(a.cfg.JWTSecret, a.cfg.JWTTTL)

	fulfillment := service.NewFulfillment(userRepo, queue)
	return &components{
		services: handler.Services{
			Auth:    service.NewAuthService(userRepo, redisClient, tokens),
			Payment: service.NewPaymentService(transactionRepo, userRepo, payments, fulfillment, redisClient),
			Lead:    service.NewLeadService(userRepo, leadRepo, queue),
			Prompt:  service.NewPromptService(cat, userRepo),
			Survey:  service.NewSurveyService(cat, responseRepo),
			Admin:   service.NewAdminService(userRepo, leadRepo, responseRepo, transactionRepo).WithSubscriberLookup(esp),
		},
		redis:  redisClient,
		tokens: tokens,
	}, nil
}
