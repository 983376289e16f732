package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	PostgresDSN     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	MarketingTopic  string
	JWTSecret       string
	JWTTTL          time.Duration
	LogLevel        string
	OTLPEndpoint    string
	CORSOrigins     []string

	StripeAPIKey        string
	StripeWebhookSecret string

	ConvertKit ConvertKitConfig

	AdminEmail    string
	AdminPassword string
}

type ConvertKitConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	FormID    string
	// Sequences and Tags map symbolic names to ESP ids; nil means built-in ids.
	Sequences map[string]string
	Tags      map[string]string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using environment and defaults", "error", err)
	}

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		PostgresDSN:     getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=bizprompt sslmode=disable"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", os.Getenv("KAFKA_BROKER"))),
		MarketingTopic:  getEnv("KAFKA_MARKETING_TOPIC", "marketing"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTTTL:          getDuration("JWT_TTL", 24*time.Hour),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),

		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		ConvertKit: ConvertKitConfig{
			BaseURL:   os.Getenv("CONVERTKIT_BASE_URL"),
			APIKey:    os.Getenv("CONVERTKIT_API_KEY"),
			APISecret: os.Getenv("CONVERTKIT_API_SECRET"),
			FormID:    os.Getenv("CONVERTKIT_FORM_ID"),
			Sequences: parseMap(os.Getenv("CONVERTKIT_SEQUENCES")),
			Tags:      parseMap(os.Getenv("CONVERTKIT_TAGS")),
		},

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
		slog.Warn("JWT_SECRET not set, using insecure default")
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"stripe_configured", cfg.StripeAPIKey != "",
		"convertkit_configured", cfg.ConvertKit.APIKey != "" && cfg.ConvertKit.FormID != "",
	)
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

// splitList parses "a, b,c" and drops empty items.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseMap parses "name=id,name2=id2".
func parseMap(raw string) map[string]string {
	items := splitList(raw)
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			slog.Warn("ignoring malformed map entry", "entry", item)
			continue
		}
		out[k] = v
	}
	return out
}
