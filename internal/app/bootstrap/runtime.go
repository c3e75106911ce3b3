package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/saglikops/checkup-tracker/internal/config"
	"github.com/saglikops/checkup-tracker/internal/notify"
	"github.com/saglikops/checkup-tracker/pkg/logging"
)

// BuildPgxPool opens and pings the Postgres pool the store runs on.
func BuildPgxPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping db: %w", err)
	}
	return pool, nil
}

// BuildSQLDB opens the database/sql handle used by the package catalog
// and the migrator.
func BuildSQLDB(cfg *appconfig.Config) (*sql.DB, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open sql db: %w", err)
	}
	return db, nil
}

// BuildRedisClient returns a Redis client for webhook de-duplication, or
// nil when Redis is not configured or unreachable. The service degrades
// to no de-dup rather than refusing to start.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	options := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, webhook de-dup disabled", "error", err)
		return nil
	}
	return client
}

// BuildSender returns the outbound WhatsApp channel. Without Twilio
// credentials it falls back to the log-only stub, which keeps local
// development working end to end.
func BuildSender(cfg *appconfig.Config, logger *logging.Logger) notify.Sender {
	if cfg == nil || cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		if logger != nil {
			logger.Warn("twilio credentials missing, using stub sender")
		}
		return notify.NewStubSender(logger)
	}
	return notify.NewTwilioWhatsAppSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger)
}

// BuildEmailSender returns the optional SES copy channel, or nil when
// email is disabled or AWS config cannot be loaded.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if cfg == nil || !cfg.EmailEnabled {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Warn("aws config load failed, email channel disabled", "error", err)
		return nil
	}
	sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
		FromEmail: cfg.SESFromEmail,
		FromName:  cfg.SESFromName,
	}, logger)
	if sender == nil {
		return nil
	}
	return sender
}
