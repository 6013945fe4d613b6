// Package bootstrap wires optional infrastructure from configuration so the
// binaries share one set of construction rules.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/clinicdesk/clinic-voice-platform/internal/config"
	"github.com/clinicdesk/clinic-voice-platform/internal/notify"
	"github.com/clinicdesk/clinic-voice-platform/internal/sessionstore"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildSessionStore selects where per-call conversation state lives. Redis
// is the default; DynamoDB serves Lambda deploys where no Redis is reachable.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, dynamoClient *dynamodb.Client, logger *logging.Logger) sessionstore.Store {
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.SessionStore == "dynamodb" {
		if dynamoClient == nil {
			logger.Error("session store set to dynamodb but no client available")
			return nil
		}
		logger.Info("session store: dynamodb", "table", cfg.SessionsTable)
		return sessionstore.NewDynamoStore(dynamoClient, cfg.SessionsTable, cfg.SessionTTL)
	}

	if redisClient == nil {
		logger.Error("session store set to redis but no client available")
		return nil
	}
	logger.Info("session store: redis", "ttl", cfg.SessionTTL)
	return sessionstore.NewRedisStore(redisClient, cfg.SessionTTL)
}

// BuildEmailSender selects the confirmation email provider, or nil when
// email is disabled.
func BuildEmailSender(cfg *appconfig.Config, sesClient *sesv2.Client, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but no API key configured; email disabled")
			return nil
		}
		return sender
	case "ses":
		sender := notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			logger.Warn("ses selected but no client available; email disabled")
			return nil
		}
		return sender
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		return nil
	}
}
