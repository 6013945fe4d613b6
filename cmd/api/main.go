package main

import (
	"context"
	"database/sql"
	_ "embed"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicdesk/clinic-voice-platform/cmd/mainconfig"
	"github.com/clinicdesk/clinic-voice-platform/internal/api/router"
	"github.com/clinicdesk/clinic-voice-platform/internal/app/bootstrap"
	"github.com/clinicdesk/clinic-voice-platform/internal/archive"
	appconfig "github.com/clinicdesk/clinic-voice-platform/internal/config"
	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
	"github.com/clinicdesk/clinic-voice-platform/internal/directory"
	"github.com/clinicdesk/clinic-voice-platform/internal/http/handlers"
	"github.com/clinicdesk/clinic-voice-platform/internal/ledger"
	"github.com/clinicdesk/clinic-voice-platform/internal/notify"
	"github.com/clinicdesk/clinic-voice-platform/internal/observability/metrics"
	"github.com/clinicdesk/clinic-voice-platform/internal/patients"
	"github.com/clinicdesk/clinic-voice-platform/internal/scheduling"
	"github.com/clinicdesk/clinic-voice-platform/internal/webchat"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-voice-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The walk-in queue runs over database/sql; in the default deploy it
	// shares the primary database.
	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open sql db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	// AWS clients are only built when some feature needs them.
	var (
		dynamoClient *dynamodb.Client
		s3Client     *s3.Client
		sesClient    *sesv2.Client
	)
	if cfg.SessionStore == "dynamodb" || cfg.ArchiveBucket != "" || cfg.EmailProvider == "ses" {
		var awsCfg aws.Config
		awsCfg, err = mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		dynamoClient = dynamodb.NewFromConfig(awsCfg)
		s3Client = s3.NewFromConfig(awsCfg)
		sesClient = sesv2.NewFromConfig(awsCfg)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, cfg.SessionStore != "dynamodb")
	sessions := bootstrap.BuildSessionStore(cfg, redisClient, dynamoClient, logger)
	if sessions == nil {
		logger.Error("no session store available")
		os.Exit(1)
	}

	convMetrics := metrics.NewConversationMetrics(prometheus.DefaultRegisterer)

	engine := dialog.NewEngine(
		directory.NewPostgresRepository(pool),
		scheduling.NewPostgresStore(pool),
		logger,
		dialog.WithMetrics(convMetrics),
		dialog.WithAttemptLimits(cfg.MaxAttempts, cfg.ConfirmationMaxAttempts),
	)

	callLedger := ledger.NewPostgresLedger(pool)
	walkins := patients.NewStore(sqlDB)
	mailer := notify.NewConfirmationMailer(bootstrap.BuildEmailSender(cfg, sesClient, logger), cfg.ClinicName, logger)
	var archiveStore *archive.Store
	if cfg.ArchiveBucket != "" {
		archiveStore = archive.NewStore(s3Client, cfg.ArchiveBucket, logger)
	}

	voiceHandler := handlers.NewVoiceTurnHandler(handlers.VoiceTurnHandlerConfig{
		Engine:   engine,
		Sessions: sessions,
		Records:  callLedger,
		Reader:   callLedger,
		Walkins:  walkins,
		Mailer:   mailer,
		Archive:  archiveStore,
		Metrics:  convMetrics,
		Logger:   logger,
	})
	chatHandler := webchat.NewHandler(webchat.Config{
		Engine:   engine,
		Sessions: sessions,
		Records:  callLedger,
		Reader:   callLedger,
		Metrics:  convMetrics,
		Logger:   logger,
		WidgetJS: widgetJS,
	})
	adminHandler := handlers.NewAdminCallsHandler(callLedger, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		VoiceTurn:          voiceHandler,
		Webchat:            chatHandler,
		AdminCalls:         adminHandler,
		MetricsHandler:     promhttp.Handler(),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
