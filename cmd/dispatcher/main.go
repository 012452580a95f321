// cmd/dispatcher/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"restock-dispatcher/internal/audit"
	"restock-dispatcher/internal/catalog"
	"restock-dispatcher/internal/common/config"
	"restock-dispatcher/internal/common/database"
	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/common/observability"
	"restock-dispatcher/internal/fanout"
	"restock-dispatcher/internal/notify"
	"restock-dispatcher/internal/resolver"
	"restock-dispatcher/internal/server"
	"restock-dispatcher/internal/store"
	"restock-dispatcher/internal/subscribe"
	"restock-dispatcher/internal/webhook"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting restock dispatcher...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("restock-dispatcher")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init audit sink (optional) ---
	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		recorder = audit.NewESRecorder(esClient.Client, cfg.Audit.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Stores ---
	subscriptions := store.NewPostgresSubscriptionStore(pg.DB, log)
	credentials := store.NewRedisCredentialStore(redis.Client, log)

	// --- Catalog client ---
	catalogClient := catalog.NewClient(catalog.Config{
		APIVersion: cfg.Catalog.APIVersion,
		Timeout:    config.GetDuration(cfg.Catalog.Timeout),
	}, log)

	// --- Mail transport ---
	var mailer notify.Mailer
	switch cfg.Mail.Provider {
	case "ses":
		sesMailer, err := notify.NewSESMailer(ctx, cfg.Mail.SES.Region, log)
		if err != nil {
			zapLog.Fatal("ses mailer init failed", zap.Error(err))
		}
		mailer = sesMailer
	default:
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
			UseTLS:   cfg.Mail.SMTP.UseTLS,
		}, log)
	}

	// --- Fallback notifier (email + optional SNS) ---
	var snsClient notify.SNSService
	if cfg.Fallback.SNS.Enabled {
		snsClient, err = newSNSClient(ctx, cfg.Fallback.SNS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
	}
	fallbackNotifier := notify.NewFallback(notify.FallbackConfig{
		OperationalRecipient: cfg.Fallback.OperationalRecipient,
		FromEmail:            cfg.Mail.FromEmail,
		SNSTopicARN:          cfg.Fallback.SNS.TopicARN,
	}, mailer, snsClient, log)

	// --- Core pipeline ---
	productResolver := resolver.New(credentials, catalogClient, log)
	subscriberNotifier := notify.NewSubscriberNotifier(catalogClient, notify.NewRenderer(), mailer, cfg.Mail.FromEmail, log)
	engine := fanout.NewEngine(
		subscriptions,
		subscriberNotifier,
		fallbackNotifier,
		recorder,
		config.GetDuration(cfg.Webhook.SendTimeout),
		log,
	)

	webhookCfg := &webhook.Config{
		Secret:          cfg.Webhook.Secret,
		SignatureHeader: cfg.Webhook.SignatureHeader,
		DomainHeader:    cfg.Webhook.DomainHeader,
		SendTimeout:     config.GetDuration(cfg.Webhook.SendTimeout),
	}
	if err := webhookCfg.Validate(); err != nil {
		zapLog.Fatal("invalid webhook config", zap.Error(err))
	}

	webhookHandler := webhook.NewHandler(
		webhookCfg,
		productResolver,
		subscriberNotifier,
		engine,
		obs,
		log,
	)
	subscribeHandler := subscribe.NewHandler(subscriptions, log)

	// --- HTTP server ---
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.NewRouter(webhookHandler, subscribeHandler, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}

func newSNSClient(ctx context.Context, region string) (notify.SNSService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(awsCfg), nil
}
