package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/database"
	"notification-dispatcher/internal/common/errors"
	commonhttp "notification-dispatcher/internal/common/http"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/common/observability"
	"notification-dispatcher/internal/notification/channel"
	"notification-dispatcher/internal/notification/directory"
	"notification-dispatcher/internal/notification/dispatch"
	"notification-dispatcher/internal/notification/factory"
	"notification-dispatcher/internal/notification/scope"
	"notification-dispatcher/internal/notification/store"
	"notification-dispatcher/internal/notification/template"
	"notification-dispatcher/internal/queue"
	dispatchworker "notification-dispatcher/internal/workers/dispatch-notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	log.Info("starting notification dispatcher", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"pool_size":   cfg.Dispatch.PoolSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	pg, err := connectPostgres(ctx, cfg.Database.Postgres, log)
	if err != nil {
		log.Error("postgres unavailable", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	defer pg.Close()

	rdb, err := connectRedis(ctx, cfg.Database.Redis, log)
	if err != nil {
		log.Error("redis unavailable", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	defer rdb.Close()

	mailjetHTTP := commonhttp.NewClient(time.Duration(cfg.Mailjet.Timeout) * time.Millisecond)
	mercureHTTP := commonhttp.NewClient(time.Duration(cfg.Mercure.Timeout) * time.Millisecond)
	directoryHTTP := commonhttp.NewClient(time.Duration(cfg.Directory.Timeout) * time.Millisecond)

	proxy := directory.NewProxy(directoryHTTP, rdb, cfg.Directory, log)
	resolvers := scope.NewResolverMap(proxy, log)

	notifications := store.NewNotificationStore(pg.DB, log)
	templates := store.NewTemplateStore(pg.DB, log)

	templateClient := template.NewClient(mailjetHTTP, cfg.Mailjet, log)
	refresher := template.NewRefresher(templateClient, templates,
		time.Duration(cfg.Mailjet.TemplateRefresh)*time.Minute, log)
	go refresher.Run(ctx)

	emailSender := channel.NewEmailSender(mailjetHTTP, cfg.Mailjet, cfg.Dispatch.UploadDir, log)
	pushSender := channel.NewPushSender(mercureHTTP, cfg.Mercure, log)

	senders := []channel.Sender{emailSender, pushSender}
	if cfg.SMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SMS.AWSRegion))
		if err != nil {
			log.Error("failed to load AWS configuration", map[string]interface{}{"error": err})
			os.Exit(1)
		}
		senders = append(senders, channel.NewSmsSender(sns.NewFromConfig(awsCfg), cfg.SMS, log))
	}

	orchestrator := dispatch.NewOrchestrator(
		senders, emailSender, resolvers, notifications, mercureHTTP,
		cfg.Dispatch.BatchSize, log)

	producer := queue.NewProducer(cfg.Kafka, log)
	defer producer.Close()

	factories := factory.NewResolver(
		factory.NewEmailFactory(),
		factory.NewSmsFactory(),
		factory.NewPushFactory(),
	)
	manager := dispatch.NewManager(
		factories, templates, notifications, producer, emailSender, orchestrator, log)

	workerCfg := dispatchworker.DefaultConfig()
	workerCfg.Timeout = time.Duration(cfg.Dispatch.Timeout) * time.Millisecond
	handler := dispatchworker.NewHandler(workerCfg, manager, obs, log)

	metricsSrv := startMetricsServer(cfg.App.MetricsAddr, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	pool := dispatch.NewPool(cfg.Dispatch.PoolSize, log)
	pool.Run(ctx, func() *queue.Consumer {
		return queue.NewConsumer(cfg.Kafka, log)
	}, handler.Handle)

	log.Info("notification dispatcher stopped", nil)
}

// connectPostgres dials the database with exponential backoff so the service
// survives a slow database start.
func connectPostgres(ctx context.Context, cfg config.PostgresConfig, log logger.Logger) (*database.PostgresClient, error) {
	var client *database.PostgresClient
	err := retryWithBackoff(ctx, 5, log, "postgres", func() error {
		c, err := database.NewPostgres(cfg)
		if err != nil {
			return errors.NewDatabaseConnectionFailedError(err)
		}
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return errors.NewDatabaseConnectionFailedError(err)
		}
		client = c
		return nil
	})
	return client, err
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*database.RedisClient, error) {
	var client *database.RedisClient
	err := retryWithBackoff(ctx, 5, log, "redis", func() error {
		c, err := database.NewRedis(cfg)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return err
		}
		client = c
		return nil
	})
	return client, err
}

func retryWithBackoff(ctx context.Context, attempts int, log logger.Logger, name string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Warn("connection attempt failed", map[string]interface{}{
			"target":  name,
			"attempt": attempt,
			"error":   err,
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return err
}

func startMetricsServer(addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info("metrics server listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", map[string]interface{}{"error": err})
		}
	}()
	return srv
}
