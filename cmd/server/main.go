package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hoctuthien/internal/app"
	"hoctuthien/internal/config"
	"hoctuthien/internal/handler"
	"hoctuthien/internal/infrastructure/cache"
	"hoctuthien/internal/infrastructure/database"
	"hoctuthien/internal/infrastructure/logger"
	"hoctuthien/internal/infrastructure/mq"
	"hoctuthien/internal/job"
	"hoctuthien/internal/metrics"
	"hoctuthien/pkg/idgen"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	idgen.Init(1)

	db, err := database.InitMySQL(&cfg.MySQL, zlog)
	if err != nil {
		zlog.Fatal("init mysql", zap.Error(err))
	}

	redisClient, err := cache.InitRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("init redis", zap.Error(err))
	}
	defer redisClient.Close()

	producer, err := mq.InitKafka(&cfg.Kafka)
	if err != nil {
		zlog.Fatal("init kafka", zap.Error(err))
	}
	defer producer.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engine := app.NewEngine(cfg, db, redisClient, metrics.New(registry), zlog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go job.NewOutboxSender(db, producer, cfg.Business.MaxRetryCount, zlog).Start(ctx)

	interval := time.Duration(cfg.Business.SyncIntervalSeconds) * time.Second
	go job.NewSyncSweepJob(engine.Scheduler, interval, zlog).Start(ctx)

	if cfg.Business.RequestExpireHours > 0 {
		maxAge := time.Duration(cfg.Business.RequestExpireHours) * time.Hour
		go job.NewPaymentExpiryJob(db, maxAge, zlog).Start(ctx)
	}

	if cfg.Business.RematchLookbackHours > 0 {
		lookback := time.Duration(cfg.Business.RematchLookbackHours) * time.Hour
		every := time.Duration(cfg.Business.RematchIntervalSeconds) * time.Second
		go job.NewRematchJob(db, engine.Syncer, lookback, every, engine.Metrics, zlog).Start(ctx)
	}

	h := handler.NewHandler(engine.Payments, engine.Scheduler, zlog)
	router := handler.SetupRouter(h, cfg.Server.AdminToken, registry, zlog)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zlog.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}

	zlog.Info("server stopped")
}
