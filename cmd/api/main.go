package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nearhire/config"
	"nearhire/internal/archive"
	"nearhire/internal/call"
	"nearhire/internal/handler"
	"nearhire/internal/history"
	"nearhire/internal/identity"
	"nearhire/internal/metrics"
	"nearhire/internal/middleware"
	"nearhire/internal/readiness"
	"nearhire/internal/server"
	"nearhire/internal/signaling"
	"nearhire/internal/websocket"
	"nearhire/pkg/database"
	"nearhire/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	log := logger.New(mode)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pool, err := database.Connect(ctx, database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
	})
	if err != nil {
		log.Errorf("postgres unavailable: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := history.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		log.Errorf("migrate call history: %v", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	gate := readiness.NewGate(readiness.NewRedisProbe(redisClient), readiness.Config{
		BaseDelay:   cfg.ReadinessBaseDelay,
		MaxAttempts: cfg.ReadinessMaxAttempts,
	}, log)
	gate.SetAttemptHook(collector.ReadinessAttempt)
	go gate.Verify(ctx)

	recorders := call.MultiRecorder{repo}
	if cfg.S3Bucket != "" {
		s3Client, err := archive.NewClient(ctx, archive.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			log.Errorf("s3 archive disabled: %v", err)
		} else {
			recorders = append(recorders, archive.NewRecorder(s3Client, log))
		}
	}

	hub := websocket.NewHub()
	roomStore := signaling.NewRoomStore(redisClient)

	registry := call.NewRegistry(call.Deps{
		Gate:      gate,
		Transport: signaling.NewRedisTransport(roomStore, log),
		Signaler:  signaling.NewPublisher(redisClient),
		Recorder:  recorders,
		Metrics:   collector,
		Notifier:  websocket.NewCallNotifier(hub),
		Log:       log,
	}, call.Config{ConnectTimeout: cfg.ConnectTimeout})

	subscriber := signaling.NewSubscriber(redisClient, registry, log)
	if err := subscriber.Start(ctx); err != nil {
		log.Errorf("start signaling subscriber: %v", err)
		os.Exit(1)
	}
	defer subscriber.Stop()

	verifier := identity.NewVerifier(cfg.JWTSecret)
	srv := server.New(cfg, log)
	srv.SetupRoutes(&server.Handlers{
		Call:      handler.NewCallHandler(registry, repo),
		Readiness: handler.NewReadinessHandler(gate),
		WS:        websocket.NewHandler(verifier, hub, registry),
	}, middleware.AuthMiddleware(verifier), gate)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorf("server error: %v", err)
		}
	case <-ctx.Done():
		log.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}
}
