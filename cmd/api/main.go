package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/event-rsvp/internal/adapters/crdb"
	"github.com/robertarktes/event-rsvp/internal/adapters/memory"
	mongoadapter "github.com/robertarktes/event-rsvp/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/event-rsvp/internal/adapters/redis"
	"github.com/robertarktes/event-rsvp/internal/audit"
	"github.com/robertarktes/event-rsvp/internal/config"
	"github.com/robertarktes/event-rsvp/internal/form"
	httphandler "github.com/robertarktes/event-rsvp/internal/http"
	"github.com/robertarktes/event-rsvp/internal/observability"
	"github.com/robertarktes/event-rsvp/internal/rateLimit"
	"github.com/robertarktes/event-rsvp/internal/registry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.RequireRegistry(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "rsvp-web")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger(cfg.LogLevel)

	signingKey, err := cfg.SigningKeyBytes()
	if err != nil {
		log.Fatalf("invalid signing key: %v", err)
	}
	client, err := registry.NewClient(registry.Options{
		ServiceAddress: cfg.ContractID,
		SigningKey:     signingKey,
		Endpoint:       cfg.Endpoint,
		CallOptions:    registry.CallOptions{GasPrice: cfg.GasPrice},
	}, logger)
	if err != nil {
		log.Fatalf("failed to create registry client: %v", err)
	}

	checks := map[string]httphandler.Check{}

	var (
		store  form.Store
		locker form.Locker
		rl     httphandler.Limiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		cache := redisadapter.NewCache(redisClient)
		store = redisadapter.NewSessionStore(redisClient, cfg.SessionTTL)
		locker = cache
		rl = rateLimit.NewRateLimiter(cache, 30, time.Minute)
		checks["redis"] = cache.Ping
	} else {
		logger.Warn("REDIS_ADDR not set, sessions are kept in memory")
		store = memory.NewSessionStore()
		locker = memory.NewLocker()
	}

	var recorders audit.Multi
	if cfg.CRDBDSN != "" {
		pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pool.Close()
		repo := crdb.NewRepository(pool)
		if err := repo.Migrate(context.Background()); err != nil {
			log.Fatalf("failed to migrate crdb: %v", err)
		}
		recorders = append(recorders, repo)
		checks["crdb"] = repo.Ping
	}
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		recorders = append(recorders, mongoadapter.NewAuditLogger(mongoClient.Database("rsvp"), logger))
		checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}
	var recorder audit.Recorder = audit.Nop{}
	if len(recorders) > 0 {
		recorder = recorders
	}

	ctrl := form.NewController(client, store, locker, recorder, logger, cfg.PendingTTL)
	handlers := httphandler.NewHandlers(ctrl, logger, checks)
	r := httphandler.SetupRouter(handlers, logger, rl, cfg.SessionTTL)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
