package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/alerts"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/archive"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/cache"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/config"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/engine"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/hub"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/logger"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/middleware"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/movement"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/predictor"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/providers/oddsapi"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/ratelimit"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/snapshots"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.File)
	zlog.Logger = log
	log.Info().Str("port", cfg.Server.Port).Msg("starting line engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs the cache, snapshot logs, alert dedup and rate limiting.
	// Without it everything falls back to in-process state.
	redisClient, err := connectRedis(ctx, cfg.Redis.URL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, caching disabled")
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	}

	db, err := connectDB(ctx, cfg.Database.URL)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, arbitrage archive disabled")
	}
	if db != nil {
		defer db.Close()
	}

	alertHub := hub.NewHub(log)
	go alertHub.Run(ctx)

	var (
		cacheStore    cache.Store
		snapshotStore snapshots.Store
		dedup         alerts.Deduplicator
		limiter       ratelimit.Limiter
		pinger        handlers.Pinger
	)
	if redisClient != nil {
		cacheStore = cache.NewRedisStore(redisClient)
		snapshotStore = snapshots.NewRedisStore(redisClient, cfg.Cache.Namespace)
		dedup = alerts.NewRedisDeduplicator(redisClient, cfg.Alerts.DedupWindow)
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.Cache.Namespace, cfg.Server.RateLimitPerMinute, time.Minute)
		pinger = redisPinger{redisClient}
	} else {
		snapshotStore = snapshots.NewMemoryStore()
		dedup = alerts.NewMemoryDeduplicator(cfg.Alerts.DedupWindow)
		limiter = ratelimit.NewMemoryLimiter(cfg.Server.RateLimitPerMinute, time.Minute)
	}

	var arch archive.Writer = archive.NopWriter{}
	if db != nil {
		pg := archive.NewPostgresWriter(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("archive schema unavailable, arbitrage archive disabled")
		} else {
			arch = pg
			log.Info().Msg("arbitrage archive enabled")
		}
	}

	c := cache.New(cacheStore, cache.Options{
		Namespace:       cfg.Cache.Namespace,
		ProducerTimeout: cfg.Cache.ProducerTimeout,
		Logger:          log,
	})
	tracker := movement.NewTracker(snapshotStore, alerts.NewDispatcher(dedup, alertHub, log), log)
	pred := predictor.New(predictor.NeutralFeatures{}, tracker, c, log)
	provider := oddsapi.New(oddsapi.Options{
		APIKey:            cfg.OddsAPI.Key,
		BaseURL:           cfg.OddsAPI.BaseURL,
		Regions:           cfg.OddsAPI.Regions,
		Bookmakers:        cfg.OddsAPI.Bookmakers,
		RequestsPerSecond: cfg.OddsAPI.RequestsPerSecond,
		Timeout:           cfg.OddsAPI.Timeout,
		MaxAttempts:       cfg.OddsAPI.MaxAttempts,
		Logger:            log,
	})
	if cfg.OddsAPI.Key == "" {
		log.Warn().Msg("ODDS_API_KEY not set, odds and props requests will fail")
	}

	eng := engine.New(provider, c, tracker, pred, arch, engine.Options{
		Kelly:           cfg.Kelly.Options(),
		DefaultBankroll: cfg.Kelly.DefaultBankroll,
		Logger:          log,
	})
	handler := handlers.NewHandler(eng, alertHub, pinger, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handler.HealthCheck)
	r.Get("/ws/alerts", alertHub.ServeWS(ctx, hub.NewUpgrader(cfg.Server.CORSOrigins)))

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
		r.Use(middleware.RateLimit(limiter, log))
		r.Mount("/api/v1", handler.Routes())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("line engine listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}

	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
			if err := srv.Close(); err != nil {
				log.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	log.Info().Msg("shutdown complete")
}

// connectRedis returns nil without error when url is empty
func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 5 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 5 * time.Second
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = 2
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = 20
	}
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = 5
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// connectDB returns nil without error when dsn is empty
func connectDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
