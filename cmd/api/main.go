package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"infiagentic.io/internal/auth"
	"infiagentic.io/internal/config"
	"infiagentic.io/internal/httpapi"
	"infiagentic.io/internal/obs"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	cfg, generatedSecret, err := config.Load()
	if err != nil {
		log.Error("load config", obs.Err(err))
		os.Exit(1)
	}
	if generatedSecret {
		log.Warn("using auto-generated secret key; set INFIAGENTIC_SECRET_KEY in production")
	}

	var db *sql.DB
	if cfg.DatabaseDSN != "" {
		db, err = sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			log.Error("open db", obs.Err(err))
			os.Exit(1)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var store auth.Store
	if db != nil {
		store = auth.NewPGStore(db)
	} else {
		log.Warn("no database configured; accounts are kept in process memory")
		store = auth.NewMemoryStore()
	}

	var revoked auth.RevocationStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn("revocation cache unreachable at startup, will keep retrying per request", obs.Err(err))
		}
		cancel()
		revoked = auth.NewRedisRevocationStore(client, log)
	} else {
		log.Warn("no revocation cache configured; revocations are process-local only")
		revoked = auth.NewMemoryRevocationStore(nil)
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.SecretKey), nil)
	if err != nil {
		log.Error("build token codec", obs.Err(err))
		os.Exit(1)
	}

	svc, err := auth.NewService(store, codec, revoked, log,
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Error("build auth service", obs.Err(err))
		os.Exit(1)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, cfg.Production(), svc)
	api.SetRateLimit(cfg.RateLimitPerMinute)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting infiagentic-api",
		slog.String("version", version),
		slog.String("addr", srv.Addr),
		slog.String("env", cfg.Env),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", obs.Err(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Info("stopped")
}
