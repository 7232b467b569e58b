package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/config"
	"forecast.kathykuohome.com/internal/httpapi"
	"forecast.kathykuohome.com/internal/obs"
	"forecast.kathykuohome.com/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("FORECAST_CONFIG"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// без секрета сервис не стартует
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Logging, cfg.Environment, "forecast-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)

	// Инициализация observability (регистрация метрик)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	codec, err := auth.NewCodec(cfg.JWTSecret, auth.WithTTL(cfg.Auth.TokenTTL), auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}

	store, err := pg.Open(cfg.Database)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer store.Close()

	users := auth.NewPGUserStore(store.DB())

	var svcOpts []auth.ServiceOption
	revocations, closeRevocations, err := openRevocations(cfg)
	if err != nil {
		logger.Fatal("revocation backend", zap.Error(err))
	}
	defer closeRevocations()
	if revocations != nil {
		svcOpts = append(svcOpts, auth.WithRevocations(revocations))
	}

	svc, err := auth.NewService(users, codec, cfg.Auth.AllowedDomain, svcOpts...)
	if err != nil {
		logger.Fatal("auth service", zap.Error(err))
	}

	api, err := httpapi.New(httpapi.Deps{
		Auth:        svc,
		Users:       users,
		Departments: store,
		Entries:     store,
		Annotations: store,
		Ready:       store,
		Cookies: httpapi.CookieConfig{
			Name:       cfg.Auth.CookieName,
			LegacyName: cfg.Auth.LegacyCookieName,
			Secure:     cfg.IsProduction(),
			MaxAge:     cfg.Auth.TokenTTL,
		},
		Logger:             logger,
		Version:            version,
		StaticDir:          cfg.Server.StaticDir,
		LoginRatePerMinute: cfg.Auth.LoginRatePerMin,
		LoginBurst:         cfg.Auth.LoginBurst,
		RevocationTimeout:  cfg.Session.RevocationTimeout,
	})
	if err != nil {
		logger.Fatal("http api", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	logger.Info("starting forecast-api",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
		zap.String("environment", cfg.Environment),
		zap.Bool("revocation", svc.RevocationEnabled()),
	)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}

// openRevocations returns nil when revocation is switched off.
func openRevocations(cfg *config.Config) (auth.Revocations, func(), error) {
	noop := func() {}
	if !cfg.Session.RevokeOnPasswordChange {
		return nil, noop, nil
	}
	switch cfg.Session.RevocationBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return auth.NewRedisRevocations(client, cfg.Redis.KeyPrefix, cfg.Auth.TokenTTL), func() { _ = client.Close() }, nil
	default:
		return auth.NewMemoryRevocations(cfg.Auth.TokenTTL), noop, nil
	}
}
