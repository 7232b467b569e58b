package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"forecast.kathykuohome.com/internal/config"
	"forecast.kathykuohome.com/internal/migrate"
	"forecast.kathykuohome.com/internal/obs"
	"forecast.kathykuohome.com/internal/store/pg"
	"forecast.kathykuohome.com/ops/migrations"
)

func main() {
	_ = godotenv.Load()

	var (
		dsn     = flag.String("dsn", firstNonEmpty(os.Getenv("FORECAST_DATABASE_DSN"), os.Getenv("DATABASE_URL")), "PostgreSQL DSN")
		dir     = flag.String("dir", "", "Read migrations from this directory instead of the embedded set")
		timeout = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	logger, err := obs.NewLogger(config.LoggingConfig{Level: "info"}, config.EnvDevelopment, "forecast-migrate")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		logger.Fatal("missing DSN: provide via -dsn, FORECAST_DATABASE_DSN or DATABASE_URL")
	}
	if flag.NArg() == 0 {
		logger.Fatal("usage: migrate [up|down|seed|status]")
	}

	var files fs.FS = migrations.FS
	if *dir != "" {
		files = os.DirFS(*dir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := pg.Open(config.DatabaseConfig{DSN: *dsn, MaxOpenConns: 2})
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), files, migrations.MigrationsDir, migrations.SeedsDir, migrate.WithLogger(logger))

	switch cmd := flag.Arg(0); cmd {
	case "up":
		var ran []string
		ran, err = mgr.Up(ctx)
		if err == nil && len(ran) == 0 {
			logger.Info("schema is up to date")
		}
	case "down":
		_, err = mgr.Down(ctx)
		if errors.Is(err, migrate.ErrNothingToRollback) {
			logger.Info("nothing to roll back")
			err = nil
		}
	case "seed":
		_, err = mgr.Seed(ctx)
	case "status":
		var st migrate.Status
		st, err = mgr.Status(ctx)
		if err == nil {
			for _, name := range st.Applied {
				fmt.Println("applied ", name)
			}
			for _, name := range st.Pending {
				fmt.Println("pending ", name)
			}
		}
	default:
		logger.Fatal("unknown command", zap.String("command", cmd))
	}
	if err != nil {
		logger.Fatal("migrate failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
