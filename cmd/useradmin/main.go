// Command useradmin bootstraps and maintains dashboard accounts directly in
// the database. It is the only way to create the first admin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/config"
	"forecast.kathykuohome.com/internal/obs"
	"forecast.kathykuohome.com/internal/store/pg"
)

const usage = `usage: useradmin [flags] <command> [args]

commands:
  create <email> <name> <role>   create an account; password is read from FORECAST_NEW_PASSWORD
  set-password <email>           replace a password from FORECAST_NEW_PASSWORD and revoke sessions
  list                           print all accounts`

func main() {
	_ = godotenv.Load()

	var (
		dsn       = flag.String("dsn", firstNonEmpty(os.Getenv("FORECAST_DATABASE_DSN"), os.Getenv("DATABASE_URL")), "PostgreSQL DSN")
		domain    = flag.String("domain", firstNonEmpty(os.Getenv("FORECAST_ALLOWED_DOMAIN"), "kathykuohome.com"), "Allowed email domain")
		redisAddr = flag.String("redis", os.Getenv("FORECAST_REDIS_ADDR"), "Redis address holding session revocations (optional)")
		prefix    = flag.String("redis-prefix", firstNonEmpty(os.Getenv("FORECAST_REDIS_KEY_PREFIX"), "forecast:revoked:"), "Revocation key prefix")
		timeout   = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := obs.NewLogger(config.LoggingConfig{Level: "info"}, config.EnvDevelopment, "forecast-useradmin")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		logger.Fatal("missing DSN: provide via -dsn, FORECAST_DATABASE_DSN or DATABASE_URL")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := pg.Open(config.DatabaseConfig{DSN: *dsn, MaxOpenConns: 2})
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer store.Close()
	users := auth.NewPGUserStore(store.DB())

	args := flag.Args()[1:]
	switch cmd := flag.Arg(0); cmd {
	case "create":
		if len(args) != 3 {
			logger.Fatal("create needs <email> <name> <role>")
		}
		err = createUser(ctx, users, *domain, args[0], args[1], args[2], os.Getenv("FORECAST_NEW_PASSWORD"))
	case "set-password":
		if len(args) != 1 {
			logger.Fatal("set-password needs <email>")
		}
		var revocations auth.Revocations
		if *redisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: *redisAddr})
			defer client.Close()
			revocations = auth.NewRedisRevocations(client, *prefix, auth.DefaultTokenTTL)
		}
		err = setPassword(ctx, users, revocations, args[0], os.Getenv("FORECAST_NEW_PASSWORD"))
	case "list":
		err = listUsers(ctx, users, os.Stdout)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("useradmin failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
	logger.Info("done", zap.String("command", flag.Arg(0)))
}

func createUser(ctx context.Context, users auth.UserStore, domain, email, name, role, password string) error {
	if check := auth.ValidateEmail(email, domain); !check.Valid {
		return errors.New(check.Error)
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}
	r := auth.Role(strings.ToLower(strings.TrimSpace(role)))
	if !auth.IsValidRole(r) {
		return fmt.Errorf("invalid role %q", role)
	}
	if err := auth.ValidateNewPassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return users.Create(ctx, &auth.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         r,
		PasswordHash: hash,
	})
}

// setPassword leaves revocation to the caller: without a shared backend,
// sessions held by a running server expire on their own.
func setPassword(ctx context.Context, users auth.UserStore, revocations auth.Revocations, email, password string) error {
	if err := auth.ValidateNewPassword(password); err != nil {
		return err
	}
	u, err := users.FindByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	if revocations != nil {
		return revocations.MarkRevoked(ctx, u.ID, time.Now())
	}
	return nil
}

func listUsers(ctx context.Context, users auth.UserStore, out io.Writer) error {
	all, err := users.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tCREATED")
	for _, u := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role, u.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
