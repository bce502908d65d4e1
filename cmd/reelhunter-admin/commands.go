package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	redisadapter "github.com/reelapps/reelhunter/internal/adapters/redis"
	"github.com/reelapps/reelhunter/internal/bootstrap"
	"github.com/reelapps/reelhunter/internal/data"
	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/migrate"
	"github.com/reelapps/reelhunter/internal/sso"
)

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

type timeoutOptions struct {
	Timeout time.Duration
}

func parseTimeoutFlags(name string, args []string, def time.Duration) (timeoutOptions, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := timeoutOptions{Timeout: def}
	fs.DurationVar(&opts.Timeout, "timeout", def, "Maximum duration to wait for the command to complete")

	if err := fs.Parse(args); err != nil {
		return timeoutOptions{}, nil, err
	}
	if opts.Timeout <= 0 {
		return timeoutOptions{}, nil, errors.New("--timeout must be greater than zero")
	}
	return opts, fs.Args(), nil
}

// singleArg expects exactly one positional argument.
func singleArg(args []string, what string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("expected exactly one %s argument", what)
	}
	return args[0], nil
}

func (cmdCtx *commandContext) withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, _, err := parseTimeoutFlags("migrate", args, defaultMigrationTimeout)
	if err != nil {
		return err
	}
	ctx, cancel := cmdCtx.withTimeout(opts.Timeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	cmdCtx.Logger.Info("running database migrations")
	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}
	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func runStatus(cmdCtx *commandContext, args []string) error {
	opts, _, err := parseTimeoutFlags("status", args, defaultCommandTimeout)
	if err != nil {
		return err
	}
	ctx, cancel := cmdCtx.withTimeout(opts.Timeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	migrations, err := migrate.Status(ctx, db)
	if err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	if err := printMigrationStatus(cmdCtx.Out, migrations); err != nil {
		return err
	}

	redisState := "ok"
	client, err := connectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	switch {
	case errors.Is(err, errRedisNotConfigured):
		redisState = "not configured"
	case err != nil:
		redisState = "unavailable: " + err.Error()
	default:
		closeRedis(cmdCtx.Logger, client)
	}
	return writef(cmdCtx.Out, "\npostgres: ok\nredis:    %s\n", redisState)
}

func printMigrationStatus(w io.Writer, migrations []migrate.Migration) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "VERSION\tAPPLIED\n"); err != nil {
		return err
	}
	pending := 0
	for _, m := range migrations {
		applied := "yes"
		if !m.Applied {
			applied = "no"
			pending++
		}
		if err := writef(tw, "%s\t%s\n", m.Version, applied); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "%d migrations, %d pending\n", len(migrations), pending)
}

// roleUpdater is satisfied by data.ProfileRepo.
type roleUpdater interface {
	UpdateRole(ctx context.Context, id string, role domainauth.Role) (*domainauth.Profile, error)
}

func runPromote(cmdCtx *commandContext, args []string) error {
	opts, rest, err := parseTimeoutFlags("promote", args, defaultCommandTimeout)
	if err != nil {
		return err
	}
	userID, err := singleArg(rest, "user-id")
	if err != nil {
		return err
	}
	ctx, cancel := cmdCtx.withTimeout(opts.Timeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx.Logger, db)

	return promoteUser(ctx, data.NewProfileRepo(db), userID, cmdCtx.Out)
}

func promoteUser(ctx context.Context, repo roleUpdater, userID string, w io.Writer) error {
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	profile, err := repo.UpdateRole(ctx, userID, domainauth.RoleRecruiter)
	if err != nil {
		return fmt.Errorf("promote %s: %w", userID, err)
	}
	return writef(w, "%s (%s) is now a %s\n", profile.ID, profile.Email, profile.Role)
}

func runInspectToken(cmdCtx *commandContext, args []string) error {
	raw, err := singleArg(args, "jwt")
	if err != nil {
		return err
	}
	return inspectToken(cmdCtx.Out, raw, time.Now())
}

// inspectToken prints claims without verifying the signature.
func inspectToken(w io.Writer, raw string, now time.Time) error {
	claims, err := sso.PeekClaims(raw)
	if err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	if err := printClaims(w, claims); err != nil {
		return err
	}

	exp, err := sso.Expiry(raw)
	if err != nil {
		return writef(w, "\nexpiry:   none\nlive:     %t\n", sso.ValidToken(raw, now))
	}
	remaining := exp.Sub(now).Round(time.Second)
	return writef(w, "\nexpiry:   %s (%s)\nlive:     %t\n",
		exp.UTC().Format(time.RFC3339), remaining, sso.ValidToken(raw, now))
}

func printClaims(w io.Writer, claims jwt.MapClaims) error {
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		value, err := json.Marshal(claims[k])
		if err != nil {
			return fmt.Errorf("encode claim %s: %w", k, err)
		}
		if err := writef(tw, "%s\t%s\n", k, value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// sessionPurger is satisfied by the Redis session store.
type sessionPurger interface {
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

func runPurgeSession(cmdCtx *commandContext, args []string) error {
	opts, rest, err := parseTimeoutFlags("purge-session", args, defaultCommandTimeout)
	if err != nil {
		return err
	}
	id, err := singleArg(rest, "session id")
	if err != nil {
		return err
	}
	ctx, cancel := cmdCtx.withTimeout(opts.Timeout)
	defer cancel()

	client, err := connectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		return err
	}
	defer closeRedis(cmdCtx.Logger, client)

	store := redisadapter.NewSessionStoreWithPrefix(client, cmdCtx.Config.Redis.KeyPrefix+bootstrap.SessionKeySuffix)
	return purgeSession(ctx, store, id, cmdCtx.Out)
}

func purgeSession(ctx context.Context, store sessionPurger, id string, w io.Writer) error {
	exists, err := store.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("look up session %s: %w", id, err)
	}
	if !exists {
		return writef(w, "session %s not found\n", id)
	}
	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return writef(w, "session %s purged\n", id)
}
