package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/reelapps/reelhunter/config"
	"github.com/reelapps/reelhunter/internal/adapters/oidc"
	redisadapter "github.com/reelapps/reelhunter/internal/adapters/redis"
	"github.com/reelapps/reelhunter/internal/adapters/supabase"
	"github.com/reelapps/reelhunter/internal/data"
	"github.com/reelapps/reelhunter/internal/ports"
	"github.com/reelapps/reelhunter/internal/session"
	"github.com/reelapps/reelhunter/internal/sso"
)

// SessionKeySuffix is appended to the Redis key prefix for persisted browser sessions.
const SessionKeySuffix = "session:"

// AuthConfig contains configuration for the session registry.
type AuthConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildSSOPolicy maps the SSO settings onto the sso package.
func BuildSSOPolicy(cfg config.SSOConfig, logger *slog.Logger) *sso.Policy {
	return sso.NewPolicy(sso.PolicyOptions{
		Config: sso.Config{
			MainDomain:        cfg.MainDomain,
			CookieDomain:      cfg.CookieDomain,
			AuthCookieName:    cfg.AuthCookieName,
			RefreshCookieName: cfg.RefreshCookieName,
			AuthDomain:        cfg.AuthDomain,
			CurrentDomain:     cfg.AppDomain,
			AccessCookieTTL:   cfg.AccessCookieTTL,
			RefreshCookieTTL:  cfg.RefreshCookieTTL,
		},
		Logger: logger,
	})
}

// BuildVerifier returns nil when signature verification is not configured.
//
//nolint:ireturn // callers only need the port.
func BuildVerifier(cfg config.TokenConfig) (ports.TokenVerifier, error) {
	if !cfg.VerificationEnabled() {
		return nil, nil
	}
	v, err := oidc.NewVerifier(oidc.VerifierConfig{
		Issuer:   cfg.Issuer,
		JWKSURL:  cfg.JWKSURL,
		Audience: cfg.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("build token verifier: %w", err)
	}
	return v, nil
}

// BuildSessionFactory wires per-session collaborators. Every browser session gets its own
// auth client; profiles come from the REST API or, for the postgres backend, a shared repo.
func BuildSessionFactory(client *supabase.Client, backend config.ProfileBackend, db *sql.DB) (session.Factory, error) {
	if client == nil {
		return nil, errors.New("supabase client is required")
	}
	var shared ports.ProfileStore
	if backend == config.ProfileBackendPostgres {
		if db == nil {
			return nil, errors.New("postgres profile backend requires a database")
		}
		shared = data.NewProfileRepo(db)
	}

	return func() (session.Deps, error) {
		auth := client.NewAuth()
		profiles := shared
		if profiles == nil {
			profiles = client.NewProfiles(auth)
		}
		return session.Deps{
			Backend:   auth,
			Profiles:  profiles,
			Functions: client.NewFunctions(auth),
		}, nil
	}, nil
}

// BuildSessionRegistry creates the browser-session registry. Sessions are persisted to Redis
// when a client is configured.
func BuildSessionRegistry(cfg AuthConfig) (*session.Registry, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	appCfg := cfg.Config
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := supabase.NewClient(supabase.Config{
		URL:     appCfg.Supabase.URL,
		AnonKey: appCfg.Supabase.AnonKey,
		Timeout: appCfg.Supabase.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build supabase client: %w", err)
	}

	factory, err := BuildSessionFactory(client, appCfg.ProfileBackend, cfg.DB)
	if err != nil {
		return nil, err
	}

	verifier, err := BuildVerifier(appCfg.Tokens)
	if err != nil {
		return nil, err
	}
	if verifier == nil {
		logger.Warn("token signature verification disabled; adopted tokens are only checked for expiry")
	}

	opts := session.RegistryOptions{
		Factory:       factory,
		Verifier:      verifier,
		Origin:        appCfg.HTTP.BaseURL,
		TTL:           appCfg.Session.TTL,
		SettleDelay:   appCfg.Session.SettleDelay,
		WatchInterval: appCfg.Session.WatchInterval,
		Logger:        logger,
	}
	if cfg.RedisClient != nil {
		opts.Store = redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, appCfg.Redis.KeyPrefix+SessionKeySuffix)
	} else {
		logger.Warn("session persistence disabled: redis client not configured")
	}

	return session.NewRegistry(opts)
}
