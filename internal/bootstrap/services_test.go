package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelapps/reelhunter/config"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{name: "no services enabled", want: 0},
		{name: "http only", modes: []config.ServiceMode{config.ServiceModeHTTP}, want: 1},
		{name: "sweeper only", modes: []config.ServiceMode{config.ServiceModeSessionSweeper}, want: 1},
		{
			name:  "all services enabled",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeSessionSweeper},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
			if got := errorChannelBufferSize(enabled); got != tt.want+1 {
				t.Fatalf("errorChannelBufferSize(%v) = %d, want %d", tt.modes, got, tt.want+1)
			}
		})
	}
}

func testDeps(ctx context.Context, enabled ...config.ServiceMode) *serviceStartupDeps {
	modes := make(map[config.ServiceMode]bool, len(enabled))
	for _, m := range enabled {
		modes[m] = true
	}
	return &serviceStartupDeps{
		ctx:             ctx,
		cfg:             &ServiceOrchestrationConfig{Config: &config.AppConfig{}},
		logger:          slog.New(slog.DiscardHandler),
		enabledServices: modes,
		errCh:           make(chan error, errorChannelBufferSize(modes)),
	}
}

func TestLaunchBackground_PropagatesError(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(ctx, config.ServiceModeSessionSweeper)
	boom := errors.New("boom")

	done := launchBackground(ctx, deps, backgroundService{
		mode:  config.ServiceModeSessionSweeper,
		name:  "session sweeper",
		start: func(context.Context) error { return boom },
	})
	require.NotNil(t, done)
	<-done

	select {
	case err := <-deps.errCh:
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "session sweeper failed")
	default:
		t.Fatal("expected error on channel")
	}
}

func TestLaunchBackground_SkipsDisabledMode(t *testing.T) {
	deps := testDeps(context.Background(), config.ServiceModeHTTP)
	done := launchBackground(context.Background(), deps, backgroundService{
		mode:  config.ServiceModeSessionSweeper,
		name:  "session sweeper",
		start: func(context.Context) error { t.Fatal("should not start"); return nil },
	})
	assert.Nil(t, done)
}

func TestSessionSweeperBackgroundService_NoSweeper(t *testing.T) {
	deps := testDeps(context.Background(), config.ServiceModeSessionSweeper)
	handles := startBackgroundServices(deps, buildBackgroundServices(deps))
	require.Len(t, handles, 1)
	assert.Equal(t, "session sweeper", handles[0].name)

	select {
	case <-handles[0].done:
	case <-time.After(time.Second):
		t.Fatal("background service without a sweeper should return immediately")
	}
}

func TestWaitForShutdown_ServiceError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	boom := errors.New("sweeper failed")
	errCh <- boom

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()

	err := waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		logger:      slog.New(slog.DiscardHandler),
		backgrounds: []backgroundServiceHandle{{name: "session sweeper", done: done}},
		signals:     make(chan os.Signal),
	})
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWaitForShutdown_Signal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	sig <- os.Interrupt

	err := waitForShutdown(shutdownConfig{
		cancel:  cancel,
		errCh:   make(chan error),
		logger:  slog.New(slog.DiscardHandler),
		signals: sig,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWaitForService_Timeout(t *testing.T) {
	start := time.Now()
	waitForService(make(chan struct{}), "stuck", slog.New(slog.DiscardHandler), 20*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	waitForService(nil, "absent", slog.New(slog.DiscardHandler), time.Hour)
}

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "http,scheduler"}))
	require.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "http"}))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "nope"}))
	assert.Equal(t,
		[]string{"http", "session-sweeper"},
		GetEnabledServices(&config.AppConfig{Services: " session-sweeper , http "}),
	)
}

func TestNewServices_RequiresConfig(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)
	_, err = NewServices(&ServiceDeps{})
	require.Error(t, err)
}

func TestNewServices_WithoutDatabaseOrRedis(t *testing.T) {
	cfg := &config.AppConfig{
		Services: "http,session-sweeper",
		Supabase: config.SupabaseConfig{URL: "https://project.supabase.co", AnonKey: "anon"},
		Session: config.SessionConfig{
			CookieName:    "reelhunter_sid",
			TTL:           time.Hour,
			SweepInterval: time.Minute,
			MaxIdle:       time.Hour,
		},
		HTTP: config.HTTPConfig{BaseURL: "https://hunter.reelapps.co.za"},
	}

	container, err := NewServices(&ServiceDeps{Config: cfg, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.Registry)
	assert.NotNil(t, container.Policy)
	assert.NotNil(t, container.Sweeper)
	assert.NotNil(t, container.Metrics)
	assert.Nil(t, container.Recruiter)
	assert.Nil(t, container.Cache)

	rs := buildRouterServices(cfg, container, slog.New(slog.DiscardHandler))
	assert.Empty(t, rs.Ready)
	assert.Equal(t, "reelhunter_sid", rs.Cookie.Name)
	assert.Equal(t, "https://hunter.reelapps.co.za", rs.Origin)
}
