package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/config"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Store.Backend = "memory"
	return cfg
}

func TestBuildApp_RegistersAllCommandSets(t *testing.T) {
	a, err := buildApp(testConfig())
	require.NoError(t, err)
	defer a.Close(context.Background()) //nolint:errcheck

	names := a.client.Names()
	for _, want := range []string{
		"todo-create",
		"todo-list",
		"auth-sign-in",
		"auth-status",
		"batch-execute",
		"pipeline-execute",
		"registry-help",
		"registry-schema",
		"registry-docs",
	} {
		require.Contains(t, names, want)
	}
}

func TestBuildApp_CallRunsThroughPipeline(t *testing.T) {
	a, err := buildApp(testConfig())
	require.NoError(t, err)
	defer a.Close(context.Background()) //nolint:errcheck

	result := a.client.Call(context.Background(), "todo-create", map[string]any{
		"title": "write release notes",
	})
	require.True(t, result.Success, "error: %+v", result.Error)
	require.NotNil(t, result.Metadata)
	require.NotEmpty(t, result.Metadata.TraceID)
}

func TestBuildApp_AuthGatesProtectedCommands(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Tokens = map[string]config.AuthUser{
		"tok-1": {ID: "usr-1", Email: "dev@example.com", Name: "Dev"},
	}

	a, err := buildApp(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background()) //nolint:errcheck

	ctx := context.Background()

	result := a.client.Call(ctx, "todo-list", nil)
	require.False(t, result.Success)
	require.Equal(t, command.CodeUnauthorized, result.Error.Code)

	// Discovery stays open without a session.
	result = a.client.Call(ctx, "registry-help", nil)
	require.True(t, result.Success)

	result = a.client.Call(ctx, "auth-sign-in", map[string]any{"token": "tok-1"})
	require.True(t, result.Success, "error: %+v", result.Error)

	result = a.client.Call(ctx, "todo-list", nil)
	require.True(t, result.Success, "error: %+v", result.Error)
}

func TestBuildApp_ReadCommandIsIdempotent(t *testing.T) {
	a, err := buildApp(testConfig())
	require.NoError(t, err)
	defer a.Close(context.Background()) //nolint:errcheck

	ctx := context.Background()
	a.client.Call(ctx, "todo-create", map[string]any{"title": "one"})

	first := a.client.Call(ctx, "todo-stats", nil)
	second := a.client.Call(ctx, "todo-stats", nil)
	require.True(t, first.Success)
	require.Equal(t, first.Data, second.Data)
}

func TestBuildApp_TelemetryReachesSubscribers(t *testing.T) {
	a, err := buildApp(testConfig())
	require.NoError(t, err)
	defer a.Close(context.Background()) //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := a.events.Subscribe(ctx)

	result := a.client.Call(ctx, "todo-create", map[string]any{"title": "one"})
	require.True(t, result.Success, "error: %+v", result.Error)

	select {
	case ev := <-events:
		require.Equal(t, "todo-create", ev.Payload.Command)
		require.True(t, ev.Payload.Success)
	default:
		t.Fatal("no execution event published")
	}
}

func TestBuildApp_SessionChangesReachSubscribers(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Tokens = map[string]config.AuthUser{
		"tok-1": {ID: "usr-1"},
	}

	a, err := buildApp(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background()) //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions := a.sessions.Subscribe(ctx)

	result := a.client.Call(ctx, "auth-sign-in", map[string]any{"token": "tok-1"})
	require.True(t, result.Success, "error: %+v", result.Error)

	select {
	case ev := <-sessions:
		require.True(t, ev.Payload.Authenticated())
		require.Equal(t, "usr-1", ev.Payload.User.ID)
	default:
		t.Fatal("no session event published")
	}
}

func TestBuildApp_SQLiteStore(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "todos.db")

	a, err := buildApp(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background()) //nolint:errcheck

	result := a.client.Call(context.Background(), "todo-create", map[string]any{
		"title": "persisted",
	})
	require.True(t, result.Success, "error: %+v", result.Error)
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := newStore(config.StoreConfig{Backend: "redis"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis")
}

func TestBuildApp_Close(t *testing.T) {
	a, err := buildApp(testConfig())
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))
}
