package auth_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/auth"
	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/middleware"
	"github.com/zjrosen/dispatch/internal/registry"
)

// authRegistry wires the session commands plus one protected command
// behind the auth middleware, the way the CLI assembles it.
func authRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	adapter := auth.NewStaticAdapter(map[string]auth.User{
		"tok-1": {ID: "usr-1", Email: "dev@example.com", Name: "Dev"},
	}, nil)

	reg := registry.New(registry.WithMiddleware(
		middleware.NewAuthMiddleware(middleware.AuthConfig{
			Adapter: adapter,
			Exclude: []string{"auth-sign-in", "auth-status"},
		}),
	))
	reg.MustRegister(auth.Commands(adapter)...)
	reg.MustRegister(
		command.NewDefinition("secret-read").
			Description("Requires a session").
			Schema(command.EmptySchema()).
			Handler(func(ctx context.Context, _ any, ec *command.ExecutionContext) command.Result {
				return command.Success(map[string]any{"userId": ec.User.ID})
			}).
			MustBuild(),
	)
	return reg
}

func exec(t *testing.T, reg *registry.Registry, name, args string) command.Result {
	t.Helper()
	var raw json.RawMessage
	if args != "" {
		raw = json.RawMessage(args)
	}
	return reg.Execute(context.Background(), name, raw, command.SurfaceCLI)
}

func TestSignIn_ThenProtectedCommandSucceeds(t *testing.T) {
	reg := authRegistry(t)

	// Pre-sign-in the protected command is rejected.
	res := exec(t, reg, "secret-read", "")
	require.False(t, res.Success)
	require.Equal(t, command.CodeUnauthorized, res.Error.Code)

	res = exec(t, reg, "auth-sign-in", `{"token": "tok-1"}`)
	require.True(t, res.Success)
	data := res.Data.(map[string]any)
	require.Equal(t, "authenticated", data["status"])

	// Same registry instance, now authenticated.
	res = exec(t, reg, "secret-read", "")
	require.True(t, res.Success)
	require.Equal(t, "usr-1", res.Data.(map[string]any)["userId"])
}

func TestSignIn_BadToken(t *testing.T) {
	reg := authRegistry(t)

	res := exec(t, reg, "auth-sign-in", `{"token": "wrong"}`)
	require.False(t, res.Success)
	require.Equal(t, command.CodeUnauthorized, res.Error.Code)
}

func TestSignOut_RevokesAccess(t *testing.T) {
	reg := authRegistry(t)

	require.True(t, exec(t, reg, "auth-sign-in", `{"token": "tok-1"}`).Success)
	require.True(t, exec(t, reg, "secret-read", "").Success)

	res := exec(t, reg, "auth-sign-out", "")
	require.True(t, res.Success)

	res = exec(t, reg, "secret-read", "")
	require.False(t, res.Success)
	require.Equal(t, command.CodeUnauthorized, res.Error.Code)
}

func TestStatus_ReflectsSession(t *testing.T) {
	reg := authRegistry(t)

	res := exec(t, reg, "auth-status", "")
	require.True(t, res.Success)
	state := res.Data.(auth.SessionState)
	require.Equal(t, auth.StatusUnauthenticated, state.Status)

	require.True(t, exec(t, reg, "auth-sign-in", `{"token": "tok-1"}`).Success)

	state = exec(t, reg, "auth-status", "").Data.(auth.SessionState)
	require.Equal(t, auth.StatusAuthenticated, state.Status)
	require.Equal(t, "usr-1", state.User.ID)
}
