package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/pubsub"
)

func testTokens() map[string]User {
	return map[string]User{
		"tok-alice": {ID: "u-1", Email: "alice@example.com", Name: "Alice"},
		"tok-bob":   {ID: "u-2", Email: "bob@example.com", Name: "Bob"},
	}
}

func TestStaticAdapter_SignIn(t *testing.T) {
	adapter := NewStaticAdapter(testTokens(), nil)
	ctx := context.Background()

	session, err := adapter.SignIn(ctx, Options{Token: "tok-alice"})
	require.NoError(t, err)
	require.Equal(t, "u-1", session.User.ID)

	state := adapter.GetSession(ctx)
	require.True(t, state.Authenticated())
	require.Equal(t, StatusAuthenticated, state.Status)
	require.Equal(t, "alice@example.com", state.User.Email)
}

func TestStaticAdapter_SignIn_Invalid(t *testing.T) {
	adapter := NewStaticAdapter(testTokens(), nil)
	ctx := context.Background()

	_, err := adapter.SignIn(ctx, Options{Token: "nope"})
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = adapter.SignIn(ctx, Options{})
	require.ErrorIs(t, err, ErrNoToken)

	require.False(t, adapter.GetSession(ctx).Authenticated())
}

func TestStaticAdapter_SignOut(t *testing.T) {
	adapter := NewStaticAdapter(testTokens(), nil)
	ctx := context.Background()

	_, err := adapter.SignIn(ctx, Options{Token: "tok-bob"})
	require.NoError(t, err)

	require.NoError(t, adapter.SignOut(ctx))
	state := adapter.GetSession(ctx)
	require.Equal(t, StatusUnauthenticated, state.Status)
	require.Nil(t, state.User)
	require.Nil(t, state.Session)

	// Idempotent.
	require.NoError(t, adapter.SignOut(ctx))
}

func TestStaticAdapter_OnAuthStateChange(t *testing.T) {
	adapter := NewStaticAdapter(testTokens(), nil)
	ctx := context.Background()

	var states []Status
	unsubscribe := adapter.OnAuthStateChange(func(s SessionState) {
		states = append(states, s.Status)
	})

	_, err := adapter.SignIn(ctx, Options{Token: "tok-alice"})
	require.NoError(t, err)
	require.NoError(t, adapter.SignOut(ctx))

	unsubscribe()
	_, err = adapter.SignIn(ctx, Options{Token: "tok-alice"})
	require.NoError(t, err)

	require.Equal(t, []Status{StatusAuthenticated, StatusUnauthenticated}, states)
}

func TestStaticAdapter_PublishesToBroker(t *testing.T) {
	broker := pubsub.NewBroker[SessionState]()
	defer broker.Close()

	adapter := NewStaticAdapter(testTokens(), broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	_, err := adapter.SignIn(ctx, Options{Token: "tok-alice"})
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, pubsub.UpdatedEvent, ev.Type)
		require.Equal(t, StatusAuthenticated, ev.Payload.Status)
	case <-time.After(time.Second):
		t.Fatal("expected auth event")
	}

	require.NoError(t, adapter.SignOut(ctx))
	select {
	case ev := <-events:
		require.Equal(t, pubsub.DeletedEvent, ev.Type)
		require.Equal(t, StatusUnauthenticated, ev.Payload.Status)
	case <-time.After(time.Second):
		t.Fatal("expected sign-out event")
	}
}
