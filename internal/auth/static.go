package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/zjrosen/dispatch/internal/pubsub"
)

// Sign-in errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoToken      = errors.New("token is required")
)

// StaticAdapter authenticates against a fixed token table, typically
// loaded from config. It is the offline provider used by the CLI and
// by tests.
type StaticAdapter struct {
	mu      sync.RWMutex
	tokens  map[string]User // token -> user
	current *Session

	listeners map[int]func(SessionState)
	nextID    int

	broker *pubsub.Broker[SessionState]
}

// NewStaticAdapter builds an adapter over the token table. broker may
// be nil when no one needs the event stream.
func NewStaticAdapter(tokens map[string]User, broker *pubsub.Broker[SessionState]) *StaticAdapter {
	return &StaticAdapter{
		tokens:    tokens,
		listeners: make(map[int]func(SessionState)),
		broker:    broker,
	}
}

// SignIn validates opts.Token against the table.
func (a *StaticAdapter) SignIn(ctx context.Context, opts Options) (Session, error) {
	if opts.Token == "" {
		return Session{}, ErrNoToken
	}

	a.mu.Lock()
	user, ok := a.tokens[opts.Token]
	if !ok {
		a.mu.Unlock()
		return Session{}, ErrInvalidToken
	}
	session := Session{Token: opts.Token, User: user}
	a.current = &session
	state := a.stateLocked()
	a.mu.Unlock()

	a.notify(state)
	return session, nil
}

// SignOut clears the current session.
func (a *StaticAdapter) SignOut(ctx context.Context) error {
	a.mu.Lock()
	wasAuthenticated := a.current != nil
	a.current = nil
	state := a.stateLocked()
	a.mu.Unlock()

	if wasAuthenticated {
		a.notify(state)
	}
	return nil
}

// GetSession returns the current snapshot. A static adapter is never
// in the loading state.
func (a *StaticAdapter) GetSession(ctx context.Context) SessionState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stateLocked()
}

// OnAuthStateChange registers fn for state transitions.
func (a *StaticAdapter) OnAuthStateChange(fn func(SessionState)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *StaticAdapter) stateLocked() SessionState {
	if a.current == nil {
		return SessionState{Status: StatusUnauthenticated}
	}
	session := *a.current
	user := session.User
	return SessionState{
		Status:  StatusAuthenticated,
		User:    &user,
		Session: &session,
	}
}

func (a *StaticAdapter) notify(state SessionState) {
	a.mu.RLock()
	fns := make([]func(SessionState), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
	if a.broker != nil {
		eventType := pubsub.UpdatedEvent
		if state.Status == StatusUnauthenticated {
			eventType = pubsub.DeletedEvent
		}
		a.broker.Publish(eventType, state)
	}
}
