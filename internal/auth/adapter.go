// Package auth defines the session adapter consumed by the auth
// middleware. The platform never couples to a concrete identity
// provider: anything that can sign in, sign out and report the current
// session can sit behind the Adapter interface.
package auth

import "context"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusLoading         Status = "loading"
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
)

// User identifies an authenticated caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Session is an authenticated session.
type Session struct {
	Token     string `json:"token"`
	User      User   `json:"user"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // unix seconds, zero means no expiry
}

// SessionState is a point-in-time snapshot of the adapter's session.
// User and Session are only set when Status is StatusAuthenticated.
type SessionState struct {
	Status  Status   `json:"status"`
	User    *User    `json:"user,omitempty"`
	Session *Session `json:"session,omitempty"`
}

// Authenticated reports whether the snapshot carries a live session.
func (s SessionState) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Options carries sign-in credentials. Providers read the fields they
// understand and ignore the rest.
type Options struct {
	Token    string `json:"token,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Adapter is the provider contract. Implementations must be safe for
// concurrent use.
type Adapter interface {
	// SignIn establishes a session from credentials.
	SignIn(ctx context.Context, opts Options) (Session, error)

	// SignOut tears down the current session. Signing out while
	// unauthenticated is not an error.
	SignOut(ctx context.Context) error

	// GetSession returns the current session snapshot.
	GetSession(ctx context.Context) SessionState

	// OnAuthStateChange registers fn to run on every state transition.
	// The returned function unsubscribes.
	OnAuthStateChange(fn func(SessionState)) (unsubscribe func())
}
