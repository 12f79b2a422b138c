// Package identity defines the contract of the external identity provider: the
// session it issues, the change notifications it emits and the operations a
// client may request from it.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials   = errors.New("invalid login credentials")
	ErrEmailNotConfirmed    = errors.New("email not confirmed")
	ErrUserBlocked          = errors.New("user is blocked")
	ErrUserAlreadyExists    = errors.New("user already registered")
	ErrUnknownOAuthProvider = errors.New("unknown oauth provider")
	ErrInvalidOAuthState    = errors.New("invalid oauth state")
	ErrWeakPassword         = errors.New("password does not meet strength requirements")
)

// EventType names the reason a change notification was emitted.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Identity is the authenticated subject of a session.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Session is issued by the identity provider. A session is never mutated once
// issued; every change produces a new value.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// SubjectID returns the unique subject identifier of the session's user.
func (s *Session) SubjectID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// Email returns the email of the session's user.
func (s *Session) Email() string {
	if s == nil {
		return ""
	}
	return s.User.Email
}

// Same reports whether both sessions carry the same access token.
func (s *Session) Same(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.AccessToken == other.AccessToken
}

// ChangeHandler receives every change notification. session is nil when signed out.
type ChangeHandler func(event EventType, session *Session)

// Provider is the client side of the identity provider. Notifications for one
// Provider are delivered in the order the provider emits them.
type Provider interface {
	// Subscribe registers handler. The handler receives EventInitialSession with
	// the current session (or nil) first, then every later change.
	Subscribe(handler ChangeHandler) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Identity, error)
	// SignInWithOAuth returns the URL the user agent must visit to authenticate
	// with provider. redirectTo is where the flow lands once completed.
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (authURL string, err error)
	SignOut(ctx context.Context) error
}

// OAuthCompleter is implemented by providers that finish OAuth flows locally.
type OAuthCompleter interface {
	CompleteOAuth(ctx context.Context, state, code string) (session *Session, redirectTo string, err error)
}
