package local

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/identity/flowstate"
	"github.com/jrsteele09/go-storefront/internal/notify"
)

const maxRefreshRetries = 3

type change struct {
	event   identity.EventType
	session *identity.Session
}

// Client is one application instance's connection to the directory. It holds
// at most one session and notifies subscribers of every change to it.
type Client struct {
	dir *Directory
	hub *notify.Hub[change]

	mu      sync.Mutex
	session *identity.Session
	refresh *time.Timer
	closed  bool
}

var (
	_ identity.Provider       = (*Client)(nil)
	_ identity.OAuthCompleter = (*Client)(nil)
)

func newClient(dir *Directory) *Client {
	return &Client{
		dir: dir,
		hub: notify.NewHub[change](),
	}
}

// Subscribe delivers EventInitialSession with the current session, then every
// later change, on the client's dispatch goroutine.
func (c *Client) Subscribe(handler identity.ChangeHandler) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hub.SubscribeWith(func(ch change) {
		handler(ch.event, ch.session)
	}, change{event: identity.EventInitialSession, session: c.session})
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session() *identity.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := c.dir.authenticate(email, password)
	if err != nil {
		return nil, err
	}
	session, err := c.dir.issue(user)
	if err != nil {
		return nil, err
	}
	c.setSession(identity.EventSignedIn, session)
	return session, nil
}

// SignUp stores a new account. It does not sign the client in.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*identity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := c.dir.register(ctx, email, password, metadata)
	if err != nil {
		return nil, err
	}
	return &identity.Identity{ID: user.ID, Email: user.Email, Metadata: user.Metadata}, nil
}

func (c *Client) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	provider = strings.ToLower(provider)
	connector, ok := c.dir.connectors[provider]
	if !ok {
		return "", identity.ErrUnknownOAuthProvider
	}

	state := uuid.NewString()
	nonce := uuid.NewString()
	err := c.dir.flows.Upsert(state, &flowstate.FlowState{
		Provider:   provider,
		Nonce:      nonce,
		RedirectTo: redirectTo,
		CreatedAt:  c.dir.nowTime(),
	})
	if err != nil {
		return "", fmt.Errorf("[Client SignInWithOAuth] failed to store flow state: %w", err)
	}
	return connector.AuthCodeURL(state, nonce), nil
}

// CompleteOAuth finishes a flow started by SignInWithOAuth on any client of the directory.
func (c *Client) CompleteOAuth(ctx context.Context, state, code string) (*identity.Session, string, error) {
	flow, err := c.dir.flows.Take(state)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", identity.ErrInvalidOAuthState, err)
	}
	connector, ok := c.dir.connectors[flow.Provider]
	if !ok {
		return nil, "", identity.ErrUnknownOAuthProvider
	}

	ext, err := connector.Exchange(ctx, code, flow.Nonce)
	if err != nil {
		return nil, "", fmt.Errorf("[Client CompleteOAuth] %w", err)
	}
	user, err := c.dir.oauthUser(ctx, ext)
	if err != nil {
		return nil, "", err
	}
	session, err := c.dir.issue(user)
	if err != nil {
		return nil, "", err
	}
	c.setSession(identity.EventSignedIn, session)
	return session, flow.RedirectTo, nil
}

// SignOut ends the session. Subscribers receive EventSignedOut with a nil session.
func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.setSession(identity.EventSignedOut, nil)
	return nil
}

// Close stops token refreshing and notification delivery.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopRefreshLocked()
	c.mu.Unlock()
	c.hub.Close()
}

func (c *Client) setSession(event identity.EventType, session *identity.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.session = session
	c.stopRefreshLocked()
	if session != nil && c.dir.refreshInterval > 0 {
		c.scheduleRefreshLocked(session)
	}
	c.hub.Publish(change{event: event, session: session})
}

func (c *Client) scheduleRefreshLocked(current *identity.Session) {
	c.refresh = time.AfterFunc(c.dir.refreshInterval, func() {
		c.refreshSession(current, 0)
	})
}

func (c *Client) stopRefreshLocked() {
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
}

// refreshSession re-issues the token of current if it is still the client's
// session. A failed re-issue is retried with backoff; after maxRefreshRetries
// failed retries the client signs out.
func (c *Client) refreshSession(current *identity.Session, attempt int) {
	user, err := c.dir.users.GetByID(current.User.ID)
	if err != nil || user.Blocked {
		c.dir.logger.Warn().Err(err).Str("subject", current.User.ID).Msg("token refresh refused, signing out")
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || c.session != current {
			return
		}
		c.signOutLocked()
		return
	}

	next, err := c.dir.issue(user)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.session != current {
		return
	}

	if err != nil {
		if attempt >= maxRefreshRetries {
			c.dir.logger.Error().Err(err).Str("subject", current.User.ID).Int("attempts", attempt+1).Msg("token refresh failed, signing out")
			c.signOutLocked()
			return
		}
		delay := refreshRetryDelay(c.dir.refreshInterval, attempt)
		c.dir.logger.Warn().Err(err).Str("subject", current.User.ID).Dur("retry_in", delay).Msg("token refresh failed")
		c.refresh = time.AfterFunc(delay, func() {
			c.refreshSession(current, attempt+1)
		})
		return
	}

	c.session = next
	c.scheduleRefreshLocked(next)
	c.hub.Publish(change{event: identity.EventTokenRefreshed, session: next})
}

func (c *Client) signOutLocked() {
	c.session = nil
	c.stopRefreshLocked()
	c.hub.Publish(change{event: identity.EventSignedOut})
}

// refreshRetryDelay doubles from a quarter of the refresh interval and never
// exceeds the interval itself.
func refreshRetryDelay(interval time.Duration, attempt int) time.Duration {
	delay := max(interval/4, time.Millisecond)
	for range attempt {
		delay *= 2
		if delay >= interval {
			return interval
		}
	}
	return delay
}
