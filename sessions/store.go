// Package sessions holds the identity provider's current session for one
// application instance and fans its changes out to subscribers.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/internal/notify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultSignOutTimeout = 10 * time.Second

// Handler receives the current session, or nil when signed out.
type Handler func(session *identity.Session)

// Store is read/subscribe only. Every write goes through the identity provider.
type Store struct {
	provider       identity.Provider
	hub            *notify.Hub[*identity.Session]
	logger         zerolog.Logger
	signOutTimeout time.Duration
	signOuts       sync.WaitGroup

	mu          sync.Mutex
	current     *identity.Session
	initialised bool
	closed      bool
	unsubscribe func()
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithSignOutTimeout(timeout time.Duration) StoreOption {
	return func(s *Store) {
		s.signOutTimeout = timeout
	}
}

// NewStore subscribes to provider and starts tracking its session.
func NewStore(provider identity.Provider, options ...StoreOption) *Store {
	s := &Store{
		provider:       provider,
		hub:            notify.NewHub[*identity.Session](),
		logger:         log.Logger,
		signOutTimeout: defaultSignOutTimeout,
	}
	for _, opt := range options {
		opt(s)
	}

	unsubscribe := provider.Subscribe(s.onChange)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return s
}

func (s *Store) onChange(event identity.EventType, session *identity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.logger.Debug().Str("event", string(event)).Str("subject", session.SubjectID()).Msg("session changed")
	s.current = session
	s.initialised = true
	s.hub.Publish(session)
}

// Subscribe invokes handler with the current session as soon as the provider
// has reported one, then again on every change, until unsubscribed. Handlers
// run one at a time in notification order.
func (s *Store) Subscribe(handler Handler) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialised {
		return s.hub.SubscribeWith(handler, s.current)
	}
	return s.hub.Subscribe(handler)
}

// Current returns the latest session and whether the provider has reported yet.
func (s *Store) Current() (session *identity.Session, initialised bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.initialised
}

// SignOut asks the provider to end the session and returns immediately. The
// outcome arrives through Subscribe; a failed request is logged and leaves the
// current session in place.
func (s *Store) SignOut(ctx context.Context) {
	s.signOuts.Add(1)
	go func() {
		defer s.signOuts.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.signOutTimeout)
		defer cancel()
		if err := s.provider.SignOut(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("sign out request failed")
		}
	}()
}

// Close waits for pending sign-out requests and stops notifications.
func (s *Store) Close() {
	s.signOuts.Wait()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.hub.Close()
}
