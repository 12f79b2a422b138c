package authstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/internal/notify"
	"github.com/jrsteele09/go-storefront/profiles"
	"github.com/jrsteele09/go-storefront/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultProfileTimeout = 5 * time.Second

// SessionSource is the session store the machine follows.
type SessionSource interface {
	Subscribe(handler sessions.Handler) (unsubscribe func())
	SignOut(ctx context.Context)
}

type ProfileResolver interface {
	Resolve(ctx context.Context, subjectID string) (*profiles.Profile, error)
}

type resolution struct {
	generation uint64
	session    *identity.Session
	profile    *profiles.Profile
}

// Machine owns the auth state of one application instance. A single goroutine
// applies every transition. Each session notification starts a new generation;
// a profile resolution is applied only if no newer notification has arrived
// since it started, so a slow lookup can never pair an old profile with a newer
// session.
type Machine struct {
	source         SessionSource
	resolver       ProfileResolver
	logger         zerolog.Logger
	profileTimeout time.Duration

	notices chan *identity.Session
	results chan resolution
	done    chan struct{}
	loaded  chan struct{}
	wg      sync.WaitGroup

	mu          sync.RWMutex
	state       State
	hub         *notify.Hub[State]
	unsubscribe func()
	loadedOnce  sync.Once
	closeOnce   sync.Once
}

// MachineOption defines a function type to modify the Machine instance.
type MachineOption func(*Machine)

func WithLogger(logger zerolog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithProfileTimeout bounds each profile resolution. Zero disables the bound.
func WithProfileTimeout(timeout time.Duration) MachineOption {
	return func(m *Machine) {
		m.profileTimeout = timeout
	}
}

// NewMachine starts in Loading and subscribes to source.
func NewMachine(source SessionSource, resolver ProfileResolver, options ...MachineOption) *Machine {
	m := &Machine{
		source:         source,
		resolver:       resolver,
		logger:         log.Logger,
		profileTimeout: defaultProfileTimeout,
		notices:        make(chan *identity.Session),
		results:        make(chan resolution),
		done:           make(chan struct{}),
		loaded:         make(chan struct{}),
		state:          Loading(),
		hub:            notify.NewHub[State](),
	}
	for _, opt := range options {
		opt(m)
	}

	m.wg.Add(1)
	go m.run()

	unsubscribe := source.Subscribe(m.onSession)
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
	return m
}

func (m *Machine) onSession(session *identity.Session) {
	select {
	case m.notices <- session:
	case <-m.done:
	}
}

func (m *Machine) run() {
	defer m.wg.Done()

	var generation uint64
	cancel := context.CancelFunc(func() {})
	defer func() { cancel() }()

	for {
		select {
		case <-m.done:
			return

		case session := <-m.notices:
			generation++
			cancel()
			cancel = func() {}

			if session == nil {
				m.apply(SignedOut())
				continue
			}

			var ctx context.Context
			ctx, cancel = m.resolveContext()
			go m.resolve(ctx, generation, session)

		case res := <-m.results:
			if res.generation != generation {
				m.logger.Debug().
					Uint64("generation", res.generation).
					Uint64("current", generation).
					Msg("discarding superseded profile resolution")
				continue
			}
			cancel()
			cancel = func() {}
			m.apply(SignedIn(res.session, res.profile))
		}
	}
}

func (m *Machine) resolveContext() (context.Context, context.CancelFunc) {
	if m.profileTimeout > 0 {
		return context.WithTimeout(context.Background(), m.profileTimeout)
	}
	return context.WithCancel(context.Background())
}

// resolve never fails: any error degrades to a nil profile.
func (m *Machine) resolve(ctx context.Context, generation uint64, session *identity.Session) {
	profile, err := m.resolver.Resolve(ctx, session.SubjectID())
	if err != nil {
		profile = nil
		if !errors.Is(ctx.Err(), context.Canceled) {
			m.logger.Warn().Err(err).Str("subject", session.SubjectID()).Msg("profile resolution failed")
		}
	}

	select {
	case m.results <- resolution{generation: generation, session: session, profile: profile}:
	case <-m.done:
	}
}

func (m *Machine) apply(next State) {
	m.mu.Lock()
	m.state = next
	m.hub.Publish(next)
	m.mu.Unlock()

	m.loadedOnce.Do(func() { close(m.loaded) })
	m.logger.Debug().Str("state", next.String()).Str("subject", next.Session().SubjectID()).Msg("auth state changed")
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) Session() *identity.Session {
	return m.State().Session()
}

func (m *Machine) Profile() *profiles.Profile {
	return m.State().Profile()
}

func (m *Machine) IsLoading() bool {
	return m.State().IsLoading()
}

// WaitLoaded blocks until the machine has left Loading or ctx is done.
func (m *Machine) WaitLoaded(ctx context.Context) error {
	select {
	case <-m.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch invokes fn with the current state and then with every transition, one
// at a time and in order, until unwatched.
func (m *Machine) Watch(fn func(State)) (unwatch func()) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hub.SubscribeWith(fn, m.state)
}

// SignOut delegates to the session store. The SignedOut transition arrives
// later through the subscription.
func (m *Machine) SignOut(ctx context.Context) {
	m.source.SignOut(ctx)
}

// Close stops the machine. In-flight resolutions are cancelled and ignored.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		unsubscribe := m.unsubscribe
		m.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}

		close(m.done)
		m.wg.Wait()
		m.hub.Close()
	})
}
