package guard

import (
	"sync"

	"github.com/jrsteele09/go-storefront/authstate"
	"github.com/jrsteele09/go-storefront/navigation"
)

// StateSource is the auth state machine as seen by a screen.
type StateSource interface {
	Watch(fn func(authstate.State)) (unwatch func())
}

// Screen is a protected screen mounted at the navigator's current path. It
// re-evaluates its guard on every auth transition and leaves the path, replacing
// the history entry, the first time the decision becomes Redirect.
type Screen struct {
	guard Guard
	nav   navigation.Navigator
	path  string

	mu       sync.Mutex
	decision Decision
	evicted  bool
	changed  chan struct{}
	unwatch  func()
}

// Bind mounts g on the navigator's current path.
func Bind(source StateSource, g Guard, nav navigation.Navigator) *Screen {
	s := &Screen{
		guard:    g,
		nav:      nav,
		path:     nav.Path(),
		decision: pending(),
		changed:  make(chan struct{}),
	}
	unwatch := source.Watch(s.evaluate)
	s.mu.Lock()
	s.unwatch = unwatch
	s.mu.Unlock()
	return s
}

func (s *Screen) evaluate(state authstate.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evicted {
		return
	}

	s.decision = s.guard.Decide(state)
	close(s.changed)
	s.changed = make(chan struct{})

	if s.decision.Outcome != Redirect || s.nav.Path() != s.path {
		return
	}
	s.evicted = true
	if s.decision.Replace {
		s.nav.Replace(s.decision.Target)
	} else {
		s.nav.Push(s.decision.Target)
	}
}

// Decision returns the latest decision.
func (s *Screen) Decision() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

// Evicted reports whether the screen has redirected away.
func (s *Screen) Evicted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

// Changed returns a channel closed at the next evaluation.
func (s *Screen) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Close unmounts the screen.
func (s *Screen) Close() {
	s.mu.Lock()
	unwatch := s.unwatch
	s.unwatch = nil
	s.mu.Unlock()
	if unwatch != nil {
		unwatch()
	}
}
