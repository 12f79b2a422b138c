package authstate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-storefront/authstate"
	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/profiles"
	"github.com/jrsteele09/go-storefront/sessions"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakeSource struct {
	mu       sync.Mutex
	handlers []sessions.Handler
	signOuts int
}

func (f *fakeSource) Subscribe(handler sessions.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
	return func() {}
}

func (f *fakeSource) SignOut(context.Context) {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	f.emit(nil)
}

func (f *fakeSource) emit(session *identity.Session) {
	f.mu.Lock()
	handlers := append([]sessions.Handler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(session)
	}
}

type lookup struct {
	profile *profiles.Profile
	err     error
	gate    chan struct{}
}

type fakeResolver struct {
	mu        sync.Mutex
	lookups   map[string]lookup
	calls     map[string]int
	cancelled chan string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		lookups:   make(map[string]lookup),
		calls:     make(map[string]int),
		cancelled: make(chan string, 8),
	}
}

func (f *fakeResolver) set(subject string, l lookup) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups[subject] = l
}

func (f *fakeResolver) callCount(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[subject]
}

func (f *fakeResolver) Resolve(ctx context.Context, subject string) (*profiles.Profile, error) {
	f.mu.Lock()
	l, ok := f.lookups[subject]
	f.calls[subject]++
	f.mu.Unlock()
	if !ok {
		return nil, profiles.ErrProfileNotFound
	}
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			f.cancelled <- subject
			return nil, ctx.Err()
		}
	}
	return l.profile, l.err
}

func session(subject, token string) *identity.Session {
	return &identity.Session{AccessToken: token, User: identity.Identity{ID: subject, Email: subject + "@example.com"}}
}

func newMachine(t *testing.T, options ...authstate.MachineOption) (*authstate.Machine, *fakeSource, *fakeResolver) {
	t.Helper()
	source := &fakeSource{}
	resolver := newFakeResolver()
	m := authstate.NewMachine(source, resolver, options...)
	t.Cleanup(m.Close)
	return m, source, resolver
}

func waitState(t *testing.T, m *authstate.Machine, cond func(authstate.State) bool) authstate.State {
	t.Helper()
	require.Eventually(t, func() bool { return cond(m.State()) }, waitFor, 5*time.Millisecond)
	return m.State()
}

func TestState_Constructors(t *testing.T) {
	require.True(t, authstate.Loading().IsLoading())
	require.Nil(t, authstate.Loading().Session())

	out := authstate.SignedIn(nil, &profiles.Profile{Role: profiles.RoleAdmin})
	require.Equal(t, authstate.StatusSignedOut, out.Status())
	require.Nil(t, out.Profile())
	require.False(t, out.IsAdmin())

	in := authstate.SignedIn(session("u1", "t1"), nil)
	require.True(t, in.IsAuthenticated())
	require.False(t, in.IsAdmin())
	require.Equal(t, "signed_in", in.String())
}

func TestMachine_StartsLoading(t *testing.T) {
	m, _, _ := newMachine(t)
	require.True(t, m.IsLoading())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.WaitLoaded(ctx), context.DeadlineExceeded)
}

func TestMachine_SignedOut(t *testing.T) {
	m, source, _ := newMachine(t)

	source.emit(nil)
	require.NoError(t, m.WaitLoaded(context.Background()))
	require.Equal(t, authstate.StatusSignedOut, m.State().Status())
	require.Nil(t, m.Session())
	require.Nil(t, m.Profile())
}

func TestMachine_SignedInWithProfile(t *testing.T) {
	m, source, resolver := newMachine(t)
	admin := &profiles.Profile{FullName: "Ada", Role: profiles.RoleAdmin}
	resolver.set("u1", lookup{profile: admin})

	source.emit(session("u1", "t1"))
	state := waitState(t, m, authstate.State.IsAuthenticated)
	require.Equal(t, "u1", state.Session().SubjectID())
	require.Equal(t, admin, state.Profile())
	require.True(t, state.IsAdmin())
	require.Equal(t, 1, resolver.callCount("u1"))
}

func TestMachine_ProfileFailureDegradesToNilProfile(t *testing.T) {
	m, source, resolver := newMachine(t)
	resolver.set("u1", lookup{err: errors.New("transport error")})

	source.emit(session("u1", "t1"))
	state := waitState(t, m, authstate.State.IsAuthenticated)
	require.Nil(t, state.Profile())
	require.False(t, state.IsAdmin())
}

func TestMachine_ProfileTimeout(t *testing.T) {
	m, source, resolver := newMachine(t, authstate.WithProfileTimeout(20*time.Millisecond))
	resolver.set("u1", lookup{profile: &profiles.Profile{Role: profiles.RoleAdmin}, gate: make(chan struct{})})

	source.emit(session("u1", "t1"))
	state := waitState(t, m, authstate.State.IsAuthenticated)
	require.Nil(t, state.Profile())
}

func TestMachine_StaysLoadingUntilProfileResolves(t *testing.T) {
	m, source, resolver := newMachine(t)
	gate := make(chan struct{})
	resolver.set("u1", lookup{profile: &profiles.Profile{Role: profiles.RoleCustomer}, gate: gate})

	source.emit(session("u1", "t1"))
	require.Eventually(t, func() bool { return resolver.callCount("u1") == 1 }, waitFor, 5*time.Millisecond)
	require.True(t, m.IsLoading())

	close(gate)
	require.NoError(t, m.WaitLoaded(context.Background()))
	require.Equal(t, profiles.RoleCustomer, m.Profile().Role)
}

func TestMachine_LeavesLoadingExactlyOnce(t *testing.T) {
	m, source, resolver := newMachine(t)
	resolver.set("u1", lookup{profile: &profiles.Profile{Role: profiles.RoleCustomer}})
	resolver.set("u2", lookup{err: errors.New("boom")})

	var mu sync.Mutex
	var seen []authstate.State
	unwatch := m.Watch(func(s authstate.State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer unwatch()

	source.emit(session("u1", "t1"))
	source.emit(nil)
	source.emit(session("u2", "t2"))
	source.emit(session("u1", "t3"))
	source.emit(nil)

	waitState(t, m, func(s authstate.State) bool { return s.Status() == authstate.StatusSignedOut })
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 1 && seen[len(seen)-1].Status() == authstate.StatusSignedOut
	}, waitFor, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, seen[0].IsLoading())
	for _, s := range seen[1:] {
		require.False(t, s.IsLoading(), "machine re-entered Loading")
	}
}

func TestMachine_SupersededResolutionIsDiscarded(t *testing.T) {
	m, source, resolver := newMachine(t)
	slow := make(chan struct{})
	resolver.set("first", lookup{profile: &profiles.Profile{FullName: "First", Role: profiles.RoleAdmin}, gate: slow})
	resolver.set("second", lookup{profile: &profiles.Profile{FullName: "Second", Role: profiles.RoleCustomer}})

	source.emit(session("first", "t1"))
	require.Eventually(t, func() bool { return resolver.callCount("first") == 1 }, waitFor, 5*time.Millisecond)
	source.emit(session("second", "t2"))

	state := waitState(t, m, authstate.State.IsAuthenticated)
	require.Equal(t, "second", state.Session().SubjectID())
	require.Equal(t, "Second", state.Profile().FullName)

	select {
	case subject := <-resolver.cancelled:
		require.Equal(t, "first", subject)
	case <-time.After(waitFor):
		t.Fatal("superseded resolution was not cancelled")
	}
	close(slow)

	time.Sleep(20 * time.Millisecond)
	state = m.State()
	require.Equal(t, "second", state.Session().SubjectID())
	require.Equal(t, "Second", state.Profile().FullName)
	require.False(t, state.IsAdmin())
}

func TestMachine_SignOutDuringResolution(t *testing.T) {
	m, source, resolver := newMachine(t)
	gate := make(chan struct{})
	resolver.set("u1", lookup{profile: &profiles.Profile{Role: profiles.RoleAdmin}, gate: gate})

	source.emit(session("u1", "t1"))
	require.Eventually(t, func() bool { return resolver.callCount("u1") == 1 }, waitFor, 5*time.Millisecond)

	m.SignOut(context.Background())
	waitState(t, m, func(s authstate.State) bool { return s.Status() == authstate.StatusSignedOut })
	close(gate)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, authstate.StatusSignedOut, m.State().Status())
	require.Nil(t, m.Profile())
	require.Equal(t, 1, source.signOuts)
}

func TestMachine_WatchDeliversCurrentThenTransitions(t *testing.T) {
	m, source, resolver := newMachine(t)
	resolver.set("u1", lookup{profile: &profiles.Profile{Role: profiles.RoleCustomer}})

	ch := make(chan authstate.State, 8)
	unwatch := m.Watch(func(s authstate.State) { ch <- s })
	defer unwatch()

	source.emit(session("u1", "t1"))
	waitState(t, m, authstate.State.IsAuthenticated)
	source.emit(nil)

	var statuses []authstate.Status
	for len(statuses) < 3 {
		select {
		case s := <-ch:
			statuses = append(statuses, s.Status())
		case <-time.After(waitFor):
			t.Fatalf("timed out, got %v", statuses)
		}
	}
	require.Equal(t, []authstate.Status{authstate.StatusLoading, authstate.StatusSignedIn, authstate.StatusSignedOut}, statuses)
}

func TestMachine_CloseIsIdempotent(t *testing.T) {
	m, source, _ := newMachine(t)
	m.Close()
	m.Close()
	source.emit(nil)
	require.True(t, m.IsLoading())
}
