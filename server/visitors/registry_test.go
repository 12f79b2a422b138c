package visitors_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-storefront/app"
	"github.com/jrsteele09/go-storefront/dataprovider/memstore"
	"github.com/jrsteele09/go-storefront/identity/local"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/server/visitors"
	"github.com/jrsteele09/go-storefront/token"
	fakeuserrepo "github.com/jrsteele09/go-storefront/users/repofake"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFactory(t *testing.T) *app.Factory {
	t.Helper()
	issuer, err := token.NewIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)
	dir, err := local.NewDirectory(fakeuserrepo.NewFakeUserRepo(), issuer)
	require.NoError(t, err)
	factory, err := app.NewFactory(dir, memstore.New())
	require.NoError(t, err)
	return factory
}

func newRegistry(t *testing.T, ttl time.Duration) (*visitors.Registry, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := visitors.NewRegistry(newFactory(t), ttl, visitors.WithNowTime(c.Now))
	t.Cleanup(r.Close)
	return r, c
}

func TestRegistry_AcquireCreatesThenReuses(t *testing.T) {
	r, _ := newRegistry(t, time.Minute)

	first, created, err := r.Acquire("")
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, first.ID)

	again, created, err := r.Acquire(first.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, first, again)

	other, created, err := r.Acquire("unknown")
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, other.ID)
	require.Equal(t, 2, r.Len())
}

func TestRegistry_InstancesAreIsolated(t *testing.T) {
	r, _ := newRegistry(t, time.Minute)

	a, _, err := r.Acquire("")
	require.NoError(t, err)
	b, _, err := r.Acquire("")
	require.NoError(t, err)

	require.NotSame(t, a.Cart, b.Cart)
	require.NotSame(t, a.Auth, b.Auth)
}

func TestRegistry_Expiry(t *testing.T) {
	r, c := newRegistry(t, time.Minute)

	inst, _, err := r.Acquire("")
	require.NoError(t, err)

	c.advance(30 * time.Second)
	_, err = r.Get(inst.ID)
	require.NoError(t, err, "access refreshes last seen")

	c.advance(50 * time.Second)
	_, err = r.Get(inst.ID)
	require.NoError(t, err)

	c.advance(2 * time.Minute)
	_, err = r.Get(inst.ID)
	require.ErrorIs(t, err, sferrors.ErrVisitorExpired)

	_, err = r.Get(inst.ID)
	require.ErrorIs(t, err, sferrors.ErrVisitorNotFound)
}

func TestRegistry_Sweep(t *testing.T) {
	r, c := newRegistry(t, time.Minute)

	old, _, err := r.Acquire("")
	require.NoError(t, err)
	c.advance(2 * time.Minute)
	fresh, _, err := r.Acquire("")
	require.NoError(t, err)

	require.Equal(t, 1, r.Sweep())
	require.Equal(t, 1, r.Len())

	_, err = r.Get(old.ID)
	require.ErrorIs(t, err, sferrors.ErrVisitorNotFound)
	_, err = r.Get(fresh.ID)
	require.NoError(t, err)
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	r, _ := newRegistry(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRegistry_DeleteAndClose(t *testing.T) {
	r, _ := newRegistry(t, 0)

	inst, _, err := r.Acquire("")
	require.NoError(t, err)
	r.Delete(inst.ID)
	_, err = r.Get(inst.ID)
	require.ErrorIs(t, err, sferrors.ErrVisitorNotFound)

	_, _, err = r.Acquire("")
	require.NoError(t, err)
	r.Close()
	require.Equal(t, 0, r.Len())

	_, _, err = r.Acquire("")
	require.ErrorIs(t, err, sferrors.ErrClosed)
	_, err = r.Get("")
	require.ErrorIs(t, err, sferrors.ErrInvalidInput)
}
