// Package visitors keeps one application instance per browser visitor.
package visitors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-storefront/app"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Factory creates a fresh, signed-out instance.
type Factory interface {
	New() *app.Instance
}

type entry struct {
	instance *app.Instance
	lastSeen time.Time
}

// Registry maps visitor IDs to instances. Instances idle for longer than the
// TTL are closed and forgotten.
type Registry struct {
	factory Factory
	ttl     time.Duration
	nowTime func() time.Time
	logger  zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// RegistryOption defines a function type to modify the Registry instance.
type RegistryOption func(*Registry)

func WithNowTime(nowTime func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowTime = nowTime
	}
}

func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(factory Factory, ttl time.Duration, options ...RegistryOption) *Registry {
	r := &Registry{
		factory: factory,
		ttl:     ttl,
		nowTime: time.Now,
		logger:  log.Logger,
		entries: make(map[string]*entry),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Registry) expiredLocked(e *entry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(e.lastSeen) > r.ttl
}

// Get returns the live instance for id and marks it as seen.
func (r *Registry) Get(id string) (*app.Instance, error) {
	if id == "" {
		return nil, fmt.Errorf("[Registry Get] visitor id is required: %w", sferrors.ErrInvalidInput)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("[Registry Get] %w", sferrors.ErrClosed)
	}
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil, sferrors.ErrVisitorNotFound
	}
	now := r.nowTime()
	if r.expiredLocked(e, now) {
		delete(r.entries, id)
		r.mu.Unlock()
		e.instance.Close()
		return nil, sferrors.ErrVisitorExpired
	}
	e.lastSeen = now
	r.mu.Unlock()
	return e.instance, nil
}

// Acquire returns the instance for id, creating a new one when id is unknown
// or expired. created reports whether a new instance was made.
func (r *Registry) Acquire(id string) (instance *app.Instance, created bool, err error) {
	instance, err = r.Get(id)
	switch {
	case err == nil:
		return instance, false, nil
	case sferrors.Is(err, sferrors.ErrClosed):
		return nil, false, err
	}

	instance = r.factory.New()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		instance.Close()
		return nil, false, fmt.Errorf("[Registry Acquire] %w", sferrors.ErrClosed)
	}
	r.entries[instance.ID] = &entry{instance: instance, lastSeen: r.nowTime()}
	count := len(r.entries)
	r.mu.Unlock()

	r.logger.Debug().Str("visitor", instance.ID).Int("visitors", count).Msg("visitor created")
	return instance, true, nil
}

// Delete closes and removes the instance for id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		e.instance.Close()
	}
}

// Sweep closes every expired instance and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.nowTime()
	var expired []*app.Instance

	r.mu.Lock()
	for id, e := range r.entries {
		if r.expiredLocked(e, now) {
			expired = append(expired, e.instance)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, instance := range expired {
		instance.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug().Int("expired", len(expired)).Msg("visitors swept")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every instance. Later calls to Acquire fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.instance.Close()
	}
}
