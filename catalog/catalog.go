// Package catalog reads products from the remote data provider.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jrsteele09/go-storefront/cart"
	"github.com/jrsteele09/go-storefront/dataprovider"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL      = time.Minute
	defaultLookupTimeout = 5 * time.Second
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrProductMalformed = errors.New("product malformed")
)

// Catalog caches products by ID for a bounded time and collapses concurrent
// lookups of the same ID into one remote query.
type Catalog struct {
	provider      dataprovider.Provider
	cache         *expirable.LRU[string, cart.Product]
	group         singleflight.Group
	cacheTTL      time.Duration
	lookupTimeout time.Duration
}

// Option defines a function type to modify the Catalog instance.
type Option func(*Catalog)

// WithCacheTTL sets how long a product is served from the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		c.cacheTTL = ttl
	}
}

// WithLookupTimeout bounds the shared remote query behind Get.
func WithLookupTimeout(timeout time.Duration) Option {
	return func(c *Catalog) {
		c.lookupTimeout = timeout
	}
}

func New(provider dataprovider.Provider, cacheSize int, options ...Option) (*Catalog, error) {
	if cacheSize <= 0 {
		return nil, fmt.Errorf("[catalog New] cache size must be positive, got %d", cacheSize)
	}

	c := &Catalog{
		provider:      provider,
		cacheTTL:      defaultCacheTTL,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.cacheTTL <= 0 {
		return nil, fmt.Errorf("[catalog New] cache ttl must be positive, got %s", c.cacheTTL)
	}
	c.cache = expirable.NewLRU[string, cart.Product](cacheSize, nil, c.cacheTTL)
	return c, nil
}

// Get returns the product with id, from the cache when present. The remote
// query is shared by every concurrent caller and does not end when one of them
// gives up; each caller waits only as long as its own ctx allows.
func (c *Catalog) Get(ctx context.Context, id string) (cart.Product, error) {
	if p, ok := c.cache.Get(id); ok {
		return p, nil
	}

	ch := c.group.DoChan(id, func() (any, error) {
		if p, ok := c.cache.Get(id); ok {
			return p, nil
		}
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()
		return c.load(lookupCtx, id)
	})

	select {
	case <-ctx.Done():
		return cart.Product{}, fmt.Errorf("[Catalog Get] %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return cart.Product{}, res.Err
		}
		return res.Val.(cart.Product), nil
	}
}

func (c *Catalog) load(ctx context.Context, id string) (cart.Product, error) {
	row, err := c.provider.QueryOne(ctx, Table, dataprovider.Where(ColumnID, id))
	if err != nil {
		if errors.Is(err, dataprovider.ErrNoRows) {
			return cart.Product{}, ErrProductNotFound
		}
		return cart.Product{}, sferrors.Wrapf(err, "[Catalog Get] %w", sferrors.ErrTransport)
	}
	p, err := FromRow(row)
	if err != nil {
		return cart.Product{}, err
	}
	c.cache.Add(p.ID, p)
	return p, nil
}

// List returns up to limit products. Malformed rows are skipped.
func (c *Catalog) List(ctx context.Context, limit int) ([]cart.Product, error) {
	rows, err := c.provider.QueryMany(ctx, Table, nil, limit)
	if err != nil {
		return nil, sferrors.Wrapf(err, "[Catalog List] %w", sferrors.ErrTransport)
	}

	products := make([]cart.Product, 0, len(rows))
	for _, row := range rows {
		p, err := FromRow(row)
		if err != nil {
			log.Warn().Err(err).Interface("id", row[ColumnID]).Msg("skipping malformed product row")
			continue
		}
		c.cache.Add(p.ID, p)
		products = append(products, p)
	}
	return products, nil
}

// Invalidate drops id from the cache so the next Get reads it again.
func (c *Catalog) Invalidate(id string) {
	c.group.Forget(id)
	c.cache.Remove(id)
}
