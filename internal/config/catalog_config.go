package config

import "time"

type CatalogConfig interface {
	GetProductCacheSize() int
	GetProductCacheTTL() time.Duration
	GetProductLookupTimeout() time.Duration
	GetProductListLimit() int
	GetFeaturedLimit() int
}

type Catalog struct {
	ProductCacheSize     int           `env:"PRODUCT_CACHE_SIZE" envDefault:"256"`
	ProductCacheTTL      time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"1m"`
	ProductLookupTimeout time.Duration `env:"PRODUCT_LOOKUP_TIMEOUT" envDefault:"5s"`
	ProductListLimit     int           `env:"PRODUCT_LIST_LIMIT" envDefault:"50"`
	FeaturedLimit        int           `env:"FEATURED_LIMIT" envDefault:"8"`
}

var _ CatalogConfig = Catalog{}

func (c Catalog) GetProductCacheSize() int {
	if c.ProductCacheSize <= 0 {
		return 1
	}
	return c.ProductCacheSize
}

// GetProductCacheTTL is how long a cached product is served before it is read
// again. Products change outside the process, so the cache always expires.
func (c Catalog) GetProductCacheTTL() time.Duration {
	if c.ProductCacheTTL <= 0 {
		return time.Minute
	}
	return c.ProductCacheTTL
}

func (c Catalog) GetProductLookupTimeout() time.Duration {
	if c.ProductLookupTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ProductLookupTimeout
}

func (c Catalog) GetProductListLimit() int {
	return c.ProductListLimit
}

func (c Catalog) GetFeaturedLimit() int {
	return c.FeaturedLimit
}
