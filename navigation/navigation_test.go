package navigation_test

import (
	"testing"

	"github.com/jrsteele09/go-storefront/navigation"
	"github.com/stretchr/testify/require"
)

func TestHistory_PushAndBack(t *testing.T) {
	h := navigation.NewHistory("/")
	h.Push("/products")
	h.Push("/cart")

	require.Equal(t, "/cart", h.Path())
	require.True(t, h.Back())
	require.Equal(t, "/products", h.Path())

	h.Push("/products/p1")
	require.Equal(t, []string{"/", "/products", "/products/p1"}, h.Entries())
}

func TestHistory_ReplacedEntryIsUnreachable(t *testing.T) {
	h := navigation.NewHistory("/")
	h.Push("/checkout")
	h.Replace("/login")

	require.Equal(t, "/login", h.Path())
	require.True(t, h.Back())
	require.Equal(t, "/", h.Path())
	require.False(t, h.Back())
	require.NotContains(t, h.Entries(), "/checkout")
}
