package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-storefront/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, 3, utils.Value(utils.Ptr(3)))
}

func TestNonZeroPtr(t *testing.T) {
	require.Nil(t, utils.NonZeroPtr(""))
	require.Nil(t, utils.NonZeroPtr(0))

	p := utils.NonZeroPtr("x")
	require.NotNil(t, p)
	require.Equal(t, "x", *p)
}
