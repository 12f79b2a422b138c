package errors_test

import (
	"errors"
	"testing"

	apperrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		require.NoError(t, apperrors.Wrapf(nil, "[Test] context %d", 1))
	})

	t.Run("wrapped error keeps chain", func(t *testing.T) {
		err := apperrors.Wrapf(apperrors.ErrTransport, "[Test] fetch %s", "products")
		require.EqualError(t, err, "[Test] fetch products: transport error")
		require.True(t, apperrors.Is(err, apperrors.ErrTransport))
	})

	t.Run("sentinel in format is wrapped too", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := apperrors.Wrapf(cause, "[Test] %w", apperrors.ErrTransport)
		require.EqualError(t, err, "[Test] transport error: connection refused")
		require.True(t, apperrors.Is(err, apperrors.ErrTransport))
		require.ErrorIs(t, err, cause)
	})
}
