package fakeuserrepo_test

import (
	"testing"

	"github.com/jrsteele09/go-storefront/users"
	fakeuserrepo "github.com/jrsteele09/go-storefront/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: "Jane@Example.com", FullName: "Jane"}
	require.NoError(t, repo.Create(u))
	require.NotEmpty(t, u.ID)

	t.Run("duplicate email rejected", func(t *testing.T) {
		err := repo.Create(&users.User{Email: "jane@example.com"})
		require.ErrorIs(t, err, users.ErrEmailTaken)
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		got, err := repo.GetByEmail("JANE@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("returned users are copies", func(t *testing.T) {
		got, err := repo.GetByID(u.ID)
		require.NoError(t, err)
		got.Blocked = true

		again, err := repo.GetByID(u.ID)
		require.NoError(t, err)
		require.False(t, again.Blocked)
	})

	t.Run("flags update the stored user", func(t *testing.T) {
		require.NoError(t, repo.SetVerified("jane@example.com", true))
		require.NoError(t, repo.TouchLastLogin("jane@example.com"))
		got, err := repo.GetByEmail("jane@example.com")
		require.NoError(t, err)
		require.True(t, got.Verified)
		require.False(t, got.LastLogin.IsZero())
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete("jane@example.com"))
		_, err := repo.GetByID(u.ID)
		require.ErrorIs(t, err, users.ErrUserNotFound)
		require.ErrorIs(t, repo.Delete("jane@example.com"), users.ErrUserNotFound)
	})
}
