package users_test

import (
	"testing"

	"github.com/jrsteele09/go-storefront/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Passw0rdOK", ""},
		{"too short", "Ab1", "at least 8 characters"},
		{"no upper", "password123", "uppercase"},
		{"no lower", "PASSWORD123", "lowercase"},
		{"no number", "PasswordOnly", "number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tc.password)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestUser_CheckPassword(t *testing.T) {
	hash, err := users.HashPassword("Secret123")
	require.NoError(t, err)

	u := &users.User{Email: "jane@example.com", PasswordHash: hash}
	require.True(t, u.CheckPassword("Secret123"))
	require.False(t, u.CheckPassword("secret123"))
}

func TestUser_MetadataString(t *testing.T) {
	u := &users.User{Metadata: map[string]any{users.MetadataFullName: "Jane Doe", "age": 3}}
	require.Equal(t, "Jane Doe", u.MetadataString(users.MetadataFullName))
	require.Equal(t, "", u.MetadataString("age"))
	require.Equal(t, "", (&users.User{}).MetadataString("missing"))
}
