package identity_test

import (
	"testing"

	"github.com/jrsteele09/go-storefront/identity"
	"github.com/stretchr/testify/require"
)

func TestSession_Accessors(t *testing.T) {
	var nilSession *identity.Session
	require.Equal(t, "", nilSession.SubjectID())
	require.Equal(t, "", nilSession.Email())

	s := &identity.Session{AccessToken: "a", User: identity.Identity{ID: "u1", Email: "u1@example.com"}}
	require.Equal(t, "u1", s.SubjectID())
	require.Equal(t, "u1@example.com", s.Email())
}

func TestSession_Same(t *testing.T) {
	a := &identity.Session{AccessToken: "a"}
	b := &identity.Session{AccessToken: "b"}

	require.True(t, a.Same(&identity.Session{AccessToken: "a"}))
	require.False(t, a.Same(b))
	require.False(t, a.Same(nil))
	require.True(t, (*identity.Session)(nil).Same(nil))
}
