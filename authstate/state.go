// Package authstate combines the session store and the profile resolver into a
// single Loading, SignedOut or SignedIn state.
package authstate

import (
	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/profiles"
)

type Status int

const (
	StatusLoading Status = iota
	StatusSignedOut
	StatusSignedIn
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSignedOut:
		return "signed_out"
	case StatusSignedIn:
		return "signed_in"
	default:
		return "unknown"
	}
}

// State is immutable. Only the constructors below produce values, so a profile
// never appears without a session and Loading never carries either.
type State struct {
	status  Status
	session *identity.Session
	profile *profiles.Profile
}

func Loading() State {
	return State{status: StatusLoading}
}

func SignedOut() State {
	return State{status: StatusSignedOut}
}

// SignedIn pairs a session with its profile. profile is nil when it could not
// be resolved. A nil session yields SignedOut.
func SignedIn(session *identity.Session, profile *profiles.Profile) State {
	if session == nil {
		return SignedOut()
	}
	return State{status: StatusSignedIn, session: session, profile: profile}
}

func (s State) Status() Status { return s.status }
func (s State) IsLoading() bool { return s.status == StatusLoading }
func (s State) Session() *identity.Session { return s.session }
func (s State) Profile() *profiles.Profile { return s.profile }
func (s State) IsAuthenticated() bool { return s.status == StatusSignedIn }

// IsAdmin treats a missing profile as not admin.
func (s State) IsAdmin() bool {
	return s.status == StatusSignedIn && s.profile.IsAdmin()
}

func (s State) String() string {
	return s.status.String()
}
