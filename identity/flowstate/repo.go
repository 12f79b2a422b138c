package flowstate

import (
	"errors"
	"time"
)

var (
	ErrStateNotFound = errors.New("state not found")
	ErrStateExpired  = errors.New("state expired")
)

// FlowState is the server-side half of a pending OAuth sign-in, keyed by the
// state parameter sent to the authorization server.
type FlowState struct {
	Provider   string
	Nonce      string
	RedirectTo string
	CreatedAt  time.Time
}

type Repo interface {
	Upsert(state string, flow *FlowState) error
	// Take returns the flow for state and removes it; a state can be used once.
	Take(state string) (*FlowState, error)
	Delete(state string) error
	DeleteExpired(before time.Time) int
}
