// Package app composes one running client: its identity connection, session
// store, auth state machine, cart and sign-in flows.
package app

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-storefront/auth"
	"github.com/jrsteele09/go-storefront/authstate"
	"github.com/jrsteele09/go-storefront/cart"
	"github.com/jrsteele09/go-storefront/dataprovider"
	"github.com/jrsteele09/go-storefront/identity/local"
	"github.com/jrsteele09/go-storefront/profiles"
	"github.com/jrsteele09/go-storefront/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Instance is one application instance. Nothing in it is shared with other instances.
type Instance struct {
	ID       string
	Identity *local.Client
	Sessions *sessions.Store
	Auth     *authstate.Machine
	Cart     *cart.Store
	Flows    *auth.Service
}

// Close releases the instance's goroutines, innermost consumers first.
func (i *Instance) Close() {
	i.Auth.Close()
	i.Sessions.Close()
	i.Cart.Close()
	i.Identity.Close()
}

// Factory builds instances that share one identity directory and one data provider.
type Factory struct {
	directory            *local.Directory
	resolver             *profiles.Resolver
	profileTimeout       time.Duration
	requiresConfirmation bool
	logger               zerolog.Logger
}

// FactoryOption defines a function type to modify the Factory instance.
type FactoryOption func(*Factory)

func WithProfileTimeout(timeout time.Duration) FactoryOption {
	return func(f *Factory) {
		f.profileTimeout = timeout
	}
}

func WithEmailConfirmation(required bool) FactoryOption {
	return func(f *Factory) {
		f.requiresConfirmation = required
	}
}

func WithLogger(logger zerolog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

func NewFactory(directory *local.Directory, data dataprovider.Provider, options ...FactoryOption) (*Factory, error) {
	if directory == nil {
		return nil, errors.New("[NewFactory] identity directory is required")
	}
	if data == nil {
		return nil, errors.New("[NewFactory] data provider is required")
	}

	f := &Factory{
		directory:      directory,
		resolver:       profiles.NewResolver(data),
		profileTimeout: 5 * time.Second,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// New starts a fresh, signed-out instance with an empty cart.
func (f *Factory) New() *Instance {
	id := uuid.NewString()
	logger := f.logger.With().Str("instance", id).Logger()

	client := f.directory.NewClient()
	store := sessions.NewStore(client, sessions.WithLogger(logger))
	machine := authstate.NewMachine(store, f.resolver,
		authstate.WithLogger(logger),
		authstate.WithProfileTimeout(f.profileTimeout),
	)

	return &Instance{
		ID:       id,
		Identity: client,
		Sessions: store,
		Auth:     machine,
		Cart:     cart.NewStore(),
		Flows: auth.NewService(client, f.resolver,
			auth.WithEmailConfirmation(f.requiresConfirmation),
			auth.WithLogger(logger),
		),
	}
}
