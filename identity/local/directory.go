// Package local is an in-process identity provider. A Directory holds the
// accounts and pending OAuth flows shared by every client; each application
// instance talks to it through its own Client.
package local

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/identity/flowstate"
	"github.com/jrsteele09/go-storefront/token"
	"github.com/jrsteele09/go-storefront/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultFlowMaxAge = 10 * time.Minute

// OAuthConnector drives the authorization code flow of one external provider.
type OAuthConnector interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code, nonce string) (identity.Identity, error)
}

// TokenIssuer mints the tokens carried by a session.
type TokenIssuer interface {
	Issue(subject, email string) (token.Issued, error)
}

// SignUpHook runs after a user has been stored. A failing hook undoes the sign-up.
type SignUpHook func(ctx context.Context, user *users.User) error

type Directory struct {
	users                    users.UserRepo
	issuer                   TokenIssuer
	connectors               map[string]OAuthConnector
	flows                    flowstate.Repo
	requireEmailConfirmation bool
	signUpHooks              []SignUpHook
	refreshInterval          time.Duration
	nowTime                  func() time.Time
	logger                   zerolog.Logger
}

// DirectoryOption defines a function type to modify the Directory instance.
type DirectoryOption func(*Directory)

func WithConnector(name string, connector OAuthConnector) DirectoryOption {
	return func(d *Directory) {
		d.connectors[strings.ToLower(name)] = connector
	}
}

func WithFlowRepo(repo flowstate.Repo) DirectoryOption {
	return func(d *Directory) {
		d.flows = repo
	}
}

// WithEmailConfirmation makes new password accounts unverified until ConfirmEmail is called.
func WithEmailConfirmation(required bool) DirectoryOption {
	return func(d *Directory) {
		d.requireEmailConfirmation = required
	}
}

func WithSignUpHook(hook SignUpHook) DirectoryOption {
	return func(d *Directory) {
		d.signUpHooks = append(d.signUpHooks, hook)
	}
}

// WithRefreshInterval re-issues the access token of every signed-in client at
// the given interval. Zero disables refreshing.
func WithRefreshInterval(interval time.Duration) DirectoryOption {
	return func(d *Directory) {
		d.refreshInterval = interval
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) DirectoryOption {
	return func(d *Directory) {
		d.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = logger
	}
}

func NewDirectory(userRepo users.UserRepo, issuer TokenIssuer, options ...DirectoryOption) (*Directory, error) {
	if userRepo == nil {
		return nil, errors.New("[NewDirectory] user repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewDirectory] token issuer is required")
	}

	d := &Directory{
		users:      userRepo,
		issuer:     issuer,
		connectors: make(map[string]OAuthConnector),
		nowTime:    time.Now,
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(d)
	}
	if d.flows == nil {
		d.flows = flowstate.NewInMemoryRepo(defaultFlowMaxAge)
	}
	return d, nil
}

// NewClient returns a signed-out client bound to the directory.
func (d *Directory) NewClient() *Client {
	return newClient(d)
}

// HasConnector reports whether an OAuth connector is registered under name.
func (d *Directory) HasConnector(name string) bool {
	_, ok := d.connectors[strings.ToLower(name)]
	return ok
}

// ConfirmEmail marks the account as verified so it can sign in.
func (d *Directory) ConfirmEmail(email string) error {
	if err := d.users.SetVerified(email, true); err != nil {
		return fmt.Errorf("[Directory ConfirmEmail] %w", err)
	}
	return nil
}

// PurgeExpiredFlows drops pending OAuth flows older than maxAge.
func (d *Directory) PurgeExpiredFlows(maxAge time.Duration) int {
	return d.flows.DeleteExpired(d.nowTime().Add(-maxAge))
}

func (d *Directory) authenticate(email, password string) (*users.User, error) {
	user, err := d.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("[Directory authenticate] %w", err)
	}
	if !user.CheckPassword(password) {
		return nil, identity.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, identity.ErrUserBlocked
	}
	if d.requireEmailConfirmation && !user.Verified {
		return nil, identity.ErrEmailNotConfirmed
	}
	if err := d.users.TouchLastLogin(user.Email); err != nil {
		d.logger.Warn().Err(err).Str("email", user.Email).Msg("failed to record last login")
	}
	return user, nil
}

func (d *Directory) register(ctx context.Context, email, password string, metadata map[string]any) (*users.User, error) {
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, fmt.Errorf("%w: %s", identity.ErrWeakPassword, err.Error())
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[Directory register] failed to hash password: %w", err)
	}

	user := &users.User{
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Metadata:     maps.Clone(metadata),
		DateJoined:   d.nowTime(),
		Verified:     !d.requireEmailConfirmation,
	}
	user.FullName = user.MetadataString(users.MetadataFullName)

	if err := d.store(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// store creates the user and runs the sign-up hooks.
func (d *Directory) store(ctx context.Context, user *users.User) error {
	if err := d.users.Create(user); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("[Directory store] %w", err)
	}
	for _, hook := range d.signUpHooks {
		if err := hook(ctx, user); err != nil {
			if delErr := d.users.Delete(user.Email); delErr != nil {
				d.logger.Error().Err(delErr).Str("email", user.Email).Msg("failed to roll back sign-up")
			}
			return fmt.Errorf("[Directory store] sign-up hook failed: %w", err)
		}
	}
	return nil
}

// oauthUser finds the account for an external identity, creating it on first sign-in.
func (d *Directory) oauthUser(ctx context.Context, ext identity.Identity) (*users.User, error) {
	user, err := d.users.GetByEmail(ext.Email)
	switch {
	case err == nil:
		if user.Blocked {
			return nil, identity.ErrUserBlocked
		}
		if !user.Verified {
			if err := d.users.SetVerified(user.Email, true); err != nil {
				return nil, fmt.Errorf("[Directory oauthUser] %w", err)
			}
		}
		if err := d.users.TouchLastLogin(user.Email); err != nil {
			d.logger.Warn().Err(err).Str("email", user.Email).Msg("failed to record last login")
		}
		return user, nil
	case errors.Is(err, users.ErrUserNotFound):
	default:
		return nil, fmt.Errorf("[Directory oauthUser] %w", err)
	}

	user = &users.User{
		Email:      ext.Email,
		Metadata:   maps.Clone(ext.Metadata),
		DateJoined: d.nowTime(),
		LastLogin:  d.nowTime(),
		Verified:   true,
	}
	user.FullName = user.MetadataString(users.MetadataFullName)
	if err := d.store(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (d *Directory) issue(user *users.User) (*identity.Session, error) {
	issued, err := d.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("[Directory issue] %w", err)
	}

	metadata := maps.Clone(user.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	if user.FullName != "" {
		metadata[users.MetadataFullName] = user.FullName
	}

	return &identity.Session{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.ExpiresAt,
		User: identity.Identity{
			ID:       user.ID,
			Email:    user.Email,
			Metadata: metadata,
		},
	}, nil
}
