// Package auth runs the sign-in, sign-up and OAuth flows behind the login and
// sign-up forms. Every remote failure is returned as a *FormError carrying the
// message to show on the form.
package auth

import (
	"context"
	"errors"

	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/profiles"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	AdminPath = "/admin"
	HomePath  = "/"
)

type ProfileResolver interface {
	Resolve(ctx context.Context, subjectID string) (*profiles.Profile, error)
}

// LoginResult is a successful sign-in and where to navigate next.
type LoginResult struct {
	Session    *identity.Session
	Profile    *profiles.Profile
	RedirectTo string
}

// OAuthResult is a completed OAuth sign-in and where to navigate next.
type OAuthResult struct {
	Session    *identity.Session
	RedirectTo string
}

// SignUpResult describes a stored account. When PendingConfirmation is set the
// user must confirm their e-mail before signing in.
type SignUpResult struct {
	Identity            *identity.Identity
	PendingConfirmation bool
}

type Service struct {
	provider             identity.Provider
	resolver             ProfileResolver
	requiresConfirmation bool
	oauthRedirect        string
	logger               zerolog.Logger
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithEmailConfirmation reports new sign-ups as pending confirmation.
func WithEmailConfirmation(required bool) ServiceOption {
	return func(s *Service) {
		s.requiresConfirmation = required
	}
}

// WithOAuthRedirect sets where an OAuth sign-in lands. Defaults to "/".
func WithOAuthRedirect(path string) ServiceOption {
	return func(s *Service) {
		s.oauthRedirect = path
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(provider identity.Provider, resolver ProfileResolver, options ...ServiceOption) *Service {
	s := &Service{
		provider:      provider,
		resolver:      resolver,
		oauthRedirect: HomePath,
		logger:        log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Login signs in with a password, resolves the profile and picks the landing
// page: /admin for admins, / for everyone else.
func (s *Service) Login(ctx context.Context, params LoginParameters) (*LoginResult, error) {
	params = params.normalised()
	if err := params.Validate(); err != nil {
		return nil, fieldErrors(err)
	}

	session, err := s.provider.SignInWithPassword(ctx, params.Email, params.Password)
	if err != nil {
		return nil, s.signInError(err)
	}
	if session == nil || session.SubjectID() == "" {
		return nil, formError(MsgNoUserReturned, nil)
	}

	profile, err := s.resolver.Resolve(ctx, session.SubjectID())
	if err != nil {
		s.logger.Warn().Err(err).Str("subject", session.SubjectID()).Msg("profile lookup after sign in failed")
		return nil, formError(MsgProfileFetch, err)
	}

	return &LoginResult{
		Session:    session,
		Profile:    profile,
		RedirectTo: LandingPath(profile),
	}, nil
}

// LandingPath is where a user goes after signing in.
func LandingPath(profile *profiles.Profile) string {
	if profile.IsAdmin() {
		return AdminPath
	}
	return HomePath
}

func (s *Service) signInError(err error) *FormError {
	switch {
	case errors.Is(err, identity.ErrEmailNotConfirmed):
		return formError(MsgEmailNotConfirmed, err)
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrUserBlocked):
		return formError(sentence(err.Error()), err)
	default:
		s.logger.Error().Err(err).Msg("sign in failed")
		return formError(MsgLoginFailed, err)
	}
}

// SignUp stores a new account with the full name as metadata. It never signs in.
func (s *Service) SignUp(ctx context.Context, params SignUpParameters) (*SignUpResult, error) {
	params = params.normalised()
	if err := params.Validate(); err != nil {
		return nil, fieldErrors(err)
	}

	ident, err := s.provider.SignUp(ctx, params.Email, params.Password, map[string]any{
		"full_name": params.FullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUserAlreadyExists),
			errors.Is(err, identity.ErrWeakPassword):
			return nil, formError(sentence(err.Error()), err)
		default:
			s.logger.Error().Err(err).Msg("sign up failed")
			return nil, formError(MsgSignUpFailed, err)
		}
	}
	if ident == nil {
		return nil, formError(MsgSignUpFailed, nil)
	}

	return &SignUpResult{Identity: ident, PendingConfirmation: s.requiresConfirmation}, nil
}

// StartOAuth returns the URL that begins an OAuth sign-in with provider.
func (s *Service) StartOAuth(ctx context.Context, provider string) (string, error) {
	authURL, err := s.provider.SignInWithOAuth(ctx, provider, s.oauthRedirect)
	if err != nil {
		if errors.Is(err, identity.ErrUnknownOAuthProvider) {
			return "", formError(sentence(err.Error()), err)
		}
		s.logger.Error().Err(err).Str("provider", provider).Msg("oauth start failed")
		return "", formError(MsgOAuthFailed, err)
	}
	return authURL, nil
}

// CompleteOAuth finishes an OAuth sign-in. The result carries the new session
// and the path to land on.
func (s *Service) CompleteOAuth(ctx context.Context, state, code string) (*OAuthResult, error) {
	completer, ok := s.provider.(identity.OAuthCompleter)
	if !ok {
		return nil, ErrOAuthNotSupported
	}
	session, redirectTo, err := completer.CompleteOAuth(ctx, state, code)
	if err != nil {
		s.logger.Warn().Err(err).Msg("oauth completion failed")
		return nil, formError(MsgLoginFailed, err)
	}
	if session == nil || session.SubjectID() == "" {
		return nil, formError(MsgNoUserReturned, nil)
	}
	if redirectTo == "" {
		redirectTo = HomePath
	}
	return &OAuthResult{Session: session, RedirectTo: redirectTo}, nil
}
