package config

import (
	"errors"
	"time"
)

type SessionConfig interface {
	GetTokenSecret() []byte
	GetAccessTokenTTL() time.Duration
	GetTokenRefreshInterval() time.Duration
	GetRequireEmailConfirmation() bool
	GetProfileTimeout() time.Duration
	GetGuardWait() time.Duration
	GetVisitorTTL() time.Duration
}

type Session struct {
	TokenSecret              string        `env:"SESSION_TOKEN_SECRET"`
	AccessTokenTTL           time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	TokenRefreshInterval     time.Duration `env:"TOKEN_REFRESH_INTERVAL" envDefault:"0s"`
	RequireEmailConfirmation bool          `env:"REQUIRE_EMAIL_CONFIRMATION" envDefault:"false"`
	ProfileTimeout           time.Duration `env:"PROFILE_TIMEOUT" envDefault:"5s"`
	GuardWait                time.Duration `env:"GUARD_WAIT" envDefault:"2s"`
	VisitorTTL               time.Duration `env:"VISITOR_TTL" envDefault:"30m"`
}

var _ SessionConfig = Session{}

const devTokenSecret = "dev-only-storefront-secret"

func (s Session) validate(dev bool) error {
	if s.TokenSecret == "" && !dev {
		return errors.New("[config Session] SESSION_TOKEN_SECRET is required outside DEV")
	}
	if s.ProfileTimeout <= 0 {
		return errors.New("[config Session] PROFILE_TIMEOUT must be positive")
	}
	return nil
}

func (s Session) GetTokenSecret() []byte {
	if s.TokenSecret == "" {
		return []byte(devTokenSecret)
	}
	return []byte(s.TokenSecret)
}

func (s Session) GetAccessTokenTTL() time.Duration {
	return s.AccessTokenTTL
}

// GetTokenRefreshInterval returns how often the identity provider re-issues
// access tokens. Zero disables refresh.
func (s Session) GetTokenRefreshInterval() time.Duration {
	return s.TokenRefreshInterval
}

func (s Session) GetRequireEmailConfirmation() bool {
	return s.RequireEmailConfirmation
}

func (s Session) GetProfileTimeout() time.Duration {
	return s.ProfileTimeout
}

func (s Session) GetGuardWait() time.Duration {
	return s.GuardWait
}

func (s Session) GetVisitorTTL() time.Duration {
	return s.VisitorTTL
}
