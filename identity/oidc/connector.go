// Package oidc signs users in with an external OpenID Connect provider
// (e.g. Google) using the authorization code flow.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-storefront/identity"
	"golang.org/x/oauth2"
)

var ErrNonceMismatch = errors.New("id token nonce mismatch")

// ConnectorConfig holds configuration for a connector.
type ConnectorConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string     // Defaults to openid, profile, email
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
}

// Connector implements the OAuth connector of the local identity provider.
type Connector struct {
	config     *oauth2.Config
	verifier   *gooidc.IDTokenVerifier
	httpClient *http.Client
}

// NewConnector discovers the issuer's endpoints and keys and returns a ready connector.
func NewConnector(ctx context.Context, cfg ConnectorConfig) (*Connector, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("[oidc NewConnector] issuer is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[oidc NewConnector] client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("[oidc NewConnector] client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("[oidc NewConnector] redirect URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	provider, err := gooidc.NewProvider(ctx, strings.TrimSuffix(cfg.Issuer, "/"))
	if err != nil {
		return nil, fmt.Errorf("[oidc NewConnector] failed to create OIDC provider: %w", err)
	}

	return &Connector{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier:   provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		httpClient: httpClient,
	}, nil
}

// AuthCodeURL returns the authorization endpoint URL for a new sign-in.
func (c *Connector) AuthCodeURL(state, nonce string) string {
	return c.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

type idTokenClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nonce         string `json:"nonce"`
}

// Exchange trades the authorization code for tokens, verifies the ID token and
// its nonce, and returns the external identity.
func (c *Connector) Exchange(ctx context.Context, code, nonce string) (identity.Identity, error) {
	if code == "" {
		return identity.Identity{}, errors.New("[oidc Exchange] authorization code is required")
	}

	ctx = gooidc.ClientContext(ctx, c.httpClient)
	oauth2Token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("[oidc Exchange] token exchange failed: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return identity.Identity{}, errors.New("[oidc Exchange] no id_token in token response")
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("[oidc Exchange] id token verification failed: %w", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return identity.Identity{}, fmt.Errorf("[oidc Exchange] failed to extract claims: %w", err)
	}
	if claims.Nonce != nonce {
		return identity.Identity{}, ErrNonceMismatch
	}
	if claims.Email == "" {
		return identity.Identity{}, errors.New("[oidc Exchange] id token carries no email")
	}

	return identity.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Metadata: map[string]any{
			"full_name":      claims.Name,
			"email_verified": claims.EmailVerified,
			"provider_sub":   claims.Subject,
		},
	}, nil
}
