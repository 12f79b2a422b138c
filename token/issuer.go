package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	refreshTokenLength = 32 // 32 bytes = 256 bits
	defaultIssuer      = "go-storefront"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the identity claims carried by a session access token.
type Claims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Issued is a freshly minted access/refresh token pair.
type Issued struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Issuer mints and verifies HS256 session tokens.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	nowTime func() time.Time
}

// IssuerOption defines a function type to modify the Issuer instance.
type IssuerOption func(*Issuer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = nowFunc
	}
}

// WithIssuerName overrides the "iss" claim.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = name
	}
}

func NewIssuer(secret []byte, ttl time.Duration, options ...IssuerOption) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("[NewIssuer] secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewIssuer] ttl must be positive")
	}
	i := &Issuer{
		secret:  secret,
		ttl:     ttl,
		issuer:  defaultIssuer,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// Issue creates an access token for the subject together with a random refresh token.
func (i *Issuer) Issue(subject, email string) (Issued, error) {
	now := i.nowTime()
	expiresAt := now.Add(i.ttl)

	claims := jwtlib.MapClaims{
		"iss":   i.issuer,
		"sub":   subject,
		"email": email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"jti":   uuid.New().String(),
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("[Issuer Issue] failed to sign JWT token: %w", err)
	}

	refresh, err := NewRefreshToken()
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:  signed,
		RefreshToken: refresh,
		ExpiresAt:    time.Unix(expiresAt.Unix(), 0),
	}, nil
}

// Parse verifies the signature and expiry of an access token and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidToken
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(i.issuer),
		jwtlib.WithTimeFunc(i.nowTime),
		jwtlib.WithExpirationRequired(),
	)

	parsed, err := parser.Parse(raw, func(*jwtlib.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := mapClaims.GetSubject()
	iat, _ := mapClaims.GetIssuedAt()
	exp, _ := mapClaims.GetExpirationTime()
	email, _ := mapClaims["email"].(string)
	jti, _ := mapClaims["jti"].(string)

	c := &Claims{Subject: sub, Email: email, ID: jti}
	if iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// NewRefreshToken creates a random base64url refresh token
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[NewRefreshToken] failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
