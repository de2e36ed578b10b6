package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/authsession/internal/model"
)

// TypeRefresh is the type discriminator carried by every refresh token.
const TypeRefresh = "refresh"

// AccessClaims is the claim set of a bearer access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email        string           `json:"email"`
	Username     string           `json:"username"`
	Role         model.Role       `json:"role"`
	Status       model.UserStatus `json:"status"`
	SessionID    string           `json:"session_id"`
	MFAVerified  bool             `json:"mfa_verified"`
	AuthProvider string           `json:"auth_provider"`
}

// UserID parses the subject as a user id.
func (c AccessClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Expiry returns the exp claim or the zero time when it is missing.
func (c AccessClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// RefreshClaims is the claim set of a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
}

// Expiry returns the exp claim or the zero time when it is missing.
func (c RefreshClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// JWT signs and verifies access and refresh tokens with separate HMAC secrets,
// so a leaked access secret cannot forge refresh tokens.
type JWT struct {
	accessSecret  []byte
	refreshSecret []byte
	method        *jwt.SigningMethodHMAC
	now           func() time.Time
}

// Option configures a JWT codec.
type Option func(*JWT)

// WithClock replaces the wall clock used to validate exp and iat.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		j.now = now
	}
}

// NewJWT creates a codec for the given secrets and HMAC algorithm (HS256, HS384 or HS512).
func NewJWT(accessSecret, refreshSecret, algorithm string, opts ...Option) (*JWT, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	j := &JWT{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		method:        method,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Algorithm returns the configured signing algorithm name.
func (j *JWT) Algorithm() string {
	return j.method.Alg()
}

// SignAccess signs an access claim set.
func (j *JWT) SignAccess(claims AccessClaims) (string, error) {
	tokenString, err := jwt.NewWithClaims(j.method, claims).SignedString(j.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// SignRefresh signs a refresh claim set. The type discriminator is always set.
func (j *JWT) SignRefresh(claims RefreshClaims) (string, error) {
	claims.Type = TypeRefresh
	tokenString, err := jwt.NewWithClaims(j.method, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return tokenString, nil
}

// ParseAccess verifies signature and expiry of an access token and returns its claims.
func (j *JWT) ParseAccess(tokenString string) (AccessClaims, error) {
	claims := AccessClaims{}
	if err := j.parse(tokenString, &claims, j.accessSecret); err != nil {
		return AccessClaims{}, err
	}
	if claims.Subject == "" || claims.SessionID == "" || claims.ID == "" {
		return AccessClaims{}, fmt.Errorf("%w: missing required claims", model.ErrTokenInvalid)
	}
	return claims, nil
}

// ParseRefresh verifies signature, expiry and type of a refresh token and returns its claims.
func (j *JWT) ParseRefresh(tokenString string) (RefreshClaims, error) {
	claims := RefreshClaims{}
	if err := j.parse(tokenString, &claims, j.refreshSecret); err != nil {
		return RefreshClaims{}, err
	}
	if claims.Type != TypeRefresh {
		return RefreshClaims{}, fmt.Errorf("%w: token type mismatch: %s", model.ErrTokenInvalid, claims.Type)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return RefreshClaims{}, fmt.Errorf("%w: missing required claims", model.ErrTokenInvalid)
	}
	return claims, nil
}

func (j *JWT) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if strings.TrimSpace(tokenString) == "" {
		return model.ErrMalformedToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.ErrTokenExpired
	case err != nil:
		return fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	case !token.Valid:
		return model.ErrTokenInvalid
	}
	return nil
}
