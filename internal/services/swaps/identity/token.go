// Package identity resolves short-lived access tokens to swaps users.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
)

// DefaultTTL is the lifetime of an issued access token.
const DefaultTTL = 15 * time.Minute

const accessTokenType = "access"

// Config holds the shared HS256 secret and token lifetime.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (c Config) normalized() (Config, error) {
	if len(c.Secret) == 0 {
		return Config{}, errors.New("access token secret is required")
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}

// accessClaims is the JWT body: sub carries the user id.
type accessClaims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// Identity is an authenticated caller.
type Identity struct {
	UserID  string
	Name    string
	IsAdmin bool
}

// UserLookup loads the account bound to a token.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (storage.UserRecord, error)
}

// Issuer signs access tokens. The swaps service only verifies; the seed
// command and tests issue.
type Issuer struct {
	cfg Config
}

// NewIssuer validates cfg and returns an issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	normalized, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	return &Issuer{cfg: normalized}, nil
}

// Issue returns a signed access token for userID and its expiry.
func (i *Issuer) Issue(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	now := i.cfg.Now().UTC()
	expiresAt := now.Add(i.cfg.TTL)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type: accessTokenType,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verifier checks access tokens and resolves their user.
type Verifier struct {
	cfg   Config
	users UserLookup
}

// NewVerifier validates cfg and returns a verifier backed by users.
func NewVerifier(cfg Config, users UserLookup) (*Verifier, error) {
	normalized, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	if users == nil {
		return nil, errors.New("user lookup is required")
	}
	return &Verifier{cfg: normalized, users: users}, nil
}

// Subject verifies the token signature, type and expiry and returns the
// bound user id.
func (v *Verifier) Subject(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.New(apperrors.CodeSessionTokenInvalid, "access token is required")
	}

	var parsed accessClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	if parsed.Type != accessTokenType {
		return "", apperrors.New(apperrors.CodeSessionTokenInvalid, "token is not an access token")
	}
	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return "", apperrors.New(apperrors.CodeSessionTokenInvalid, "access token sub is required")
	}
	if parsed.ExpiresAt == nil {
		return "", apperrors.New(apperrors.CodeSessionTokenInvalid, "access token exp is required")
	}
	if !parsed.ExpiresAt.Time.After(v.cfg.Now()) {
		return "", apperrors.New(apperrors.CodeSessionTokenExpired, "access token is expired")
	}
	return subject, nil
}

// Resolve verifies token and loads its user. Unknown users are rejected as
// invalid tokens and banned users as unauthorized.
func (v *Verifier) Resolve(ctx context.Context, token string) (Identity, error) {
	subject, err := v.Subject(token)
	if err != nil {
		return Identity{}, err
	}
	user, err := v.users.GetUser(ctx, subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Identity{}, apperrors.Wrap(apperrors.CodeSessionTokenInvalid, "access token user not found", err)
		}
		return Identity{}, fmt.Errorf("load token user: %w", err)
	}
	if user.IsBanned {
		return Identity{}, apperrors.New(apperrors.CodeSessionUserBanned, "user is banned")
	}
	return Identity{UserID: user.ID, Name: user.Name, IsAdmin: user.IsAdmin}, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.New(apperrors.CodeSessionTokenInvalid, "access token signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.New(apperrors.CodeSessionTokenInvalid, "access token alg is invalid")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperrors.New(apperrors.CodeSessionTokenInvalid, "access token is malformed")
	default:
		return apperrors.Wrap(apperrors.CodeSessionTokenInvalid, "access token is invalid", err)
	}
}
