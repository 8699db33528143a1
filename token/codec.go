// Package token issues and verifies the signed access tokens that prove a
// caller's identity and role to the rest of the system.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

// legacyTokenPrefix marks pre-JWT bearer tokens that carry a bare username.
// Accepted only when legacy compatibility is explicitly enabled.
const legacyTokenPrefix = "dummy-"

// AccessClaims is the identity carried by a verified access token.
// Immutable once issued; never trusted before signature validation.
type AccessClaims struct {
	UserID    string
	Username  string
	Role      string
	ExpiresAt time.Time
}

// Codec encodes and decodes HS256 access tokens.
type Codec struct {
	signer        Signer
	legacyEnabled bool
	log           zerolog.Logger
	nowFunc       func() time.Time
}

// CodecOption defines a function type to modify the Codec instance.
type CodecOption func(*Codec)

// WithNowFunc sets the clock function (primarily for testing)
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

// WithLegacyCompat enables the deprecated "dummy-" bearer token path.
func WithLegacyCompat(enabled bool) CodecOption {
	return func(c *Codec) {
		c.legacyEnabled = enabled
	}
}

// NewCodec creates a token codec backed by the given signer.
func NewCodec(signer Signer, log zerolog.Logger, options ...CodecOption) *Codec {
	c := &Codec{
		signer:  signer,
		log:     log,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Issue creates a signed access token carrying the claims with exp = now+ttl.
func (c *Codec) Issue(claims AccessClaims, ttl time.Duration) (string, error) {
	now := c.nowFunc()
	mapClaims := jwt.MapClaims{
		"sub":      claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"jti":      uuid.New().String(),
	}
	return c.signer.Sign(mapClaims)
}

// Verify parses and validates an access token. It fails with
// ErrInvalidSignature on a MAC mismatch, ErrTokenExpired once exp <= now, and
// ErrInvalidToken for anything structurally wrong. No claim is read before the
// signature checks out, and verification never mutates state.
func (c *Codec) Verify(raw string) (AccessClaims, error) {
	parsed, err := jwt.Parse(raw, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)
	if err != nil {
		switch {
		case apperrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return AccessClaims{}, apperrors.ErrInvalidSignature
		case apperrors.Is(err, jwt.ErrTokenExpired):
			return AccessClaims{}, apperrors.ErrTokenExpired
		default:
			return AccessClaims{}, apperrors.ErrInvalidToken
		}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, apperrors.ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	username, _ := mapClaims["username"].(string)
	role, _ := mapClaims["role"].(string)
	exp, _ := mapClaims["exp"].(float64)
	if sub == "" {
		return AccessClaims{}, apperrors.ErrInvalidToken
	}

	return AccessClaims{
		UserID:    sub,
		Username:  username,
		Role:      role,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

// DecodeLegacy maps a "dummy-" prefixed bearer token directly to a username.
// Returns false when the token is not a legacy token or compatibility is off.
// Every accepted legacy token is logged as deprecated.
func (c *Codec) DecodeLegacy(raw string) (string, bool) {
	if !strings.HasPrefix(raw, legacyTokenPrefix) {
		return "", false
	}
	if !c.legacyEnabled {
		c.log.Warn().Msg("rejected legacy bearer token: compatibility mode disabled")
		return "", false
	}
	username := strings.TrimPrefix(raw, legacyTokenPrefix)
	if username == "" {
		return "", false
	}
	c.log.Warn().Str("username", username).Msg("deprecated legacy bearer token used")
	return username, true
}
