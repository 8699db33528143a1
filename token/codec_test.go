package token_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
	"github.com/jrsteele09/ziris-auth/token"
)

const testSecret = "unit-test-secret"

func newTestCodec(options ...token.CodecOption) *token.Codec {
	return token.NewCodec(token.NewHMACSigner(testSecret), zerolog.Nop(), options...)
}

func testClaims() token.AccessClaims {
	return token.AccessClaims{
		UserID:   "user-1",
		Username: "admin",
		Role:     "admin",
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec()

	raw, err := codec.Issue(testClaims(), time.Hour)
	require.NoError(t, err)

	verified, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", verified.UserID)
	assert.Equal(t, "admin", verified.Username)
	assert.Equal(t, "admin", verified.Role)
	assert.True(t, verified.ExpiresAt.After(time.Now()))
}

func TestIssueProducesThreeSegmentToken(t *testing.T) {
	codec := newTestCodec()

	raw, err := codec.Issue(testClaims(), time.Hour)
	require.NoError(t, err)

	segments := strings.Split(raw, ".")
	require.Len(t, segments, 3)

	header, err := base64.RawURLEncoding.DecodeString(segments[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"HS256","typ":"JWT"}`, string(header))

	payload, err := base64.RawURLEncoding.DecodeString(segments[1])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"exp":`)
}

func TestVerifyExpiredToken(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	issuer := newTestCodec(token.WithNowFunc(func() time.Time { return issuedAt }))

	raw, err := issuer.Issue(testClaims(), time.Hour)
	require.NoError(t, err)

	_, err = newTestCodec().Verify(raw)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestVerifyExpiryIsStrict(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	codec := newTestCodec(token.WithNowFunc(func() time.Time { return now }))

	raw, err := codec.Issue(testClaims(), time.Minute)
	require.NoError(t, err)

	// exactly at exp the token is already invalid
	atExpiry := newTestCodec(token.WithNowFunc(func() time.Time { return now.Add(time.Minute) }))
	_, err = atExpiry.Verify(raw)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestVerifyTamperedSignature(t *testing.T) {
	codec := newTestCodec()

	raw, err := codec.Issue(testClaims(), time.Hour)
	require.NoError(t, err)

	tampered := flipLastChar(raw)
	_, err = codec.Verify(tampered)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestVerifyTamperedPayload(t *testing.T) {
	codec := newTestCodec()

	raw, err := codec.Issue(testClaims(), time.Hour)
	require.NoError(t, err)

	segments := strings.Split(raw, ".")
	forged, err := base64.RawURLEncoding.DecodeString(segments[1])
	require.NoError(t, err)
	forgedPayload := base64.RawURLEncoding.EncodeToString(
		[]byte(strings.Replace(string(forged), `"role":"admin"`, `"role":"owner"`, 1)))

	_, err = codec.Verify(segments[0] + "." + forgedPayload + "." + segments[2])
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestVerifyWrongSecret(t *testing.T) {
	raw, err := newTestCodec().Issue(testClaims(), time.Hour)
	require.NoError(t, err)

	other := token.NewCodec(token.NewHMACSigner("a-different-secret"), zerolog.Nop())
	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
}

func TestVerifyMalformedTokens(t *testing.T) {
	codec := newTestCodec()

	for _, raw := range []string{
		"",
		"not-a-token",
		"one.two",
		"a.b.c.d",
		"!!!.###.$$$",
	} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken, "token %q", raw)
	}
}

func TestDecodeLegacyDisabledByDefault(t *testing.T) {
	codec := newTestCodec()

	_, ok := codec.DecodeLegacy("dummy-admin")
	assert.False(t, ok)
}

func TestDecodeLegacyEnabled(t *testing.T) {
	codec := newTestCodec(token.WithLegacyCompat(true))

	username, ok := codec.DecodeLegacy("dummy-admin")
	require.True(t, ok)
	assert.Equal(t, "admin", username)

	_, ok = codec.DecodeLegacy("dummy-")
	assert.False(t, ok)

	_, ok = codec.DecodeLegacy("eyJhbGciOi.something.else")
	assert.False(t, ok)
}

func flipLastChar(s string) string {
	last := s[len(s)-1]
	replacement := byte('A')
	if last == 'A' {
		replacement = 'B'
	}
	return s[:len(s)-1] + string(replacement)
}
