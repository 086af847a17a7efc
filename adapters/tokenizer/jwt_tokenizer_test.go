package tokenizer

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/questor/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newSession(issued time.Time) *core.Session {
	return &core.Session{
		ID:        "4b2a6f57-1f53-4a40-9a43-4bb2c0bd1c9a",
		Address:   "0xabc0000000000000000000000000000000000001",
		AccountID: 7,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(24 * time.Hour),
	}
}

func TestNewJWTTokenizerRequiresSecret(t *testing.T) {
	_, err := NewJWTTokenizer("")
	assert.ErrorIs(t, err, core.ErrMissingSecret)
}

func TestSessionRoundTrip(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &clock{t: issued}
	tk, err := NewJWTTokenizer("test-secret", WithClock(c.Now))
	require.NoError(t, err)

	token, err := tk.SessionToToken(newSession(issued))
	require.NoError(t, err)

	session, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", session.Address)
	assert.Equal(t, int64(7), session.AccountID)
	assert.Equal(t, "4b2a6f57-1f53-4a40-9a43-4bb2c0bd1c9a", session.ID)
	assert.True(t, session.ExpiresAt.Equal(issued.Add(24*time.Hour)))
}

func TestSessionExpiryWindow(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &clock{t: issued}
	tk, err := NewJWTTokenizer("test-secret", WithClock(c.Now))
	require.NoError(t, err)

	token, err := tk.SessionToToken(newSession(issued))
	require.NoError(t, err)

	c.t = issued.Add(23*time.Hour + 59*time.Minute)
	_, err = tk.TokenToSession(token)
	assert.NoError(t, err)

	c.t = issued.Add(24*time.Hour + time.Minute)
	_, err = tk.TokenToSession(token)
	assert.Error(t, err)
}

func TestTokenToSessionRejects(t *testing.T) {
	issued := time.Now()
	tk, err := NewJWTTokenizer("test-secret")
	require.NoError(t, err)
	good, err := tk.SessionToToken(newSession(issued))
	require.NoError(t, err)

	other, err := NewJWTTokenizer("another-secret")
	require.NoError(t, err)
	forged, err := other.SessionToToken(newSession(issued))
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "0xabc",
			Audience:  jwt.ClaimStrings{AudienceSession},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "0xabc",
			Audience:  jwt.ClaimStrings{"session:access"},
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "0xabc",
			Audience: jwt.ClaimStrings{AudienceSession},
			IssuedAt: jwt.NewNumericDate(issued),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tampered := good[:len(good)-2] + "xx"

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"bad signature":  forged,
		"alg none":       noneToken,
		"wrong audience": wrongAudience,
		"no expiry":      noExpiry,
		"tampered":       tampered,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tk.TokenToSession(token)
			assert.Error(t, err)
		})
	}
}
