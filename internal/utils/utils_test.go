package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
    hash, err := HashPassword("correct horse", bcrypt.MinCost)
    require.NoError(t, err)
    assert.NotEqual(t, "correct horse", hash)
    assert.True(t, VerifyPassword(hash, "correct horse"))
    assert.False(t, VerifyPassword(hash, "wrong horse"))
    assert.False(t, VerifyPassword("", ""))
}

func TestContentHashIsDeterministic(t *testing.T) {
    // sha256("abc")
    assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", ContentHash("abc"))
    assert.Equal(t, ContentHash("Room 204"), ContentHash("Room 204"))
    assert.NotEqual(t, ContentHash("Room 204"), ContentHash("Room 205"))
}

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "RA", 15)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

    claims, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, uint64(42), claims.UserID)
    assert.Equal(t, "RA", claims.Role)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "admin", 15)
    require.NoError(t, err)
    _, err = ParseAccessToken("other", tok.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
    claims := jwt.MapClaims{"sub": "7", "role": "student", "exp": time.Now().Add(-time.Minute).Unix()}
    raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", raw)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessTokenRequiresExpiry(t *testing.T) {
    raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7"}).SignedString([]byte("s3cret"))
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", raw)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHashing(t *testing.T) {
    rt, err := NewRefreshToken(30)
    require.NoError(t, err)
    assert.Len(t, rt.Raw, 96)
    assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
    assert.Len(t, HashRefreshRaw(rt.Raw), 64)
}
