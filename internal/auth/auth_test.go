package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("test-secret")

	token, err := j.Sign(42)
	require.NoError(t, err)

	uid, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Sign(1)
	require.NoError(t, err)

	_, err = NewJWT("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestJWTGarbage(t *testing.T) {
	_, err := NewJWT("s").Verify("not.a.token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, ComparePassword(hash, "hunter22"))
	assert.False(t, ComparePassword(hash, "hunter23"))
}
