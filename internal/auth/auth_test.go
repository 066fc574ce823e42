package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("test-secret")

	token, err := j.Sign("user-123", "ADMIN")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", id.UserID)
	assert.Equal(t, "ADMIN", id.Role)
	assert.True(t, id.IsAdmin())
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Sign("user-123", "USER")
	require.NoError(t, err)

	_, err = NewJWT("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestJWTRejectsGarbage(t *testing.T) {
	j := NewJWT("test-secret")

	for _, tok := range []string{"", "not.a.jwt", "a.b.c"} {
		_, err := j.Verify(tok)
		assert.Error(t, err, "token %q", tok)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, ComparePassword(hash, "correct horse battery staple"))
	assert.False(t, ComparePassword(hash, "wrong password"))
	assert.False(t, ComparePassword("", "anything"))
}

func TestPinHashing(t *testing.T) {
	hash, err := HashPin("4921")
	require.NoError(t, err)

	assert.True(t, ComparePin(hash, "4921"))
	assert.False(t, ComparePin(hash, "0000"))
}
