package emailtoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	s := NewSigner("server-secret", time.Hour)
	tok, err := s.Sign(42, "salt-a")
	require.NoError(t, err)

	id, err := s.Verify(tok, "salt-a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestVerify_WrongSalt(t *testing.T) {
	s := NewSigner("server-secret", time.Hour)
	tok, err := s.Sign(42, "salt-a")
	require.NoError(t, err)

	_, err = s.Verify(tok, "salt-b")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, err := NewSigner("one", time.Hour).Sign(42, "salt")
	require.NoError(t, err)

	_, err = NewSigner("two", time.Hour).Verify(tok, "salt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_Expired(t *testing.T) {
	s := NewSigner("server-secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	s.now = func() time.Time { return issued }
	tok, err := s.Sign(42, "salt")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(tok, "salt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_Garbage(t *testing.T) {
	s := NewSigner("server-secret", time.Hour)
	_, err := s.Verify("not-a-token", "salt")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = s.Verify("", "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSign_EmptySalt(t *testing.T) {
	_, err := NewSigner("s", time.Hour).Sign(1, "")
	assert.Error(t, err)
}
