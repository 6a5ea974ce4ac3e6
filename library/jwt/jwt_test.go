package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	s, err := NewSigner([]byte("secret"), time.Hour)
	require.NoError(t, err)

	token, expireAt, err := s.Sign("admin")
	require.NoError(t, err)
	require.True(t, expireAt.After(time.Now()))

	claims, err := s.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Username)
}

func TestSignerRejects(t *testing.T) {
	s, err := NewSigner([]byte("secret"), time.Hour)
	require.NoError(t, err)
	token, _, err := s.Sign("admin")
	require.NoError(t, err)

	other, err := NewSigner([]byte("other"), time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(token)
	require.Error(t, err, "wrong secret")

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Parse(token)
	require.Error(t, err, "expired")

	_, err = NewSigner(nil, time.Hour)
	require.Error(t, err)
	_, _, err = s.Sign("")
	require.Error(t, err)
}
