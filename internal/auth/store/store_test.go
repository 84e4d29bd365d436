package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridedash/stridedash/internal/config"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemory()

	token, err := s.RefreshToken()
	require.NoError(t, err)
	assert.Empty(t, token, "fresh store holds no token")

	require.NoError(t, s.SaveRefreshToken("R1"))
	token, err = s.RefreshToken()
	require.NoError(t, err)
	assert.Equal(t, "R1", token)

	require.NoError(t, s.SaveRefreshToken("R2"))
	token, err = s.RefreshToken()
	require.NoError(t, err)
	assert.Equal(t, "R2", token, "save replaces the rotated token")

	require.NoError(t, s.Clear())
	token, err = s.RefreshToken()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestNewPicksImplementation(t *testing.T) {
	s := New(&config.OAuthConfig{})
	_, ok := s.(*Memory)
	assert.True(t, ok, "keychain disabled defaults to the in-memory store")

	s = New(&config.OAuthConfig{Keychain: true})
	_, ok = s.(*Keychain)
	assert.True(t, ok)
}
