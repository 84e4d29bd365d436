// Package store persists the refresh token between sessions. The keychain
// implementation uses the OS secret store; the in-memory one backs hosts
// without a keychain and tests.
package store

import (
	"sync"

	"github.com/zalando/go-keyring"
)

// Store keeps the long-lived refresh token. The short-lived access token is
// never persisted.
type Store interface {
	SaveRefreshToken(token string) error
	RefreshToken() (string, error)
	Clear() error
}

const (
	keychainService = "stridedash"
	keychainAccount = "refresh_token"
)

// Keychain stores the refresh token in the OS keychain.
type Keychain struct{}

// NewKeychain creates a keychain-backed store.
func NewKeychain() *Keychain {
	return &Keychain{}
}

func (k *Keychain) SaveRefreshToken(token string) error {
	return keyring.Set(keychainService, keychainAccount, token)
}

func (k *Keychain) RefreshToken() (string, error) {
	token, err := keyring.Get(keychainService, keychainAccount)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	return token, err
}

func (k *Keychain) Clear() error {
	err := keyring.Delete(keychainService, keychainAccount)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}

// Memory is a process-lifetime store.
type Memory struct {
	mu    sync.Mutex
	token string
}

// NewMemory creates an in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveRefreshToken(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) RefreshToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
