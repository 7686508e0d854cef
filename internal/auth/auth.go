// Package auth holds the remote-store credential for the process and
// fans out expiry notifications.
package auth

import (
	"sync"

	"github.com/rs/zerolog"
)

// CredentialStore persists the credential between runs.
type CredentialStore interface {
	LoadCredential() (string, error)
	SaveCredential(credential string) error
	DeleteCredential() error
}

type Manager struct {
	mu         sync.Mutex
	credential string
	onExpired  []func()

	store  CredentialStore
	logger zerolog.Logger
}

// NewManager restores any persisted credential. A load failure is logged
// and treated as "not signed in", never fatal.
func NewManager(store CredentialStore, logger zerolog.Logger) *Manager {
	m := &Manager{store: store, logger: logger}
	if store != nil {
		cred, err := store.LoadCredential()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to restore credential")
		} else {
			m.credential = cred
		}
	}
	return m
}

// Credential returns the current credential, or "" when signed out.
func (m *Manager) Credential() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential
}

// SetCredential stores a fresh credential after a successful consent flow.
func (m *Manager) SetCredential(credential string) {
	m.mu.Lock()
	m.credential = credential
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveCredential(credential); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist credential")
		}
	}
}

// Invalidate clears the credential in memory and on disk, then notifies
// expiry subscribers. Safe to call repeatedly.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	hadCredential := m.credential != ""
	m.credential = ""
	callbacks := make([]func(), len(m.onExpired))
	copy(callbacks, m.onExpired)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.DeleteCredential(); err != nil {
			m.logger.Error().Err(err).Msg("failed to clear persisted credential")
		}
	}

	if hadCredential {
		m.logger.Info().Msg("credential invalidated, re-authentication required")
	}
	for _, cb := range callbacks {
		cb()
	}
}

// OnExpired registers a callback run whenever the credential is invalidated.
func (m *Manager) OnExpired(cb func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpired = append(m.onExpired, cb)
}
