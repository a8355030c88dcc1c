package recapi

import "sync"

// CredentialStore holds the bearer token attached to outgoing requests.
// Implementations must be safe for concurrent use.
type CredentialStore interface {
	// Token returns the stored token and whether one is present.
	Token() (string, bool)
	SetToken(token string) error
	// Clear forgets the token. It is called when the server answers 401.
	Clear() error
}

// MemoryCredentialStore keeps the token in memory.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryCredentialStore creates a store holding token, which may be empty.
func NewMemoryCredentialStore(token string) *MemoryCredentialStore {
	return &MemoryCredentialStore{token: token}
}

// Token implements CredentialStore.
func (s *MemoryCredentialStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.token != ""
}

// SetToken implements CredentialStore.
func (s *MemoryCredentialStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token

	return nil
}

// Clear implements CredentialStore.
func (s *MemoryCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""

	return nil
}
