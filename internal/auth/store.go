// Package auth persists the bearer credential of the CLI and inspects JWTs.
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// credentialsFile is the on-disk shape of the credential store.
type credentialsFile struct {
	Token     string    `yaml:"token"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// FileStore is a recapi.CredentialStore backed by a YAML file.
type FileStore struct {
	path string

	mutex  sync.RWMutex
	token  string
	loaded bool
}

// DefaultCredentialsPath returns ~/.recapi/credentials.yml.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", constants.ErrNoHomeDirectory
	}

	return filepath.Join(home, constants.ConfigDirName, constants.CredentialsFileName), nil
}

// NewFileStore creates a store at path. The file is read on first use.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the credentials file.
func (s *FileStore) Path() string {
	return s.path
}

// Token implements recapi.CredentialStore.Token.
func (s *FileStore) Token() (string, bool) {
	s.mutex.RLock()
	if s.loaded {
		defer s.mutex.RUnlock()

		return s.token, s.token != ""
	}
	s.mutex.RUnlock()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.loaded {
		s.token, _ = s.read()
		s.loaded = true
	}

	return s.token, s.token != ""
}

// SetToken implements recapi.CredentialStore.SetToken.
func (s *FileStore) SetToken(token string) error {
	if token == "" {
		return constants.ErrEmptyToken
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.write(credentialsFile{Token: token, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	s.token = token
	s.loaded = true

	return nil
}

// Clear implements recapi.CredentialStore.Clear. A missing file is not an error.
func (s *FileStore) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = ""
	s.loaded = true

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	return nil
}

func (s *FileStore) read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds credentialsFile

	err = yaml.Unmarshal(data, &creds)
	if err != nil {
		return "", fmt.Errorf("failed to parse credentials: %w", err)
	}

	return creds.Token, nil
}

func (s *FileStore) write(creds credentialsFile) error {
	err := os.MkdirAll(filepath.Dir(s.path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := yaml.Marshal(&creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	err = os.WriteFile(s.path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	return nil
}
