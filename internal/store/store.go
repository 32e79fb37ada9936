// Package store persists the client's local identity and preferences as a
// JSON file under the user config directory.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// State is everything the client remembers across restarts that is not a
// secret (tokens live in the system keychain) and not server-owned.
type State struct {
	// Fingerprint identifies this installation to the service. Generated
	// once on first run and never changed.
	Fingerprint string `json:"fingerprint,omitempty"`
	// DeviceID is assigned by the service at registration. Set once.
	DeviceID string `json:"deviceId,omitempty"`
	// Email of the signed-in account, for pre-filling the login form.
	Email          string   `json:"email,omitempty"`
	Favorites      []string `json:"favorites,omitempty"`
	LastEndpointID string   `json:"lastEndpointId,omitempty"`
}

// Store reads and writes the state file. All mutating methods persist
// immediately.
type Store struct {
	mu    sync.Mutex
	path  string
	state State
}

// DefaultDir returns the per-user data directory for the client.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "sacvpn"), nil
}

// Open loads the state file from dir, creating the directory if needed.
// A missing file yields empty state.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}

	s := &Store{path: filepath.Join(dir, "state.json")}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read state %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	return s, nil
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Favorites = append([]string(nil), s.state.Favorites...)
	return st
}

// EnsureFingerprint returns the installation fingerprint, generating and
// persisting one on first call.
func (s *Store) EnsureFingerprint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Fingerprint != "" {
		return s.state.Fingerprint, nil
	}
	s.state.Fingerprint = uuid.NewString()
	if err := s.saveLocked(); err != nil {
		return "", err
	}
	return s.state.Fingerprint, nil
}

// SetDeviceID records the service-assigned device ID. A device ID, once
// set, is never overwritten.
func (s *Store) SetDeviceID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.DeviceID != "" {
		return nil
	}
	s.state.DeviceID = id
	return s.saveLocked()
}

// DeviceID returns the cached device ID, empty when not yet registered.
func (s *Store) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeviceID
}

// SetEmail remembers the signed-in account.
func (s *Store) SetEmail(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Email = email
	return s.saveLocked()
}

// SetFavorites persists the favorite endpoint IDs.
func (s *Store) SetFavorites(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Favorites = append([]string(nil), ids...)
	return s.saveLocked()
}

// SetLastEndpoint persists the most recently connected endpoint ID.
func (s *Store) SetLastEndpoint(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastEndpointID = id
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write state %s: %w", s.path, err)
	}
	return nil
}
