// Package memory provides in-memory implementations of the persistence
// ports. They back the "memory" database driver for throwaway runs and
// serve as fakes in adapter tests. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// Ensure CredentialsStore implements the interface.
var _ driven.CredentialsStore = (*CredentialsStore)(nil)

type credentialKey struct {
	userID   string
	provider domain.Provider
}

// CredentialsStore is an in-memory implementation of driven.CredentialsStore.
type CredentialsStore struct {
	mu     sync.RWMutex
	nextID int64
	creds  map[credentialKey]domain.Credential
}

// NewCredentialsStore creates a new in-memory credentials store.
func NewCredentialsStore() *CredentialsStore {
	return &CredentialsStore{
		creds: make(map[credentialKey]domain.Credential),
	}
}

// Save stores or updates the (user, provider) integration.
func (s *CredentialsStore) Save(_ context.Context, cred domain.Credential) error {
	if cred.UserID == "" || cred.Provider == "" {
		return fmt.Errorf("credential needs user and provider: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey{cred.UserID, cred.Provider}
	now := time.Now().UTC()
	if existing, ok := s.creds[key]; ok {
		cred.ID = existing.ID
		cred.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		cred.ID = s.nextID
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	cred.Metadata = copyMetadata(cred.Metadata)
	s.creds[key] = cred
	return nil
}

// Get retrieves the credential a user holds for a provider.
func (s *CredentialsStore) Get(_ context.Context, userID string, provider domain.Provider) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[credentialKey{userID, provider}]
	if !ok {
		return nil, fmt.Errorf("%s integration for user %s: %w", provider, userID, domain.ErrNotFound)
	}
	cred.Metadata = copyMetadata(cred.Metadata)
	return &cred, nil
}

// ListByUser returns every integration of a user ordered by provider.
func (s *CredentialsStore) ListByUser(ctx context.Context, userID string) ([]domain.Credential, error) {
	all, _ := s.List(ctx)
	result := make([]domain.Credential, 0, 2)
	for _, cred := range all {
		if cred.UserID == userID {
			result = append(result, cred)
		}
	}
	return result, nil
}

// List returns all integrations ordered by user and provider.
func (s *CredentialsStore) List(_ context.Context) ([]domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Credential, 0, len(s.creds))
	for _, cred := range s.creds {
		cred.Metadata = copyMetadata(cred.Metadata)
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		return result[i].Provider < result[j].Provider
	})
	return result, nil
}

// UpdateToken replaces the access token and expiry after a refresh.
func (s *CredentialsStore) UpdateToken(
	_ context.Context, userID string, provider domain.Provider, accessToken, refreshToken, expiresAt string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey{userID, provider}
	cred, ok := s.creds[key]
	if !ok {
		return fmt.Errorf("%s integration for user %s: %w", provider, userID, domain.ErrNotFound)
	}
	cred.AccessToken = accessToken
	if refreshToken != "" {
		cred.RefreshToken = refreshToken
	}
	cred.ExpiresAt = expiresAt
	cred.UpdatedAt = time.Now().UTC()
	s.creds[key] = cred
	return nil
}

// Delete removes a user's integration with a provider.
func (s *CredentialsStore) Delete(_ context.Context, userID string, provider domain.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := credentialKey{userID, provider}
	if _, ok := s.creds[key]; !ok {
		return fmt.Errorf("%s integration for user %s: %w", provider, userID, domain.ErrNotFound)
	}
	delete(s.creds, key)
	return nil
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
