package driven

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// CredentialsStore persists user integrations, one row per (user, provider).
type CredentialsStore interface {
	// Save stores a credential. Creates if new, updates if the
	// (user, provider) pair already exists.
	Save(ctx context.Context, cred domain.Credential) error

	// Get retrieves the credential a user holds for a provider.
	// Returns domain.ErrNotFound if the user has not connected the provider.
	Get(ctx context.Context, userID string, provider domain.Provider) (*domain.Credential, error)

	// ListByUser returns every integration of a user.
	ListByUser(ctx context.Context, userID string) ([]domain.Credential, error)

	// List returns all integrations across users.
	List(ctx context.Context) ([]domain.Credential, error)

	// UpdateToken replaces the access token and expiry after a refresh.
	// An empty refreshToken keeps the stored refresh token.
	UpdateToken(ctx context.Context, userID string, provider domain.Provider,
		accessToken, refreshToken, expiresAt string) error

	// Delete removes a user's integration with a provider.
	Delete(ctx context.Context, userID string, provider domain.Provider) error
}
