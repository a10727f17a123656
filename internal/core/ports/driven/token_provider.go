package driven

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// TokenProvider provides access tokens for authenticated API calls.
// Implementations handle token refresh transparently.
//
// This interface is designed to work alongside the Scheduler's proactive refresh:
//   - Scheduler: Proactive refresh every 45min so runs rarely wait on a refresh
//   - TokenProvider: Reactive refresh if the token is expiring when a run needs it
type TokenProvider interface {
	// GetValidToken returns an access token that will not expire within the
	// refresh skew. Tokens for providers without a refresh flow, and tokens
	// without an expiry, are returned as stored.
	GetValidToken(ctx context.Context, userID string, provider domain.Provider) (string, error)

	// ForceRefresh refreshes the token regardless of its expiry.
	// Used once after a provider rejects a token with 401.
	ForceRefresh(ctx context.Context, userID string, provider domain.Provider) (string, error)
}

// TokenRefresher performs the OAuth refresh-token exchange.
type TokenRefresher interface {
	// Refresh exchanges refreshToken for a new access token.
	// Failures wrap domain.ErrRefresh.
	Refresh(ctx context.Context, provider domain.Provider, refreshToken string) (*RefreshedToken, error)
}

// RefreshedToken is the result of a successful refresh exchange.
type RefreshedToken struct {
	AccessToken string
	// RefreshToken is set only when the provider rotated it.
	RefreshToken string
	// ExpiresIn is the lifetime in seconds reported by the provider, or zero.
	ExpiresIn int64
}
