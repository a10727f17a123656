// Package auth keeps provider access tokens valid across runs.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// Defaults for TokenManager.
const (
	// DefaultRefreshSkew refreshes tokens this long before they expire.
	DefaultRefreshSkew = 5 * time.Minute
	// DefaultExpiresIn is assumed when the token endpoint omits expires_in.
	DefaultExpiresIn = time.Hour
)

// Ensure TokenManager implements the TokenProvider interface.
var _ driven.TokenProvider = (*TokenManager)(nil)

// Options tunes TokenManager.
type Options struct {
	// RefreshSkew is how early an expiring token is refreshed.
	RefreshSkew time.Duration
	// DefaultExpiresIn is the lifetime used when the provider reports none.
	DefaultExpiresIn time.Duration
	// StrictExpiry treats an unparsable expiry as expired.
	// The default trusts the stored token and logs a warning.
	StrictExpiry bool
}

// TokenManager hands out valid access tokens, refreshing and persisting
// them when they are about to expire. Refreshes for one (user, provider)
// pair are serialised through the Locker.
type TokenManager struct {
	store     driven.CredentialsStore
	refresher driven.TokenRefresher
	locker    driven.Locker
	metrics   driven.Metrics
	opts      Options
	now       func() time.Time
}

// NewTokenManager creates a token manager. A nil metrics discards counters.
func NewTokenManager(
	store driven.CredentialsStore,
	refresher driven.TokenRefresher,
	locker driven.Locker,
	metrics driven.Metrics,
	opts Options,
) *TokenManager {
	if opts.RefreshSkew <= 0 {
		opts.RefreshSkew = DefaultRefreshSkew
	}
	if opts.DefaultExpiresIn <= 0 {
		opts.DefaultExpiresIn = DefaultExpiresIn
	}
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &TokenManager{
		store:     store,
		refresher: refresher,
		locker:    locker,
		metrics:   metrics,
		opts:      opts,
		now:       time.Now,
	}
}

// GetValidToken returns the stored token, refreshing it first if it
// expires within the skew.
func (m *TokenManager) GetValidToken(ctx context.Context, userID string, provider domain.Provider) (string, error) {
	// Fast path: no lock while the stored token is still good.
	cred, err := m.load(ctx, userID, provider)
	if err != nil {
		return "", err
	}
	if !m.needsRefresh(cred) {
		return cred.AccessToken, nil
	}

	unlock, err := m.locker.Lock(ctx, lockKey(userID, provider))
	if err != nil {
		return "", fmt.Errorf("lock %s token for %s: %w", provider, userID, err)
	}
	defer unlock()

	// Double-check: a concurrent run may have refreshed while we waited.
	cred, err = m.load(ctx, userID, provider)
	if err != nil {
		return "", err
	}
	if !m.needsRefresh(cred) {
		return cred.AccessToken, nil
	}

	return m.refresh(ctx, cred)
}

// ForceRefresh refreshes regardless of the stored expiry.
func (m *TokenManager) ForceRefresh(ctx context.Context, userID string, provider domain.Provider) (string, error) {
	if !provider.SupportsRefresh() {
		return "", fmt.Errorf("%s has no refresh flow: %w", provider, domain.ErrRefresh)
	}

	unlock, err := m.locker.Lock(ctx, lockKey(userID, provider))
	if err != nil {
		return "", fmt.Errorf("lock %s token for %s: %w", provider, userID, err)
	}
	defer unlock()

	cred, err := m.load(ctx, userID, provider)
	if err != nil {
		return "", err
	}
	return m.refresh(ctx, cred)
}

func (m *TokenManager) load(ctx context.Context, userID string, provider domain.Provider) (*domain.Credential, error) {
	cred, err := m.store.Get(ctx, userID, provider)
	if err != nil {
		return nil, fmt.Errorf("get %s credential for %s: %w", provider, userID, err)
	}
	return cred, nil
}

func (m *TokenManager) needsRefresh(cred *domain.Credential) bool {
	if !cred.Provider.SupportsRefresh() || !cred.Expires() {
		return false
	}

	expiry, err := domain.ParseTimestamp(cred.ExpiresAt)
	if err != nil {
		logger.Warn("unparsable token expiry",
			"user_id", cred.UserID,
			"provider", cred.Provider.String(),
			"expires_at", cred.ExpiresAt,
			"strict", m.opts.StrictExpiry,
		)
		return m.opts.StrictExpiry
	}

	return !m.now().Add(m.opts.RefreshSkew).Before(expiry)
}

// refresh exchanges the refresh token and persists the result before
// handing out the new access token. Callers hold the lock.
func (m *TokenManager) refresh(ctx context.Context, cred *domain.Credential) (string, error) {
	provider := cred.Provider
	if !cred.HasRefreshToken() {
		m.metrics.RecordRefresh(provider.String(), false)
		return "", fmt.Errorf("%s credential for %s has no refresh token: %w", provider, cred.UserID, domain.ErrRefresh)
	}

	tok, err := m.refresher.Refresh(ctx, provider, cred.RefreshToken)
	if err != nil {
		m.metrics.RecordRefresh(provider.String(), false)
		return "", fmt.Errorf("refresh %s token for %s: %w", provider, cred.UserID, err)
	}

	lifetime := m.opts.DefaultExpiresIn
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}
	expiresAt := domain.FormatExpiry(m.now().Add(lifetime))

	if err := m.store.UpdateToken(ctx, cred.UserID, provider, tok.AccessToken, tok.RefreshToken, expiresAt); err != nil {
		m.metrics.RecordRefresh(provider.String(), false)
		return "", fmt.Errorf("persist refreshed %s token for %s: %w: %w", provider, cred.UserID, domain.ErrRefresh, err)
	}

	m.metrics.RecordRefresh(provider.String(), true)
	logger.Info("refreshed access token",
		"user_id", cred.UserID,
		"provider", provider.String(),
		"expires_at", expiresAt,
	)
	return tok.AccessToken, nil
}

func lockKey(userID string, provider domain.Provider) string {
	return "token:" + userID + ":" + provider.String()
}
