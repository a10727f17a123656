package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// RefreshSweep walks refreshable credentials and asks the token provider
// for a valid token, which refreshes any that are about to expire.
type RefreshSweep struct {
	creds  driven.CredentialsStore
	tokens driven.TokenProvider
}

// NewRefreshSweep creates a sweep.
func NewRefreshSweep(creds driven.CredentialsStore, tokens driven.TokenProvider) *RefreshSweep {
	return &RefreshSweep{creds: creds, tokens: tokens}
}

// Run checks every credential that can be refreshed. It returns the
// number checked and the joined errors of those that failed.
func (s *RefreshSweep) Run(ctx context.Context) (int, error) {
	creds, err := s.creds.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list credentials: %w", err)
	}

	var errs []error
	checked := 0
	for _, c := range creds {
		if !c.Provider.SupportsRefresh() || !c.HasRefreshToken() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return checked, err
		}
		checked++
		if _, err := s.tokens.GetValidToken(ctx, c.UserID, c.Provider); err != nil {
			logger.Warn("proactive refresh failed", "user_id", c.UserID, "provider", c.Provider.String(), "error", err)
			errs = append(errs, err)
		}
	}

	logger.Debug("refresh sweep completed", "checked", checked, "failed", len(errs))
	return checked, errors.Join(errs...)
}
