package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// countingTokens records which credentials were checked.
type countingTokens struct {
	mockTokenProvider
	checked []string
	fail    map[string]bool
}

func (c *countingTokens) GetValidToken(_ context.Context, userID string, provider domain.Provider) (string, error) {
	c.checked = append(c.checked, userID+"/"+provider.String())
	if c.fail[userID] {
		return "", fmt.Errorf("refresh %s: %w", userID, domain.ErrRefresh)
	}
	return "tok", nil
}

func TestRefreshSweep_ChecksRefreshableOnly(t *testing.T) {
	noRefresh := googleCred("u3")
	noRefresh.RefreshToken = ""
	creds := newMockCredentialsStore(notionCred("u1"), googleCred("u1"), googleCred("u2"), noRefresh)
	tokens := &countingTokens{fail: map[string]bool{"u2": true}}

	checked, err := NewRefreshSweep(creds, tokens).Run(context.Background())

	assert.Equal(t, 2, checked)
	assert.Equal(t, []string{"u1/google", "u2/google"}, tokens.checked)
	assert.ErrorIs(t, err, domain.ErrRefresh)
}

func TestRefreshSweep_ListError(t *testing.T) {
	creds := newMockCredentialsStore()
	creds.listErr = errBoom

	_, err := NewRefreshSweep(creds, &countingTokens{}).Run(context.Background())

	assert.ErrorIs(t, err, errBoom)
}
