// Package oauth performs OAuth refresh-token exchanges against provider token endpoints.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// GoogleTokenURL is Google's OAuth 2.0 token endpoint.
const GoogleTokenURL = "https://oauth2.googleapis.com/token"

// ClientConfig is one provider's OAuth application.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Ensure Refresher implements the interface.
var _ driven.TokenRefresher = (*Refresher)(nil)

// Refresher exchanges refresh tokens with x/oauth2. Client credentials are
// sent in the form body alongside grant_type=refresh_token.
type Refresher struct {
	clients    map[domain.Provider]ClientConfig
	httpClient *http.Client
}

// NewRefresher creates a refresher for the configured providers.
// A nil httpClient uses a client with a 30 second timeout.
func NewRefresher(clients map[domain.Provider]ClientConfig, httpClient *http.Client) *Refresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Refresher{clients: clients, httpClient: httpClient}
}

// Refresh exchanges refreshToken for a new access token.
func (r *Refresher) Refresh(
	ctx context.Context,
	provider domain.Provider,
	refreshToken string,
) (*driven.RefreshedToken, error) {
	client, ok := r.clients[provider]
	if !ok || client.TokenURL == "" {
		return nil, fmt.Errorf("no oauth client for %s: %w", provider, domain.ErrRefresh)
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%s: missing refresh token: %w", provider, domain.ErrRefresh)
	}

	cfg := &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  client.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	// An empty access token is never valid, so Token always performs the exchange.
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, describe(provider, err)
	}

	out := &driven.RefreshedToken{AccessToken: tok.AccessToken}
	if tok.RefreshToken != refreshToken {
		out.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		out.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	if secs, ok := tok.Extra("expires_in").(float64); ok && secs > 0 {
		out.ExpiresIn = int64(secs)
	}
	return out, nil
}

func describe(provider domain.Provider, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		if re.ErrorCode != "" {
			return fmt.Errorf("%s token endpoint: status %d: %s %s: %w",
				provider, status, re.ErrorCode, re.ErrorDescription, domain.ErrRefresh)
		}
		return fmt.Errorf("%s token endpoint: status %d: %w", provider, status, domain.ErrRefresh)
	}
	return fmt.Errorf("%s token exchange: %w: %w", provider, domain.ErrRefresh, err)
}
