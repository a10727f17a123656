package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/flowsync/internal/adapters/driven/auth"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/inproc"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/oauth"
	"github.com/custodia-labs/flowsync/internal/connectors/google/calendar"
	"github.com/custodia-labs/flowsync/internal/connectors/rest"
	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// recordingServer counts requests and captures bearer tokens.
type recordingServer struct {
	mu      sync.Mutex
	bearers []string
	forms   int
	body    string
}

func (s *recordingServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		s.forms++
	}
	s.bearers = append(s.bearers, r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(s.body))
}

// refreshHarness runs a sync task against the real token manager, the
// real OAuth refresher and the real calendar adapter, each talking to an
// httptest server.
type refreshHarness struct {
	tokenSrv *recordingServer
	calSrv   *recordingServer
	creds    *mockCredentialsStore
	source   *mockSource
	task     *SyncTask
}

func newRefreshHarness(t *testing.T, expiresAt string) *refreshHarness {
	t.Helper()

	h := &refreshHarness{
		tokenSrv: &recordingServer{body: `{"access_token":"fresh-token","expires_in":3600,"token_type":"Bearer"}`},
		calSrv:   &recordingServer{body: `{"id":"evt-1"}`},
		source:   newMockSource(record("r1", "Sync", "2025-06-01T10:00:00Z", "2025-06-01T11:00:00Z", "a@x.io")),
	}
	tokenServer := httptest.NewServer(http.HandlerFunc(h.tokenSrv.handler))
	t.Cleanup(tokenServer.Close)
	calServer := httptest.NewServer(http.HandlerFunc(h.calSrv.handler))
	t.Cleanup(calServer.Close)

	google := googleCred("u1")
	google.AccessToken = "stale-token"
	google.ExpiresAt = expiresAt
	h.creds = newMockCredentialsStore(notionCred("u1"), google)

	refresher := oauth.NewRefresher(map[domain.Provider]oauth.ClientConfig{
		domain.ProviderGoogle: {ClientID: "cid", ClientSecret: "secret", TokenURL: tokenServer.URL},
	}, tokenServer.Client())
	tokens := auth.NewTokenManager(h.creds, refresher, inproc.NewKeyedLocker(), nil, auth.Options{})

	calCfg := calendar.DefaultConfig()
	calCfg.BaseURL = calServer.URL

	h.task = NewSyncTask(defaultDescriptor, domain.ProviderNotion, domain.ProviderGoogle, SyncTaskDeps{
		Credentials: h.creds,
		Tokens:      tokens,
		Sources:     h.source.builder(),
		Calendars:   calendar.Builder(calCfg, rest.Options{HTTPClient: calServer.Client(), BackoffBase: -1}),
		Log:         NewRunLogger(&mockExecLogStore{}),
	})
	return h
}

func TestSyncTask_ExpiredTokenRefreshedBeforeCalendarCall(t *testing.T) {
	h := newRefreshHarness(t, domain.FormatExpiry(time.Now().Add(-time.Minute)))

	result := h.task.Execute(context.Background(), "u1")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 1, result.ItemsCreated)

	assert.Equal(t, 1, h.tokenSrv.forms, "exactly one refresh POST")
	assert.Equal(t, []string{"Bearer fresh-token"}, h.calSrv.bearers)

	stored, err := h.creds.Get(context.Background(), "u1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.AccessToken)
	expiry, err := domain.ParseTimestamp(stored.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, expiry.After(time.Now()))
}

func TestSyncTask_ValidTokenNotRefreshed(t *testing.T) {
	h := newRefreshHarness(t, domain.FormatExpiry(time.Now().Add(time.Hour)))

	result := h.task.Execute(context.Background(), "u1")

	require.True(t, result.Success, result.Error)
	assert.Zero(t, h.tokenSrv.forms)
	assert.Equal(t, []string{"Bearer stale-token"}, h.calSrv.bearers)
}
