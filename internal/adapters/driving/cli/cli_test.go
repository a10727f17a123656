package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/flowsync/internal/adapters/driven/config"
	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// setupCLITest points the commands at an in-memory configuration. seed,
// when set, runs against every App the command opens.
func setupCLITest(t *testing.T, seed func(ctx context.Context, app *App) error) (*config.Config, *bytes.Buffer) {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Driver = DriverMemory
	cfg.Google.ClientID = "client-id"
	cfg.Google.ClientSecret = "client-secret"
	cfg.Client.BackoffBase = config.Duration(time.Millisecond)

	oldLoad, oldOpen := loadConfig, openApp
	loadConfig = func() (*config.Config, error) { return cfg, nil }
	openApp = func(ctx context.Context, c *config.Config) (*App, error) {
		app, err := NewApp(ctx, c)
		if err != nil {
			return nil, err
		}
		if seed != nil {
			if err := seed(ctx, app); err != nil {
				_ = app.Close()
				return nil, err
			}
		}
		return app, nil
	}

	runAsync, logsLimit, logsAnalytics, logsJSON = false, 0, false, false
	logger.SetOutput(io.Discard)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)

	t.Cleanup(func() {
		loadConfig, openApp = oldLoad, oldOpen
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		logger.SetOutput(os.Stderr)
	})
	return cfg, buf
}

func execute(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func seedCredentials(notionDB string) func(ctx context.Context, app *App) error {
	return func(ctx context.Context, app *App) error {
		if err := app.Credentials.Save(ctx, domain.Credential{
			UserID:      "u1",
			Provider:    domain.ProviderNotion,
			AccessToken: "secret_notion",
			Metadata:    map[string]string{domain.MetadataDatabaseID: notionDB},
		}); err != nil {
			return err
		}
		return app.Credentials.Save(ctx, domain.Credential{
			UserID:       "u1",
			Provider:     domain.ProviderGoogle,
			AccessToken:  "ya29.valid",
			RefreshToken: "1//refresh",
			ExpiresAt:    domain.FormatExpiry(time.Now().Add(2 * time.Hour)),
		})
	}
}

// fakeProviders serves the Notion and Calendar endpoints under /notion and /google.
type fakeProviders struct {
	mu       sync.Mutex
	created  []map[string]any
	patched  []string
	bearer   []string
	pageJSON string
}

func (f *fakeProviders) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bearer = append(f.bearer, r.Header.Get("Authorization"))

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/notion/databases/db-1/query":
		_, _ = w.Write([]byte(`{"results":[` + f.pageJSON + `]}`))
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/notion/pages/"):
		f.patched = append(f.patched, strings.TrimPrefix(r.URL.Path, "/notion/pages/"))
		_, _ = w.Write([]byte(`{"object":"page"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/google/calendars/primary/events":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		_, _ = w.Write([]byte(`{"id":"evt-1"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

const meetingPage = `{"id":"page-1","properties":{
	"Name":{"type":"title","title":[{"plain_text":"Planning"}]},
	"Start Date":{"type":"date","date":{"start":"2026-05-01T10:00:00Z"}},
	"End Date":{"type":"date","date":{"start":"2026-05-01T11:00:00Z"}},
	"Attendees":{"type":"rich_text","rich_text":[{"plain_text":"a@example.com"}]},
	"Schedule":{"type":"rich_text","rich_text":[{"plain_text":"Yes"}]}
}}`

// ==================== Root Tests ====================

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "flowsync", rootCmd.Use)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"worker", "serve", "run", "poll", "migrate", "workflows", "logs", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestRootCmd_ConfigError(t *testing.T) {
	setupCLITest(t, nil)
	loadConfig = func() (*config.Config, error) { return nil, assert.AnError }

	err := execute("poll")

	assert.ErrorIs(t, err, assert.AnError)
}

// ==================== Run Tests ====================

func TestRunCmd_CreatesEvent(t *testing.T) {
	fake := &fakeProviders{pageJSON: meetingPage}
	server := httptest.NewServer(fake)
	defer server.Close()

	cfg, buf := setupCLITest(t, seedCredentials("db-1"))
	cfg.Notion.APIBaseURL = server.URL + "/notion"
	cfg.Google.APIBaseURL = server.URL + "/google"

	err := execute("run", "notion_to_google", "u1")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "processed 1, created 1")
	require.Len(t, fake.created, 1)
	assert.Equal(t, "Planning", fake.created[0]["summary"])
	assert.Equal(t, []string{"page-1"}, fake.patched)
	assert.Contains(t, fake.bearer, "Bearer ya29.valid")
	assert.Contains(t, fake.bearer, "Bearer secret_notion")
}

func TestRunCmd_MissingIntegrationFails(t *testing.T) {
	_, buf := setupCLITest(t, nil)

	err := execute("run", "Notion to Google", "nobody")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run failed")
	assert.Contains(t, buf.String(), "failed for nobody")
}

func TestRunCmd_UnknownWorkflow(t *testing.T) {
	setupCLITest(t, nil)

	err := execute("run", "slack_to_jira", "u1")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunCmd_AsyncNeedsRedis(t *testing.T) {
	setupCLITest(t, nil)

	err := execute("run", "notion_to_google", "u1", "--async")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestRunCmd_RequiresTwoArgs(t *testing.T) {
	setupCLITest(t, nil)

	assert.Error(t, execute("run", "notion_to_google"))
}

func TestRunCmd_ValidatesConfig(t *testing.T) {
	cfg, _ := setupCLITest(t, nil)
	cfg.Google.ClientID = ""

	err := execute("run", "notion_to_google", "u1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_CLIENT_ID")
}

// ==================== Poll Tests ====================

func TestPollCmd_NoEligibleUsers(t *testing.T) {
	_, buf := setupCLITest(t, nil)

	err := execute("poll")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Poll complete: 0 eligible, 0 run, 0 failed")
}

func TestPollCmd_RunsEligibleUser(t *testing.T) {
	fake := &fakeProviders{pageJSON: meetingPage}
	server := httptest.NewServer(fake)
	defer server.Close()

	cfg, buf := setupCLITest(t, seedCredentials("db-1"))
	cfg.Notion.APIBaseURL = server.URL + "/notion"
	cfg.Google.APIBaseURL = server.URL + "/google"

	err := execute("poll")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Poll complete: 1 eligible, 1 run, 0 failed, 1 processed, 1 created.")
}

// ==================== Migrate Tests ====================

func TestMigrateCmd_Memory(t *testing.T) {
	_, buf := setupCLITest(t, nil)

	require.NoError(t, execute("migrate"))
	assert.Contains(t, buf.String(), "In-memory storage has no schema")
}

func TestMigrateCmd_SQLite(t *testing.T) {
	cfg, buf := setupCLITest(t, nil)
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = filepath.Join(t.TempDir(), "flowsync.db")

	require.NoError(t, execute("migrate"))
	assert.Contains(t, buf.String(), "Database schema at version 1.")
}

// ==================== Workflows Tests ====================

func TestWorkflowsCmd_ListsDefault(t *testing.T) {
	_, buf := setupCLITest(t, nil)

	require.NoError(t, execute("workflows"))

	out := buf.String()
	assert.Contains(t, out, "Notion to Google")
	assert.Contains(t, out, "notion_to_google")
	assert.Contains(t, out, "notion, google")
}

// ==================== Logs Tests ====================

func seedLogs(ctx context.Context, app *App) error {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := []domain.ExecutionLog{
		{ID: "a", UserID: "u1", WorkflowID: 1, StepType: domain.StepAction, App: "google",
			Description: "Failed to create event for Standup", Error: "status 400", CreatedAt: base},
		{ID: "b", UserID: "u1", WorkflowID: 1, StepType: domain.StepExecution, App: domain.AppWorkflow,
			Description: "[Notion to Google] processed 2, created 1", Success: true, CreatedAt: base.Add(time.Minute)},
	}
	for _, row := range rows {
		if err := app.ExecutionLogs.Insert(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func TestLogsCmd_Recent(t *testing.T) {
	_, buf := setupCLITest(t, seedLogs)

	require.NoError(t, execute("logs", "u1"))

	out := buf.String()
	assert.Contains(t, out, "DESCRIPTION")
	assert.Contains(t, out, "Failed to create event for Standup (status 400)")
	assert.Less(t, strings.Index(out, "processed 2"), strings.Index(out, "Standup"))
}

func TestLogsCmd_Limit(t *testing.T) {
	_, buf := setupCLITest(t, seedLogs)

	require.NoError(t, execute("logs", "u1", "--limit", "1"))

	assert.Contains(t, buf.String(), "processed 2")
	assert.NotContains(t, buf.String(), "Standup")
}

func TestLogsCmd_Empty(t *testing.T) {
	_, buf := setupCLITest(t, nil)

	require.NoError(t, execute("logs", "u9"))
	assert.Contains(t, buf.String(), "No execution logs for u9.")
}

func TestLogsCmd_Analytics(t *testing.T) {
	_, buf := setupCLITest(t, seedLogs)

	require.NoError(t, execute("logs", "u1", "--analytics"))

	out := buf.String()
	assert.Contains(t, out, "Total actions:      2")
	assert.Contains(t, out, "Success rate:       50.0%")
	assert.Contains(t, out, "Workflow 1: 1 executions, 1 successful, 0 failed")
}

func TestLogsCmd_AnalyticsJSON(t *testing.T) {
	_, buf := setupCLITest(t, seedLogs)

	require.NoError(t, execute("logs", "u1", "--analytics", "--json"))

	var a domain.Analytics
	require.NoError(t, json.Unmarshal(buf.Bytes(), &a))
	assert.Equal(t, 2, a.TotalActions)
	assert.Len(t, a.RecentActivity, 2)
}
