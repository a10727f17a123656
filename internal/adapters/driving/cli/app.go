package cli

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/flowsync/internal/adapters/driven/auth"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/config"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/inproc"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/metrics"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/oauth"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/redis"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/flowsync/internal/adapters/driven/storage/sqlstore"
	"github.com/custodia-labs/flowsync/internal/connectors/google/calendar"
	"github.com/custodia-labs/flowsync/internal/connectors/notion"
	"github.com/custodia-labs/flowsync/internal/connectors/rest"
	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/core/services"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// DriverMemory keeps all state in process. Nothing survives a restart.
const DriverMemory = "memory"

// NotionTokenURL is Notion's OAuth token endpoint.
const NotionTokenURL = "https://api.notion.com/v1/oauth/token"

// App holds the services wired from one configuration. Close releases
// the database and Redis connections.
type App struct {
	Config *config.Config

	Credentials    driven.CredentialsStore
	Workflows      driven.WorkflowStore
	ExecutionLogs  driven.ExecutionLogStore
	SchedulerStore driven.SchedulerStore

	Registry   *services.TaskRegistry
	Runner     *services.Runner
	Dispatcher *services.Dispatcher
	Scheduler  *services.Scheduler
	Logs       *services.LogService

	Gatherer prometheus.Gatherer
	Pingers  map[string]driven.Pinger

	// SchemaVersion reports the applied migration, or ok=false when the
	// store has no schema.
	SchemaVersion func() (version int64, ok bool, err error)

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewApp opens storage and coordination backends and assembles the services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Pingers: make(map[string]driven.Pinger),
	}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	if err := app.openStorage(ctx); err != nil {
		return nil, err
	}

	locker, queue, err := app.openCoordination(ctx)
	if err != nil {
		return nil, err
	}

	reg, collector := metrics.NewRegistry()
	app.Gatherer = reg

	httpClient := &http.Client{Timeout: cfg.Client.Timeout.Std()}
	refresher := oauth.NewRefresher(oauthClients(cfg), httpClient)
	tokens := auth.NewTokenManager(app.Credentials, refresher, locker, collector, auth.Options{
		RefreshSkew:  cfg.Auth.RefreshSkew.Std(),
		StrictExpiry: cfg.Auth.StrictExpiry,
	})

	restOpts := rest.Options{
		HTTPClient:  httpClient,
		MaxAttempts: cfg.Client.MaxAttempts,
		BackoffBase: cfg.Client.BackoffBase.Std(),
		Metrics:     collector,
	}

	runLog := services.NewRunLogger(app.ExecutionLogs)
	app.Registry = services.NewTaskRegistry()
	services.RegisterBuiltinTasks(app.Registry, services.SyncTaskDeps{
		Credentials: app.Credentials,
		Tokens:      tokens,
		Sources:     notion.Builder(notionConfig(cfg), restOpts),
		Calendars:   calendar.Builder(calendarConfig(cfg), restOpts),
		Log:         runLog,
		Metrics:     collector,
	})

	app.Runner = services.NewRunner(app.Workflows, app.Credentials, app.Registry, runLog, services.RunnerConfig{
		PollWorkflow: cfg.Worker.PollWorkflow,
		Concurrency:  cfg.Worker.Concurrency,
	})
	app.Dispatcher = services.NewDispatcher(queue, app.Runner, cfg.Worker.QueueWorkers)
	app.Scheduler = services.NewScheduler(
		schedulerConfig(cfg),
		app.SchedulerStore,
		app.Runner,
		services.NewRefreshSweep(app.Credentials, tokens),
	)
	app.Logs = services.NewLogService(app.ExecutionLogs)

	ok = true
	return app, nil
}

func (a *App) openStorage(ctx context.Context) error {
	if strings.EqualFold(strings.TrimSpace(a.Config.Database.Driver), DriverMemory) {
		logger.Warn("using in-memory storage; state is lost on exit")
		a.Credentials = memory.NewCredentialsStore()
		a.Workflows = memory.NewWorkflowStore()
		a.ExecutionLogs = memory.NewExecutionLogStore()
		a.SchedulerStore = memory.NewSchedulerStore()
		a.SchemaVersion = func() (int64, bool, error) { return 0, false, nil }
		return nil
	}

	store, err := sqlstore.Open(ctx, a.Config.Database.Driver, a.Config.Database.URL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, store.Close)
	logger.Info("database ready", "driver", store.Driver())

	a.Credentials = store.CredentialsStore()
	a.Workflows = store.WorkflowStore()
	a.ExecutionLogs = store.ExecutionLogStore()
	a.SchedulerStore = store.SchedulerStore()
	a.Pingers["database"] = store
	a.SchemaVersion = func() (int64, bool, error) {
		v, err := store.Version()
		return v, true, err
	}
	return nil
}

// openCoordination returns the Redis lock and queue when Redis is
// configured, otherwise in-process equivalents.
func (a *App) openCoordination(ctx context.Context) (driven.Locker, driven.JobQueue, error) {
	if a.Config.Redis.URL == "" {
		return inproc.NewKeyedLocker(), inproc.NewChannelQueue(0), nil
	}

	client, err := redis.NewClient(ctx, a.Config.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, client.Close)
	a.Pingers["redis"] = client
	logger.Info("redis ready", "queue", a.Config.Redis.Queue)

	return client.NewLocker(a.Config.Redis.LockTTL.Std()), client.NewJobQueue(a.Config.Redis.Queue), nil
}

func oauthClients(cfg *config.Config) map[domain.Provider]oauth.ClientConfig {
	clients := map[domain.Provider]oauth.ClientConfig{
		domain.ProviderGoogle: {
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			TokenURL:     cfg.Google.TokenURL,
		},
	}
	if cfg.Notion.ClientID != "" {
		clients[domain.ProviderNotion] = oauth.ClientConfig{
			ClientID:     cfg.Notion.ClientID,
			ClientSecret: cfg.Notion.ClientSecret,
			TokenURL:     NotionTokenURL,
		}
	}
	return clients
}

func notionConfig(cfg *config.Config) notion.Config {
	n := cfg.Notion
	return notion.Config{
		BaseURL:           strings.TrimRight(n.APIBaseURL, "/"),
		Version:           n.Version,
		TitleProperty:     n.TitleProperty,
		StartProperty:     n.StartProperty,
		EndProperty:       n.EndProperty,
		AttendeesProperty: n.AttendeesProperty,
		ScheduleProperty:  n.ScheduleProperty,
		PendingValue:      n.PendingValue,
		DoneValue:         n.DoneValue,
		EventIDProperty:   n.EventIDProperty,
		MaxPages:          n.MaxPages,
	}
}

func calendarConfig(cfg *config.Config) calendar.Config {
	c := calendar.DefaultConfig()
	if cfg.Google.APIBaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.Google.APIBaseURL, "/")
	}
	if cfg.Google.CalendarID != "" {
		c.CalendarID = cfg.Google.CalendarID
	}
	if cfg.Google.TimeZone != "" {
		c.TimeZone = cfg.Google.TimeZone
	}
	return c
}

func schedulerConfig(cfg *config.Config) domain.SchedulerConfig {
	s := cfg.Scheduler
	return domain.SchedulerConfig{
		Enabled:      s.Enabled,
		TickInterval: s.TickInterval.Std(),
		TaskConfigs: map[string]domain.TaskConfig{
			domain.TaskIDWorkflowPoll: {
				Enabled:  s.PollInterval > 0,
				Interval: s.PollInterval.Std(),
			},
			domain.TaskIDOAuthRefresh: {
				Enabled:  s.RefreshInterval > 0,
				Interval: s.RefreshInterval.Std(),
			},
		},
	}
}
