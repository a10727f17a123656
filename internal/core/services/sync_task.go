package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/core/ports/driving"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// Ensure SyncTask implements the interface.
var _ driving.Task = (*SyncTask)(nil)

// SyncTaskDeps are the collaborators shared by every sync task.
type SyncTaskDeps struct {
	Credentials driven.CredentialsStore
	Tokens      driven.TokenProvider
	Sources     driven.SourceAdapterBuilder
	Calendars   driven.CalendarAdapterBuilder
	Log         *RunLogger
	Metrics     driven.Metrics
}

// SyncTask copies pending records from a source collection into calendar
// events for one user, then marks each record processed.
type SyncTask struct {
	descriptor  domain.TaskDescriptor
	source      domain.Provider
	destination domain.Provider
	deps        SyncTaskDeps
}

// NewSyncTask creates a task bound to a workflow.
func NewSyncTask(descriptor domain.TaskDescriptor, source, destination domain.Provider, deps SyncTaskDeps) *SyncTask {
	if deps.Metrics == nil {
		deps.Metrics = driven.NopMetrics{}
	}
	return &SyncTask{
		descriptor:  descriptor,
		source:      source,
		destination: destination,
		deps:        deps,
	}
}

// NotionToGoogle returns the constructor for the Notion to Google Calendar workflow.
func NotionToGoogle(deps SyncTaskDeps) driving.TaskConstructor {
	return func(descriptor domain.TaskDescriptor) driving.Task {
		return NewSyncTask(descriptor, domain.ProviderNotion, domain.ProviderGoogle, deps)
	}
}

// Descriptor returns the workflow identity.
func (t *SyncTask) Descriptor() domain.TaskDescriptor {
	return t.descriptor
}

// RequiredProviders returns the source and destination providers.
func (t *SyncTask) RequiredProviders() []domain.Provider {
	return []domain.Provider{t.source, t.destination}
}

// runFailure is a systemic error together with the row it is logged as.
type runFailure struct {
	app         string
	description string
	err         error
}

// syncRun holds the state of one Execute call.
type syncRun struct {
	userID     string
	sourceCred *domain.Credential
	destCred   *domain.Credential
	sourceAPI  driven.SourceAdapter
	calendar   driven.CalendarAdapter
	// destRefreshed is set once the destination token was force-refreshed.
	destRefreshed bool
}

// Execute runs the workflow for userID. Exactly one of a summary row or a
// failure row is written per call, plus one row per skipped or failed item.
func (t *SyncTask) Execute(ctx context.Context, userID string) domain.RunResult {
	started := time.Now()
	logger.Info("starting workflow", "workflow", t.descriptor.WorkflowName, "user_id", userID)

	result, failure := t.run(ctx, userID)
	if failure != nil {
		result = domain.FailedRun(failure.description, failure.err)
		t.deps.Log.Failure(ctx, userID, t.descriptor, failure.app, failure.description, failure.err)
		logger.Warn("workflow failed",
			"workflow", t.descriptor.WorkflowName,
			"user_id", userID,
			"reason", failure.description,
			"error", failure.err,
		)
	} else {
		t.deps.Log.Summary(ctx, userID, t.descriptor, result.Description, true)
		logger.Info("workflow completed",
			"workflow", t.descriptor.WorkflowName,
			"user_id", userID,
			"items_processed", result.ItemsProcessed,
			"items_created", result.ItemsCreated,
		)
	}

	t.deps.Metrics.RecordRun(t.metricLabel(), result.Success, time.Since(started))
	return result
}

//nolint:gocyclo // State machine with necessary sequential steps
func (t *SyncTask) run(ctx context.Context, userID string) (domain.RunResult, *runFailure) {
	r := &syncRun{userID: userID}

	// 1. Validating: both integrations must exist
	var failure *runFailure
	if r.sourceCred, failure = t.integration(ctx, userID, t.source); failure != nil {
		return domain.RunResult{}, failure
	}
	if r.destCred, failure = t.integration(ctx, userID, t.destination); failure != nil {
		return domain.RunResult{}, failure
	}

	// 2. Fetching: collection, tokens, pending records
	collectionID := r.sourceCred.MetadataValue(domain.MetadataDatabaseID)
	if collectionID == "" {
		return domain.RunResult{}, &runFailure{
			app:         domain.AppSystem,
			description: fmt.Sprintf("No %s database configured", t.source),
			err:         fmt.Errorf("%s integration has no %s: %w", t.source, domain.MetadataDatabaseID, domain.ErrConfig),
		}
	}

	sourceToken, err := t.deps.Tokens.GetValidToken(ctx, userID, t.source)
	if err != nil {
		return domain.RunResult{}, t.tokenFailure(t.source, err)
	}
	destToken, err := t.deps.Tokens.GetValidToken(ctx, userID, t.destination)
	if err != nil {
		return domain.RunResult{}, t.tokenFailure(t.destination, err)
	}

	r.sourceAPI = t.deps.Sources(sourceToken, r.sourceCred)
	r.calendar = t.deps.Calendars(destToken, r.destCred)

	records, err := r.sourceAPI.FetchPending(ctx, collectionID)
	if errors.Is(err, domain.ErrAuth) && t.source.SupportsRefresh() {
		token, rerr := t.deps.Tokens.ForceRefresh(ctx, userID, t.source)
		if rerr != nil {
			return domain.RunResult{}, t.tokenFailure(t.source, rerr)
		}
		r.sourceAPI = t.deps.Sources(token, r.sourceCred)
		records, err = r.sourceAPI.FetchPending(ctx, collectionID)
	}
	if err != nil {
		return domain.RunResult{}, &runFailure{
			app:         t.source.String(),
			description: fmt.Sprintf("Failed to fetch %s entries", t.source),
			err:         err,
		}
	}

	if len(records) == 0 {
		return domain.RunResult{Success: true, Description: "No entries to process"}, nil
	}

	// 3. Processing: one record at a time, item errors never abort
	created := 0
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return domain.RunResult{}, &runFailure{
				app:         domain.AppSystem,
				description: "Workflow execution cancelled",
				err:         err,
			}
		}

		ok, failure := t.processRecord(ctx, r, record)
		if failure != nil {
			return domain.RunResult{}, failure
		}
		if ok {
			created++
		}
	}

	// 4. Completed
	return domain.RunResult{
		Success:        true,
		ItemsProcessed: len(records),
		ItemsCreated:   created,
		Description:    fmt.Sprintf("Processed %d %s entries, created %d events", len(records), t.source, created),
	}, nil
}

// processRecord creates the event for one record and marks it processed.
// It reports whether both steps succeeded. A non-nil runFailure aborts the run.
func (t *SyncTask) processRecord(ctx context.Context, r *syncRun, record domain.SourceRecord) (bool, *runFailure) {
	label := t.metricLabel()

	if missing := record.MissingField(); missing != "" {
		t.deps.Log.Item(ctx, r.userID, t.descriptor, t.source.String(),
			fmt.Sprintf("Skipped entry %s: missing %s date", record.ID, missing),
			fmt.Errorf("missing %s: %w", missing, domain.ErrItem))
		t.deps.Metrics.RecordItem(label, driven.ItemSkipped)
		logger.Debug("skipping record", "record_id", record.ID, "missing", missing)
		return false, nil
	}

	req := domain.NewEventRequest(record)

	eventID, err := r.calendar.CreateEvent(ctx, req)
	if errors.Is(err, domain.ErrAuth) && !r.destRefreshed && t.destination.SupportsRefresh() {
		r.destRefreshed = true
		token, rerr := t.deps.Tokens.ForceRefresh(ctx, r.userID, t.destination)
		if rerr != nil {
			return false, t.tokenFailure(t.destination, rerr)
		}
		r.calendar = t.deps.Calendars(token, r.destCred)
		eventID, err = r.calendar.CreateEvent(ctx, req)
	}
	if err != nil {
		t.deps.Log.Item(ctx, r.userID, t.descriptor, t.destination.String(),
			fmt.Sprintf("Failed to create calendar event for: %s", req.Summary), err)
		t.deps.Metrics.RecordItem(label, driven.ItemFailed)
		return false, nil
	}

	if err := r.sourceAPI.MarkProcessed(ctx, record.ID, eventID); err != nil {
		t.deps.Log.Item(ctx, r.userID, t.descriptor, t.source.String(),
			fmt.Sprintf("Failed to update %s for: %s", t.source, req.Summary), err)
		t.deps.Metrics.RecordItem(label, driven.ItemFailed)
		return false, nil
	}

	t.deps.Metrics.RecordItem(label, driven.ItemCreated)
	logger.Debug("scheduled event", "record_id", record.ID, "event_id", eventID, "summary", req.Summary)
	return true, nil
}

func (t *SyncTask) integration(
	ctx context.Context, userID string, provider domain.Provider,
) (*domain.Credential, *runFailure) {
	cred, err := t.deps.Credentials.Get(ctx, userID, provider)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, &runFailure{
			app:         domain.AppSystem,
			description: fmt.Sprintf("Missing required integrations (%s and %s)", t.source, t.destination),
			err:         fmt.Errorf("no %s integration: %w", provider, domain.ErrConfig),
		}
	case err != nil:
		return nil, &runFailure{
			app:         domain.AppSystem,
			description: fmt.Sprintf("Failed to load %s integration", provider),
			err:         err,
		}
	}
	return cred, nil
}

func (t *SyncTask) tokenFailure(provider domain.Provider, err error) *runFailure {
	return &runFailure{
		app:         provider.String(),
		description: fmt.Sprintf("Failed to get %s token", provider),
		err:         err,
	}
}

func (t *SyncTask) metricLabel() string {
	return domain.WorkflowTypeKey(t.descriptor.WorkflowName)
}
