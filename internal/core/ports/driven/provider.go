package driven

import (
	"context"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// SourceAdapter reads pending records from the source collection
// and marks them once an event exists.
type SourceAdapter interface {
	// FetchPending returns records not yet marked processed.
	// Fails with an error wrapping domain.ErrAuth, domain.ErrTransient or
	// domain.ErrConfig; the caller treats any error as a failed fetch.
	FetchPending(ctx context.Context, collectionID string) ([]domain.SourceRecord, error)

	// MarkProcessed writes the processed marker, embedding eventID.
	MarkProcessed(ctx context.Context, recordID, eventID string) error
}

// CalendarAdapter creates events on the destination calendar.
type CalendarAdapter interface {
	// CreateEvent creates an event and returns its ID.
	// Invalid timestamps fail with domain.ErrItem before any HTTP call.
	CreateEvent(ctx context.Context, req domain.EventRequest) (string, error)
}

// SourceAdapterBuilder constructs a SourceAdapter for one credential.
// Adapters are never shared across users.
type SourceAdapterBuilder func(accessToken string, cred *domain.Credential) SourceAdapter

// CalendarAdapterBuilder constructs a CalendarAdapter for one credential.
type CalendarAdapterBuilder func(accessToken string, cred *domain.Credential) CalendarAdapter
