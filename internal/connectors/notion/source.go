// Package notion reads pending meeting records from a Notion database
// and marks them once a calendar event exists.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/flowsync/internal/connectors/rest"
	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.SourceAdapter = (*Source)(nil)

// Source is the Notion source adapter for one credential.
type Source struct {
	client *rest.Client
	cfg    Config
}

// NewSource creates a source adapter over an authenticated client.
func NewSource(client *rest.Client, cfg Config) *Source {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	return &Source{client: client, cfg: cfg}
}

// Builder returns a driven.SourceAdapterBuilder. opts carries shared client
// settings; the token, Notion-Version header and rate limiter are set up
// per credential.
func Builder(cfg Config, opts rest.Options) driven.SourceAdapterBuilder {
	return func(accessToken string, cred *domain.Credential) driven.SourceAdapter {
		o := opts
		o.Provider = domain.ProviderNotion.String()
		o.Token = accessToken
		o.Headers = map[string]string{"Notion-Version": cfg.Version}
		// A 429 pause must only hold back the credential that earned it.
		o.Limiter = nil

		c := cfg
		if cred != nil {
			if prop := cred.MetadataValue(domain.MetadataEventIDProperty); prop != "" {
				c.EventIDProperty = prop
			}
		}
		return NewSource(rest.New(o), c)
	}
}

// FetchPending queries the database for records scheduled but not yet done.
// When the filtered query fails for a reason other than auth, the query is
// retried scoped only by a non-empty start date; records already marked done
// are dropped client side.
func (s *Source) FetchPending(ctx context.Context, databaseID string) ([]domain.SourceRecord, error) {
	if strings.TrimSpace(databaseID) == "" {
		return nil, fmt.Errorf("notion database id: %w", domain.ErrConfig)
	}

	pages, err := s.query(ctx, databaseID, s.pendingFilter())
	if err == nil {
		return s.records(pages, false), nil
	}
	if errors.Is(err, domain.ErrAuth) || ctx.Err() != nil {
		return nil, err
	}

	logger.Warn("filtered notion query failed, falling back to start date filter",
		"database_id", databaseID, "error", err)

	pages, err = s.query(ctx, databaseID, s.startDateFilter())
	if err != nil {
		return nil, fmt.Errorf("query notion database %s: %w", databaseID, err)
	}
	return s.records(pages, true), nil
}

// MarkProcessed sets the schedule property to done, and records eventID
// when an event ID property is configured.
func (s *Source) MarkProcessed(ctx context.Context, recordID, eventID string) error {
	props := map[string]any{
		s.cfg.ScheduleProperty: richTextValue(s.cfg.DoneValue),
	}
	if s.cfg.EventIDProperty != "" && eventID != "" {
		props[s.cfg.EventIDProperty] = richTextValue(eventID)
	}

	endpoint := fmt.Sprintf("%s/pages/%s", s.cfg.BaseURL, url.PathEscape(recordID))
	if err := s.client.Do(ctx, http.MethodPatch, endpoint, map[string]any{"properties": props}, nil); err != nil {
		return fmt.Errorf("mark notion page %s: %w", recordID, err)
	}

	logger.Debug("marked notion page processed", "page_id", recordID, "event_id", eventID)
	return nil
}

func (s *Source) query(ctx context.Context, databaseID string, filter map[string]any) ([]page, error) {
	endpoint := fmt.Sprintf("%s/databases/%s/query", s.cfg.BaseURL, url.PathEscape(databaseID))

	var pages []page
	cursor := ""
	for i := 0; i < s.cfg.MaxPages; i++ {
		body := map[string]any{"filter": filter}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var resp queryResponse
		if err := s.client.Do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return pages, nil
}

func (s *Source) records(pages []page, dropDone bool) []domain.SourceRecord {
	out := make([]domain.SourceRecord, 0, len(pages))
	for _, p := range pages {
		if dropDone && strings.EqualFold(strings.TrimSpace(p.text(s.cfg.ScheduleProperty)), s.cfg.DoneValue) {
			continue
		}
		out = append(out, p.record(s.cfg))
	}
	return out
}

func (s *Source) startDateFilter() map[string]any {
	return map[string]any{
		"property": s.cfg.StartProperty,
		"date":     map[string]any{"is_not_empty": true},
	}
}

func (s *Source) pendingFilter() map[string]any {
	return map[string]any{
		"and": []any{
			s.startDateFilter(),
			map[string]any{
				"property":  s.cfg.ScheduleProperty,
				"rich_text": map[string]any{"equals": s.cfg.PendingValue},
			},
		},
	}
}

func richTextValue(content string) map[string]any {
	return map[string]any{
		"rich_text": []any{
			map[string]any{"text": map[string]any{"content": content}},
		},
	}
}
