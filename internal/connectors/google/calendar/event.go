// Package calendar creates Google Calendar events for synchronised records.
package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/flowsync/internal/connectors/rest"
	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// Ensure Calendar implements the interface.
var _ driven.CalendarAdapter = (*Calendar)(nil)

// Calendar is the destination adapter for one credential.
type Calendar struct {
	client *rest.Client
	cfg    Config
}

// New creates a calendar adapter over an authenticated client.
func New(client *rest.Client, cfg Config) *Calendar {
	return &Calendar{client: client, cfg: cfg}
}

// Builder returns a driven.CalendarAdapterBuilder. opts carries shared
// client settings; each credential gets its own token and rate limiter.
func Builder(cfg Config, opts rest.Options) driven.CalendarAdapterBuilder {
	return func(accessToken string, cred *domain.Credential) driven.CalendarAdapter {
		o := opts
		o.Provider = domain.ProviderGoogle.String()
		o.Token = accessToken
		o.Limiter = nil
		return New(rest.New(o), cfg.ForCredential(cred))
	}
}

// CreateEvent creates an event and returns its ID. Start and end are
// re-normalised to UTC; input that does not parse, or an end before the
// start, fails with domain.ErrItem and nothing is sent.
func (c *Calendar) CreateEvent(ctx context.Context, req domain.EventRequest) (string, error) {
	event, err := c.buildEvent(req)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.cfg.BaseURL, url.PathEscape(c.cfg.CalendarID))

	var created gcal.Event
	if err := c.client.Do(ctx, http.MethodPost, endpoint, event, &created); err != nil {
		return "", fmt.Errorf("create event %q: %w", req.Summary, err)
	}
	if created.Id == "" {
		return "", fmt.Errorf("create event %q: response has no id: %w", req.Summary, domain.ErrItem)
	}

	logger.Debug("created calendar event", "event_id", created.Id, "calendar_id", c.cfg.CalendarID)
	return created.Id, nil
}

func (c *Calendar) buildEvent(req domain.EventRequest) (*gcal.Event, error) {
	start, err := domain.ParseTimestamp(req.Start)
	if err != nil {
		return nil, fmt.Errorf("start time: %w: %w", domain.ErrItem, err)
	}
	end, err := domain.ParseTimestamp(req.End)
	if err != nil {
		return nil, fmt.Errorf("end time: %w: %w", domain.ErrItem, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s: %w", req.End, req.Start, domain.ErrItem)
	}

	attendees := make([]*gcal.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		if email != "" {
			attendees = append(attendees, &gcal.EventAttendee{Email: email})
		}
	}

	overrides := make([]*gcal.EventReminder, 0, len(c.cfg.Reminders))
	for _, r := range c.cfg.Reminders {
		overrides = append(overrides, &gcal.EventReminder{Method: r.Method, Minutes: r.Minutes})
	}

	return &gcal.Event{
		Summary:   req.Summary,
		Start:     c.dateTime(start),
		End:       c.dateTime(end),
		Attendees: attendees,
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}, nil
}

func (c *Calendar) dateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.UTC().Format(time.RFC3339),
		TimeZone: c.cfg.TimeZone,
	}
}
