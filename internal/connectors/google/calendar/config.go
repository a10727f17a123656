package calendar

import (
	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// Reminder is a reminder override attached to created events.
type Reminder struct {
	Method  string
	Minutes int64
}

// Config holds Google Calendar destination configuration.
type Config struct {
	// BaseURL is the Calendar API root, without a trailing slash.
	BaseURL string
	// CalendarID is the target calendar. Integration metadata can override it.
	CalendarID string
	// TimeZone is sent with start and end. Times are always normalised to UTC.
	TimeZone string
	// Reminders replace the calendar's default reminders.
	Reminders []Reminder
}

// DefaultConfig returns the default configuration: the primary calendar,
// an email reminder a day before and a popup ten minutes before.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://www.googleapis.com/calendar/v3",
		CalendarID: "primary",
		TimeZone:   "UTC",
		Reminders: []Reminder{
			{Method: "email", Minutes: 24 * 60},
			{Method: "popup", Minutes: 10},
		},
	}
}

// ForCredential applies per-user overrides from integration metadata.
func (c Config) ForCredential(cred *domain.Credential) Config {
	if cred == nil {
		return c
	}
	if id := cred.MetadataValue(domain.MetadataCalendarID); id != "" {
		c.CalendarID = id
	}
	return c
}
