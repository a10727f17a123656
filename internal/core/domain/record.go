package domain

import "strings"

// DefaultEventTitle is used when a source record has no title.
const DefaultEventTitle = "Untitled Meeting"

// SourceRecord is a pending record read from the source collection.
// Start and End are ISO-8601 strings exactly as the source returned them.
type SourceRecord struct {
	ID            string
	Title         string
	Start         string
	End           string
	AttendeesText string
}

// MissingField returns the name of the first required time field that is empty.
func (r SourceRecord) MissingField() string {
	switch {
	case strings.TrimSpace(r.Start) == "":
		return "start"
	case strings.TrimSpace(r.End) == "":
		return "end"
	default:
		return ""
	}
}

// EventRequest describes a calendar event to create.
type EventRequest struct {
	Summary   string
	Start     string
	End       string
	Attendees []string
}

// NewEventRequest builds an event request from a source record.
func NewEventRequest(r SourceRecord) EventRequest {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = DefaultEventTitle
	}
	return EventRequest{
		Summary:   title,
		Start:     r.Start,
		End:       r.End,
		Attendees: ParseAttendees(r.AttendeesText),
	}
}

// ParseAttendees splits free text on commas, semicolons and newlines.
// Tokens are trimmed and empty tokens dropped. No address validation is done.
func ParseAttendees(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	attendees := make([]string, 0, len(fields))
	for _, f := range fields {
		if email := strings.TrimSpace(f); email != "" {
			attendees = append(attendees, email)
		}
	}
	return attendees
}
