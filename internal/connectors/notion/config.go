package notion

// Config names the API endpoint and the database properties the source reads.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string
	// Version is sent as the Notion-Version header.
	Version string

	TitleProperty     string
	StartProperty     string
	EndProperty       string
	AttendeesProperty string

	// ScheduleProperty is a rich-text property holding PendingValue until
	// the record is processed, then DoneValue.
	ScheduleProperty string
	PendingValue     string
	DoneValue        string

	// EventIDProperty receives the created event ID when set.
	// Integration metadata can override it per user.
	EventIDProperty string

	// MaxPages bounds query pagination.
	MaxPages int
}

// DefaultConfig matches the meeting-planner database template.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://api.notion.com/v1",
		Version:           "2022-06-28",
		TitleProperty:     "Name",
		StartProperty:     "Start Date",
		EndProperty:       "End Date",
		AttendeesProperty: "Attendees",
		ScheduleProperty:  "Schedule",
		PendingValue:      "Yes",
		DoneValue:         "Done",
		MaxPages:          10,
	}
}
