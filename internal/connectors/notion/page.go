package notion

import (
	"strings"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

// queryResponse is the body of POST /databases/{id}/query.
type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type page struct {
	ID         string              `json:"id"`
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type     string     `json:"type"`
	Title    []richText `json:"title"`
	RichText []richText `json:"rich_text"`
	Date     *dateValue `json:"date"`
}

type dateValue struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type richText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text"`
}

func (f richText) content() string {
	if f.Text != nil && f.Text.Content != "" {
		return f.Text.Content
	}
	return f.PlainText
}

func joinText(fragments []richText) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f.content())
	}
	return b.String()
}

// firstText returns the first rich-text fragment of a property.
func (p page) firstText(name string) string {
	prop, ok := p.Properties[name]
	if !ok || len(prop.RichText) == 0 {
		return ""
	}
	return prop.RichText[0].content()
}

func (p page) text(name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	if prop.Type == "title" || len(prop.Title) > 0 {
		return joinText(prop.Title)
	}
	return joinText(prop.RichText)
}

func (p page) date(name string) *dateValue {
	prop, ok := p.Properties[name]
	if !ok || prop.Type != "date" || prop.Date == nil {
		return nil
	}
	return prop.Date
}

// record extracts the fields the sync needs. A missing end property falls
// back to the end of a start date range. Attendees come from the first
// rich-text fragment only; later fragments are formatting runs.
func (p page) record(cfg Config) domain.SourceRecord {
	r := domain.SourceRecord{
		ID:            p.ID,
		Title:         strings.TrimSpace(p.text(cfg.TitleProperty)),
		AttendeesText: p.firstText(cfg.AttendeesProperty),
	}
	if start := p.date(cfg.StartProperty); start != nil {
		r.Start = start.Start
		r.End = start.End
	}
	if end := p.date(cfg.EndProperty); end != nil && end.Start != "" {
		r.End = end.Start
	}
	if r.Title == "" {
		r.Title = domain.DefaultEventTitle
	}
	return r
}
