package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Metadata keys read from a Credential.
const (
	// MetadataDatabaseID is the source collection the user picked when connecting Notion.
	MetadataDatabaseID = "database_id"
	// MetadataCalendarID overrides the destination calendar (defaults to "primary").
	MetadataCalendarID = "calendar_id"
	// MetadataEventIDProperty names the source property that receives the created event ID.
	MetadataEventIDProperty = "event_id_property"
)

// Credential holds one user's tokens for one provider.
//
// ExpiresAt keeps the raw ISO-8601 string written by the connect flow.
// An empty ExpiresAt means the token does not expire.
type Credential struct {
	// ID is the row identifier assigned by the store.
	ID int64 `json:"id" db:"id"`
	// UserID is the owning user.
	UserID string `json:"user_id" db:"user_id"`
	// Provider is the connected service.
	Provider Provider `json:"provider" db:"provider"`
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"-" db:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"-" db:"refresh_token"`
	// ExpiresAt is when the access token expires.
	ExpiresAt string `json:"expires_at,omitempty" db:"expires_at"`
	// Metadata carries provider specific settings (database_id, calendar_id).
	Metadata map[string]string `json:"metadata,omitempty" db:"-"`
	// CreatedAt is when the integration was connected.
	CreatedAt time.Time `json:"created_at" db:"-"`
	// UpdatedAt is when the tokens were last written.
	UpdatedAt time.Time `json:"updated_at" db:"-"`
}

// HasRefreshToken reports whether a refresh token is stored.
func (c *Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// Expires reports whether the credential carries an expiry timestamp.
func (c *Credential) Expires() bool {
	return strings.TrimSpace(c.ExpiresAt) != ""
}

// MetadataValue returns a trimmed metadata value, or "" if absent.
func (c *Credential) MetadataValue(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(c.Metadata[key])
}

// timestampLayouts are tried in order. RFC3339Nano accepts a trailing Z, an
// offset and an optional fraction; the remaining layouts cover naive
// timestamps and bare dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseTimestamp parses an ISO-8601 timestamp and returns it in UTC.
// Naive timestamps are interpreted as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp: %w", ErrInvalidInput)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q: %w", raw, ErrInvalidInput)
}

// FormatExpiry renders an expiry the way the store keeps it.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseMetadata decodes stored integration metadata.
// It accepts a JSON object or a JSON string that itself encodes an object.
// Non-string values are rendered with their JSON text.
func ParseMetadata(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]string{}, nil
	}

	var nested string
	if err := json.Unmarshal([]byte(raw), &nested); err == nil {
		return ParseMetadata(nested)
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", ErrInvalidInput)
	}

	out := make(map[string]string, len(values))
	for k, v := range values {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out, nil
}
