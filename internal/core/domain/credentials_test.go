package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"trailing Z", "2025-03-14T09:30:00Z", want},
		{"zero offset", "2025-03-14T09:30:00+00:00", want},
		{"positive offset", "2025-03-14T11:30:00+02:00", want},
		{"fractional seconds", "2025-03-14T09:30:00.123456Z", want.Add(123456 * time.Microsecond)},
		{"naive", "2025-03-14T09:30:00", want},
		{"naive fractional", "2025-03-14T09:30:00.5", want.Add(500 * time.Millisecond)},
		{"space separator", "2025-03-14 09:30:00", want},
		{"surrounding whitespace", "  2025-03-14T09:30:00Z ", want},
		{"no seconds", "2025-03-14T09:30", want},
		{"date only", "2025-03-14", want.Truncate(24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, raw := range []string{"", "tomorrow", "14/03/2025", "2025-13-40T00:00:00Z"} {
		_, err := ParseTimestamp(raw)
		assert.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrInvalidInput), raw)
	}
}

func TestFormatExpiry_RoundTrips(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))

	got, err := ParseTimestamp(FormatExpiry(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
	assert.Equal(t, "2025-01-02T02:04:05Z", FormatExpiry(ts))
}

func TestCredential_Helpers(t *testing.T) {
	c := Credential{
		UserID:       "u1",
		Provider:     ProviderGoogle,
		RefreshToken: "r",
		Metadata:     map[string]string{MetadataDatabaseID: "  db-1 "},
	}

	assert.True(t, c.HasRefreshToken())
	assert.False(t, c.Expires())
	assert.Equal(t, "db-1", c.MetadataValue(MetadataDatabaseID))
	assert.Empty(t, c.MetadataValue("missing"))

	c.ExpiresAt = "2025-01-01T00:00:00Z"
	assert.True(t, c.Expires())

	var empty Credential
	assert.Empty(t, empty.MetadataValue(MetadataDatabaseID))
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"null", "null", map[string]string{}},
		{"object", `{"database_id":"abc"}`, map[string]string{"database_id": "abc"}},
		{"double encoded", `"{\"database_id\":\"abc\"}"`, map[string]string{"database_id": "abc"}},
		{"non-string values", `{"n":3,"ok":true}`, map[string]string{"n": "3", "ok": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetadata(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMetadata("[1,2]")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProvider(t *testing.T) {
	assert.True(t, ProviderGoogle.SupportsRefresh())
	assert.False(t, ProviderNotion.SupportsRefresh())
	assert.Equal(t, "notion", ProviderNotion.String())
	assert.ElementsMatch(t, []Provider{ProviderNotion, ProviderGoogle}, KnownProviders())
}
