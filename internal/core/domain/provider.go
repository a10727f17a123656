package domain

// Provider identifies an external service a user has connected.
type Provider string

const (
	// ProviderNotion is the document/database source.
	ProviderNotion Provider = "notion"
	// ProviderGoogle is the calendar destination.
	ProviderGoogle Provider = "google"
)

// String returns the provider identifier.
func (p Provider) String() string {
	return string(p)
}

// SupportsRefresh reports whether access tokens for this provider expire
// and can be renewed with a refresh token. Notion integration tokens do not expire.
func (p Provider) SupportsRefresh() bool {
	return p == ProviderGoogle
}

// KnownProviders returns the providers the engine can talk to.
func KnownProviders() []Provider {
	return []Provider{ProviderNotion, ProviderGoogle}
}
