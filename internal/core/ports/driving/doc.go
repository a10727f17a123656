// Package driving holds the interfaces the CLI and the HTTP API call into.
// The workflow runner, job dispatcher, scheduler and log queries are all
// reached through these ports; internal/core/services implements them.
package driving
