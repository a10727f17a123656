// Package migrations embeds the goose migrations for each supported dialect.
package migrations

import "embed"

// FS holds one directory of migrations per dialect: sqlite/ and postgres/.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
