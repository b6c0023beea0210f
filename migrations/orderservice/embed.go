// Package migrations embeds the Order service's SQL migration files so
// the binary carries its schema with it; see internal/platform/dbschema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
