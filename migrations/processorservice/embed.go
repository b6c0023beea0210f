// Package migrations embeds the Processor service's SQL migration
// files; see internal/platform/dbschema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
