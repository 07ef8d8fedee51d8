// Package migrations embeds the schema migrations for the video table.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
