// Package migrations embeds the goose migrations for the result ledger.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
