// Package gamedata provides the embedded definition tables and the typed
// records they decode into.
package gamedata

import (
	"embed"
	"io/fs"
)

// dataFS embeds the default tier, ability and effect tables at build time.
//
//go:embed *.json
var dataFS embed.FS

// FS returns the embedded filesystem containing the default tables.
func FS() fs.FS {
	return dataFS
}
