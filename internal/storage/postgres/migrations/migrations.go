// Package migrations embeds the versioned schema migrations applied by goose
// at store construction.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
