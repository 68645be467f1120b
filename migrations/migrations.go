// Package migrations embeds the SQL schema applied by cmd/migrate.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
