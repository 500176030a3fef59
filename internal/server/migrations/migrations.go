// Package migrations embeds the goose SQL migrations for the account store.
// The statements are written in the subset of SQL shared by PostgreSQL and
// SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
