// Package migrations carries the Postgres schema for game history.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
