// Package migrations embeds the PostgreSQL schema of the self-hosted backend.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
