// Package migrations embebe el esquema del log de envíos para golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
