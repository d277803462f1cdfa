package migrations

import "embed"

//go:embed booking/*.sql payment/*.sql notification/*.sql
var Migrations embed.FS
