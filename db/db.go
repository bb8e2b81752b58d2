package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed seed/categories/*.json
var SeedFiles embed.FS
