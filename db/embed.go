// Package db provides the embedded order schema and menu seed data.
package db

import _ "embed"

// Schema contains the DDL statements for the order tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Menu is the JSON catalog loaded at startup when no menu file is configured.
//
//go:embed seed/menu.json
var Menu []byte
