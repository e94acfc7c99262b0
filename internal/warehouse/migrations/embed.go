// Package migrations holds the DDL for the local SQLite warehouse.
// The production ClickHouse/Postgres warehouses are populated by an
// external ETL and are never migrated from here.
package migrations

import "embed"

// SQLiteFS embeds the SQLite warehouse schema files.
//
//go:embed sqlite/*.sql
var SQLiteFS embed.FS
