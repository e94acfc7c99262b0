package migrations

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
)

// ApplySQLite runs every embedded schema file, in name order. All
// statements are idempotent (CREATE TABLE IF NOT EXISTS), so applying
// on every open is safe.
func ApplySQLite(db *sql.DB) error {
	entries, err := fs.ReadDir(SQLiteFS, "sqlite")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		ddl, err := fs.ReadFile(SQLiteFS, "sqlite/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(ddl)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
