// Package sqlite implements the warehouse read interface against an
// embedded SQLite file, for local development runs that load the
// downloaded CSVs without standing up a real warehouse. SQLite has no
// schemas, so schema-qualified tables map to schema_table names and
// dates are stored as ISO text.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"covid-charts/internal/domain"
	"covid-charts/internal/warehouse"
	"covid-charts/internal/warehouse/migrations"
)

// Warehouse implements warehouse.Warehouse over a SQLite file.
type Warehouse struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the local warehouse file.
func Open(path string) (*Warehouse, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite warehouse: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrations.ApplySQLite(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite warehouse: %w", err)
	}
	return &Warehouse{db: db}, nil
}

// Close closes the underlying database.
func (w *Warehouse) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// DB exposes the handle for loaders that populate the local warehouse.
func (w *Warehouse) DB() *sql.DB {
	return w.db
}

// Compile-time interface check.
var _ warehouse.Warehouse = (*Warehouse)(nil)

// Fetch implements warehouse.Warehouse.
func (w *Warehouse) Fetch(ctx context.Context, spec warehouse.QuerySpec, bulletinDates []time.Time) (domain.Frame, error) {
	if err := w.checkContract(ctx, spec); err != nil {
		return nil, err
	}

	query, args := buildSelect(spec, bulletinDates)
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", tableName(spec), err)
	}
	defer rows.Close()

	var out domain.Frame
	twoAxes := spec.BulletinColumn != "" && spec.DatumColumn != ""
	for rows.Next() {
		var (
			filterDate string
			datum      string
			group      string
			values     = make([]sql.NullFloat64, len(spec.Values))
		)

		dest := []any{&filterDate}
		if twoAxes {
			dest = append(dest, &datum)
		}
		if spec.GroupColumn != "" {
			dest = append(dest, &group)
		}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tableName(spec), err)
		}

		bulletin, err := domain.ParseDate(filterDate)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", tableName(spec), err)
		}
		datumDate := bulletin
		if twoAxes {
			if datumDate, err = domain.ParseDate(datum); err != nil {
				return nil, fmt.Errorf("table %s: %w", tableName(spec), err)
			}
		}

		for i, v := range spec.Values {
			var value *float64
			if values[i].Valid {
				f := values[i].Float64
				value = &f
			}
			out = append(out, domain.Observation{
				BulletinDate: bulletin,
				DatumDate:    datumDate,
				Group:        group,
				Variable:     v.Variable,
				Value:        value,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", tableName(spec), err)
	}
	return out, nil
}

func (w *Warehouse) checkContract(ctx context.Context, spec warehouse.QuerySpec) error {
	rows, err := w.db.QueryContext(ctx,
		fmt.Sprintf(`PRAGMA table_info(%q)`, tableName(spec)))
	if err != nil {
		return fmt.Errorf("describe %s: %w", tableName(spec), err)
	}
	defer rows.Close()

	have := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("describe %s: %w", tableName(spec), err)
		}
		have[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("describe %s: %w", tableName(spec), err)
	}
	if len(have) == 0 {
		return warehouse.Unavailable(spec.Schema, spec.Table, nil)
	}
	for _, col := range spec.RequiredColumns() {
		if _, ok := have[col]; !ok {
			return warehouse.Mismatch(spec.Schema, spec.Table, col)
		}
	}
	return nil
}

// tableName flattens schema.table to schema_table.
func tableName(spec warehouse.QuerySpec) string {
	if spec.Schema == "" {
		return spec.Table
	}
	return spec.Schema + "_" + spec.Table
}

func buildSelect(spec warehouse.QuerySpec, bulletinDates []time.Time) (string, []any) {
	dateColumn := spec.BulletinColumn
	if dateColumn == "" {
		dateColumn = spec.DatumColumn
	}
	min, max := spec.Range(bulletinDates)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(spec.SelectColumns(), ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(tableName(spec))
	sb.WriteString(fmt.Sprintf(" WHERE %s >= ? AND %s <= ?", dateColumn, dateColumn))
	args := []any{min.Format(domain.ISODate), max.Format(domain.ISODate)}

	if d := spec.Where; d != nil {
		if d.Equals != "" {
			sb.WriteString(fmt.Sprintf(" AND %s = ?", d.Column))
			args = append(args, d.Equals)
		}
		if len(d.NotIn) > 0 {
			sb.WriteString(fmt.Sprintf(" AND %s NOT IN (?%s)", d.Column,
				strings.Repeat(", ?", len(d.NotIn)-1)))
			for _, v := range d.NotIn {
				args = append(args, v)
			}
		}
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(spec.OrderColumns(), ", "))
	return sb.String(), args
}
