// Package postgres implements the warehouse read interface against
// PostgreSQL. This was the first backend the dashboard ran on and
// remains the reference for schema-qualified products tables.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"covid-charts/internal/domain"
	"covid-charts/internal/warehouse"
)

// Warehouse implements warehouse.Warehouse over a pgx pool.
type Warehouse struct {
	pool *Pool
}

// NewWarehouse creates a Postgres-backed warehouse.
func NewWarehouse(pool *Pool) *Warehouse {
	return &Warehouse{pool: pool}
}

// Compile-time interface check.
var _ warehouse.Warehouse = (*Warehouse)(nil)

// Fetch implements warehouse.Warehouse. The column contract is checked
// against information_schema before querying.
func (w *Warehouse) Fetch(ctx context.Context, spec warehouse.QuerySpec, bulletinDates []time.Time) (domain.Frame, error) {
	if err := w.checkContract(ctx, spec); err != nil {
		return nil, err
	}

	query, args := buildSelect(spec, bulletinDates)
	rows, err := w.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", warehouse.TableRef(spec.Schema, spec.Table), err)
	}
	defer rows.Close()

	var out domain.Frame
	twoAxes := spec.BulletinColumn != "" && spec.DatumColumn != ""
	for rows.Next() {
		var (
			filterDate time.Time
			datum      time.Time
			group      string
			values     = make([]*float64, len(spec.Values))
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
			return nil, fmt.Errorf("scan %s: %w", warehouse.TableRef(spec.Schema, spec.Table), err)
		}
		if !twoAxes {
			datum = filterDate
		}

		for i, v := range spec.Values {
			out = append(out, domain.Observation{
				BulletinDate: filterDate.UTC().Truncate(24 * time.Hour),
				DatumDate:    datum.UTC().Truncate(24 * time.Hour),
				Group:        group,
				Variable:     v.Variable,
				Value:        values[i],
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", warehouse.TableRef(spec.Schema, spec.Table), err)
	}
	return out, nil
}

func (w *Warehouse) checkContract(ctx context.Context, spec warehouse.QuerySpec) error {
	schema := spec.Schema
	if schema == "" {
		schema = "public"
	}

	rows, err := w.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2`,
		schema, spec.Table)
	if err != nil {
		return fmt.Errorf("describe %s: %w", warehouse.TableRef(spec.Schema, spec.Table), err)
	}
	defer rows.Close()

	have := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("describe %s: %w", warehouse.TableRef(spec.Schema, spec.Table), err)
		}
		have[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("describe %s: %w", warehouse.TableRef(spec.Schema, spec.Table), err)
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
	sb.WriteString(warehouse.TableRef(spec.Schema, spec.Table))
	sb.WriteString(fmt.Sprintf(" WHERE %s >= $1 AND %s <= $2", dateColumn, dateColumn))
	args := []any{min, max}

	if d := spec.Where; d != nil {
		if d.Equals != "" {
			sb.WriteString(fmt.Sprintf(" AND %s = $%d", d.Column, len(args)+1))
			args = append(args, d.Equals)
		}
		if len(d.NotIn) > 0 {
			placeholders := make([]string, len(d.NotIn))
			for i, v := range d.NotIn {
				placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
				args = append(args, v)
			}
			sb.WriteString(fmt.Sprintf(" AND %s NOT IN (%s)", d.Column,
				strings.Join(placeholders, ", ")))
		}
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(spec.OrderColumns(), ", "))
	return sb.String(), args
}
