// Package clickhouse implements the warehouse read interface against
// ClickHouse. Warehouse schemas map to ClickHouse databases.
package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"covid-charts/internal/domain"
	"covid-charts/internal/warehouse"
)

// Warehouse implements warehouse.Warehouse over a ClickHouse
// connection.
type Warehouse struct {
	conn *Conn
}

// NewWarehouse creates a ClickHouse-backed warehouse.
func NewWarehouse(conn *Conn) *Warehouse {
	return &Warehouse{conn: conn}
}

// Compile-time interface check.
var _ warehouse.Warehouse = (*Warehouse)(nil)

// Fetch implements warehouse.Warehouse. The column contract is checked
// against system.columns before querying so that a missing table or a
// drifted schema surfaces as the right error kind with the table and
// column named.
func (w *Warehouse) Fetch(ctx context.Context, spec warehouse.QuerySpec, bulletinDates []time.Time) (domain.Frame, error) {
	if err := w.checkContract(ctx, spec); err != nil {
		return nil, err
	}

	query, args := buildSelect(spec, bulletinDates)
	rows, err := w.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", warehouse.TableRef(spec.Schema, spec.Table), err)
	}
	defer rows.Close()

	var out domain.Frame
	for rows.Next() {
		var (
			filterDate time.Time
			datum      time.Time
			group      string
			values     = make([]*float64, len(spec.Values))
		)

		dest := []any{&filterDate}
		twoAxes := spec.BulletinColumn != "" && spec.DatumColumn != ""
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
				BulletinDate: filterDate,
				DatumDate:    datum,
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

// checkContract verifies the table exists and carries every column the
// spec depends on.
func (w *Warehouse) checkContract(ctx context.Context, spec warehouse.QuerySpec) error {
	db := spec.Schema
	if db == "" {
		db = w.conn.database
	}

	rows, err := w.conn.Query(ctx,
		`SELECT name FROM system.columns WHERE database = ? AND table = ?`,
		db, spec.Table)
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
	sb.WriteString(fmt.Sprintf(" WHERE %s >= ? AND %s <= ?", dateColumn, dateColumn))
	args := []any{min, max}

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
