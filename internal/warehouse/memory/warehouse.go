// Package memory provides an in-memory warehouse for tests and
// fixture-driven runs. Tables are registered with their column
// contract, so schema mismatches surface the same way they would
// against a real warehouse.
package memory

import (
	"context"
	"sync"
	"time"

	"covid-charts/internal/domain"
	"covid-charts/internal/warehouse"
)

// Row is one wide source row. Column values live in per-type maps
// keyed by column name.
type Row struct {
	Dates   map[string]time.Time
	Strings map[string]string
	Values  map[string]*float64
}

// Table is a registered fixture table with its declared columns.
type Table struct {
	Schema  string
	Name    string
	Columns []string
	Rows    []Row
}

// Warehouse is an in-memory implementation of warehouse.Warehouse.
type Warehouse struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// New creates an empty in-memory warehouse.
func New() *Warehouse {
	return &Warehouse{tables: make(map[string]*Table)}
}

// Compile-time interface check.
var _ warehouse.Warehouse = (*Warehouse)(nil)

// AddTable registers a table, replacing any previous registration.
func (w *Warehouse) AddTable(t Table) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tables[warehouse.TableRef(t.Schema, t.Name)] = &t
}

// Has reports whether a table is registered.
func (w *Warehouse) Has(schema, table string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.tables[warehouse.TableRef(schema, table)]
	return ok
}

// Fetch implements warehouse.Warehouse against the registered tables.
func (w *Warehouse) Fetch(_ context.Context, spec warehouse.QuerySpec, bulletinDates []time.Time) (domain.Frame, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t, ok := w.tables[warehouse.TableRef(spec.Schema, spec.Table)]
	if !ok {
		return nil, warehouse.Unavailable(spec.Schema, spec.Table, nil)
	}

	for _, col := range spec.RequiredColumns() {
		if !t.hasColumn(col) {
			return nil, warehouse.Mismatch(spec.Schema, spec.Table, col)
		}
	}

	dateColumn := spec.BulletinColumn
	if dateColumn == "" {
		dateColumn = spec.DatumColumn
	}
	min, max := spec.Range(bulletinDates)

	var out domain.Frame
	for _, r := range t.Rows {
		filterDate := r.Dates[dateColumn]
		if filterDate.Before(min) || filterDate.After(max) {
			continue
		}
		if spec.Where != nil && !spec.Where.Match(r.Strings[spec.Where.Column]) {
			continue
		}

		bulletin := filterDate
		datum := filterDate
		if spec.BulletinColumn != "" && spec.DatumColumn != "" {
			datum = r.Dates[spec.DatumColumn]
		}
		for _, v := range spec.Values {
			out = append(out, domain.Observation{
				BulletinDate: bulletin,
				DatumDate:    datum,
				Group:        r.Strings[spec.GroupColumn],
				Variable:     v.Variable,
				Value:        copyValue(r.Values[v.Column]),
			})
		}
	}
	return out, nil
}

func (t *Table) hasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
