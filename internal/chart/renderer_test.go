package chart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
	"covid-charts/internal/warehouse/memory"
)

func testWarehouse() *memory.Warehouse {
	f := func(v float64) *float64 { return &v }
	w := memory.New()
	w.AddTable(memory.Table{
		Schema:  "products",
		Name:    "daily_deltas",
		Columns: []string{"bulletin_date", "datum_date", "delta_confirmed"},
		Rows: []memory.Row{
			{
				Dates: map[string]time.Time{
					"bulletin_date": domain.Date(2022, 1, 8),
					"datum_date":    domain.Date(2022, 1, 7),
				},
				Values: map[string]*float64{"delta_confirmed": f(12)},
			},
			{
				Dates: map[string]time.Time{
					"bulletin_date": domain.Date(2022, 1, 9),
					"datum_date":    domain.Date(2022, 1, 8),
				},
				Values: map[string]*float64{"delta_confirmed": f(15)},
			},
		},
	})
	return w
}

func testSpec(name string) Spec {
	return Spec{
		Name: name,
		Query: warehouse.QuerySpec{
			Schema:         "products",
			Table:          "daily_deltas",
			BulletinColumn: "bulletin_date",
			DatumColumn:    "datum_date",
			Values:         []warehouse.ValueColumn{{Column: "delta_confirmed", Variable: "Confirmados"}},
		},
		Filter: filter.Exact(),
		Render: func(f domain.Frame, bulletinDate time.Time) (*Document, error) {
			rows := make([]Row, 0, len(f))
			for _, o := range f {
				rows = append(rows, Row{
					"datum_date": ISO(o.DatumDate),
					"value":      o.Value,
				})
			}
			return &Document{Mark: "bar", Data: Data{Values: rows}}, nil
		},
		Formats: []string{FormatJSON, FormatCSV},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestRunWritesArtifacts(t *testing.T) {
	outDir := t.TempDir()
	r := NewRenderer(testWarehouse(), outDir, quietLogger())

	dates := []time.Time{domain.Date(2022, 1, 8), domain.Date(2022, 1, 9)}
	report, err := r.Run(context.Background(), []Spec{testSpec("daily-deltas")}, dates)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}
	if report.ChartsRendered != 1 {
		t.Errorf("ChartsRendered = %d, want 1", report.ChartsRendered)
	}
	// Two dates times two formats.
	if report.ArtifactsWritten != 4 {
		t.Errorf("ArtifactsWritten = %d, want 4", report.ArtifactsWritten)
	}

	for _, want := range []string{
		"2022-01-08/2022-01-08_daily-deltas.json",
		"2022-01-08/2022-01-08_daily-deltas.csv",
		"2022-01-09/2022-01-09_daily-deltas.json",
		"2022-01-09/2022-01-09_daily-deltas.csv",
	} {
		if _, err := os.Stat(filepath.Join(outDir, want)); err != nil {
			t.Errorf("missing artifact %s: %v", want, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "2022-01-08", "2022-01-08_daily-deltas.json"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}
	if doc.Mark != "bar" {
		t.Errorf("Mark = %q, want bar", doc.Mark)
	}
	if len(doc.Data.Values) != 1 {
		t.Fatalf("len(Data.Values) = %d, want 1 (exact filter keeps one vintage)", len(doc.Data.Values))
	}
	if got := doc.Data.Values[0]["datum_date"]; got != "2022-01-07" {
		t.Errorf("datum_date = %v, want 2022-01-07", got)
	}
}

func TestRunIsolatesFailingChart(t *testing.T) {
	outDir := t.TempDir()
	r := NewRenderer(testWarehouse(), outDir, quietLogger())

	broken := testSpec("broken")
	broken.Query.Table = "no_such_table"
	specs := []Spec{broken, testSpec("healthy")}

	report, err := r.Run(context.Background(), specs, []time.Time{domain.Date(2022, 1, 8)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Failed() {
		t.Fatal("expected a failure report")
	}
	if _, ok := report.Failures["broken"]; !ok {
		t.Errorf("Failures = %v, want entry for broken", report.Failures)
	}
	if !errors.Is(report.Failures["broken"], warehouse.ErrDataUnavailable) {
		t.Errorf("failure = %v, want ErrDataUnavailable", report.Failures["broken"])
	}
	if report.ChartsRendered != 1 {
		t.Errorf("ChartsRendered = %d, want 1 (healthy chart still runs)", report.ChartsRendered)
	}
	if _, err := os.Stat(filepath.Join(outDir, "2022-01-08", "2022-01-08_healthy.json")); err != nil {
		t.Errorf("healthy artifact missing: %v", err)
	}
}

func TestRunWritesNothingOnRenderError(t *testing.T) {
	outDir := t.TempDir()
	r := NewRenderer(testWarehouse(), outDir, quietLogger())

	spec := testSpec("flaky")
	calls := 0
	inner := spec.Render
	spec.Render = func(f domain.Frame, d time.Time) (*Document, error) {
		calls++
		if calls > 1 {
			return nil, fmt.Errorf("render blew up")
		}
		return inner(f, d)
	}

	dates := []time.Time{domain.Date(2022, 1, 8), domain.Date(2022, 1, 9)}
	report, err := r.Run(context.Background(), []Spec{spec}, dates)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Failed() {
		t.Fatal("expected a failure report")
	}

	// The first date rendered fine, but nothing may reach disk when a
	// later date fails.
	var found []string
	filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			found = append(found, path)
		}
		return nil
	})
	if len(found) != 0 {
		t.Errorf("partial artifacts written: %v", found)
	}
}

func TestRunNoBulletinDates(t *testing.T) {
	outDir := t.TempDir()
	r := NewRenderer(testWarehouse(), outDir, quietLogger())

	for _, dates := range [][]time.Time{nil, {}} {
		report, err := r.Run(context.Background(), []Spec{testSpec("daily-deltas")}, dates)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if report.Failed() {
			t.Fatalf("unexpected failures: %v", report.Failures)
		}
		if report.ChartsRendered != 0 || report.ArtifactsWritten != 0 {
			t.Errorf("report = %+v, want nothing rendered", report)
		}
	}

	var found []string
	filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			found = append(found, path)
		}
		return nil
	})
	if len(found) != 0 {
		t.Errorf("artifacts written with no dates: %v", found)
	}
}

func TestRunCancelledContext(t *testing.T) {
	r := NewRenderer(testWarehouse(), t.TempDir(), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, []Spec{testSpec("x")}, []time.Time{domain.Date(2022, 1, 8)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEncodeCSV(t *testing.T) {
	v := 12.5
	doc := &Document{
		Mark: "bar",
		Data: Data{Values: []Row{
			{"datum_date": "2022-01-07", "value": &v, "group": "Molecular"},
			{"datum_date": "2022-01-08", "value": (*float64)(nil)},
		}},
	}

	data, err := encodeCSV(doc)
	if err != nil {
		t.Fatalf("encodeCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), data)
	}
	if lines[0] != "datum_date,group,value" {
		t.Errorf("header = %q, want sorted column union", lines[0])
	}
	if lines[1] != "2022-01-07,Molecular,12.5" {
		t.Errorf("row 1 = %q", lines[1])
	}
	// Missing value and absent column both come out empty.
	if lines[2] != "2022-01-08,," {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestSpecDefaultFormat(t *testing.T) {
	s := Spec{Name: "x"}
	got := s.formats()
	if len(got) != 1 || got[0] != FormatJSON {
		t.Errorf("formats() = %v, want [json]", got)
	}
}
