package chart

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"covid-charts/internal/domain"
	"covid-charts/internal/observability"
	"covid-charts/internal/warehouse"
)

// Renderer drives a set of chart specs across bulletin dates. Each
// chart's data is fetched once and rendered once per requested date.
// A failing chart is reported and skipped; it never aborts the run or
// other charts.
type Renderer struct {
	wh      warehouse.Warehouse
	outDir  string
	log     *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time // Injectable clock for deterministic output
}

// NewRenderer creates a renderer writing artifacts under outDir.
func NewRenderer(wh warehouse.Warehouse, outDir string, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		wh:      wh,
		outDir:  outDir,
		log:     log,
		metrics: observability.DefaultMetrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

// WithMetrics sets the metrics instance.
func (r *Renderer) WithMetrics(m *observability.Metrics) *Renderer {
	r.metrics = m
	return r
}

// RunReport summarizes one renderer run.
type RunReport struct {
	ChartsRendered   int
	ArtifactsWritten int
	Failures         map[string]error
}

// Failed reports whether any chart failed.
func (r *RunReport) Failed() bool { return len(r.Failures) > 0 }

type artifact struct {
	path string
	data []byte
}

// Run fetches, filters, renders and writes every spec for every
// bulletin date. All of a chart's artifacts are produced in memory
// before any of them is written, so a failing chart leaves nothing
// behind on disk.
func (r *Renderer) Run(ctx context.Context, specs []Spec, bulletinDates []time.Time) (*RunReport, error) {
	report := &RunReport{Failures: make(map[string]error)}
	if len(bulletinDates) == 0 {
		r.log.Warn("no bulletin dates to render")
		return report, nil
	}

	dates := append([]time.Time(nil), bulletinDates...)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n, err := r.runOne(ctx, spec, dates)
		if err != nil {
			r.log.Error("chart failed", "chart", spec.Name, "error", err)
			r.metrics.ChartFailures.WithLabelValues(spec.Name).Inc()
			report.Failures[spec.Name] = err
			continue
		}
		report.ChartsRendered++
		report.ArtifactsWritten += n
	}
	return report, nil
}

func (r *Renderer) runOne(ctx context.Context, spec Spec, dates []time.Time) (int, error) {
	start := r.now()
	frame, err := r.wh.Fetch(ctx, spec.Query, dates)
	if err != nil {
		r.metrics.FetchErrors.WithLabelValues(spec.Query.Table).Inc()
		return 0, fmt.Errorf("fetch %s: %w", warehouse.TableRef(spec.Query.Schema, spec.Query.Table), err)
	}
	r.metrics.FramesFetched.Inc()
	r.metrics.RowsFetched.Add(float64(len(frame)))
	r.metrics.FetchDuration.WithLabelValues(spec.Query.Table).Observe(r.now().Sub(start).Seconds())

	var artifacts []artifact
	for _, date := range dates {
		filtered := frame
		if spec.Filter != nil {
			filtered = spec.Filter(frame, date)
		}
		doc, err := spec.Render(filtered, date)
		if err != nil {
			return 0, fmt.Errorf("render %s for %s: %w", spec.Name, date.Format(domain.ISODate), err)
		}
		for _, format := range spec.formats() {
			data, err := encode(doc, format)
			if err != nil {
				return 0, fmt.Errorf("encode %s as %s: %w", spec.Name, format, err)
			}
			artifacts = append(artifacts, artifact{
				path: r.artifactPath(spec.Name, date, format),
				data: data,
			})
		}
	}

	for _, a := range artifacts {
		if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
			return 0, fmt.Errorf("create artifact dir: %w", err)
		}
		if err := os.WriteFile(a.path, a.data, 0o644); err != nil {
			return 0, fmt.Errorf("write artifact %s: %w", a.path, err)
		}
		r.metrics.ArtifactsWritten.WithLabelValues(filepath.Ext(a.path)[1:]).Inc()
	}

	r.metrics.ChartsRendered.Inc()
	r.metrics.RenderDuration.WithLabelValues(spec.Name).Observe(r.now().Sub(start).Seconds())
	r.log.Info("chart rendered", "chart", spec.Name, "dates", len(dates), "artifacts", len(artifacts))
	return len(artifacts), nil
}

// artifactPath is {outDir}/{date}/{date}_{name}.{format}.
func (r *Renderer) artifactPath(name string, date time.Time, format string) string {
	d := date.Format(domain.ISODate)
	return filepath.Join(r.outDir, d, fmt.Sprintf("%s_%s.%s", d, name, format))
}

func encode(doc *Document, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatCSV:
		return encodeCSV(doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func encodeCSV(doc *Document) ([]byte, error) {
	cols := doc.Data.Columns()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, err
	}
	record := make([]string, len(cols))
	for _, row := range doc.Data.Values {
		for i, col := range cols {
			record[i] = cell(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	case *float64:
		if x == nil {
			return ""
		}
		return fmt.Sprintf("%g", *x)
	case int:
		return fmt.Sprintf("%d", x)
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
