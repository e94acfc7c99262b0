package chart

import (
	"time"

	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// RenderFunc turns an already-filtered frame into a document. It must
// be a pure function of its inputs; the driver may call it once per
// bulletin date against the same fetched frame.
type RenderFunc func(f domain.Frame, bulletinDate time.Time) (*Document, error)

// Spec is one chart in the catalog.
type Spec struct {
	// Name keys artifact filenames and failure reporting. Unique
	// within a catalog.
	Name string

	// Query declares the warehouse table and columns this chart
	// reads. The driver fetches it once per run.
	Query warehouse.QuerySpec

	// Filter narrows the fetched frame to the rows relevant for one
	// bulletin date before Render sees them.
	Filter filter.Policy

	// Render shapes the filtered frame into the output document.
	Render RenderFunc

	// Formats to write. Defaults to JSON only when empty.
	Formats []string
}

func (s Spec) formats() []string {
	if len(s.Formats) == 0 {
		return []string{FormatJSON}
	}
	return s.Formats
}
