// Package main renders the chart catalog for a set of bulletin dates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"covid-charts/internal/catalog"
	"covid-charts/internal/chart"
	"covid-charts/internal/config"
	"covid-charts/internal/domain"
	"covid-charts/internal/warehouse"
	"covid-charts/internal/warehouse/clickhouse"
	"covid-charts/internal/warehouse/memory"
	"covid-charts/internal/warehouse/postgres"
	"covid-charts/internal/warehouse/sqlite"
)

func main() {
	datesFlag := flag.String("dates", "", "Comma-separated bulletin dates (YYYY-MM-DD)")
	fromFlag := flag.String("from", "", "Start of a bulletin date range (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "End of a bulletin date range (YYYY-MM-DD)")
	outDirFlag := flag.String("output-dir", "", "Output directory (overrides COVIDCHARTS_OUTPUT_DIR)")
	useFixtures := flag.Bool("use-fixtures", false, "Render from synthetic in-memory data instead of the warehouse")
	flag.Parse()

	// A .env file is optional; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)

	dates, err := parseDates(*datesFlag, *fromFlag, *toFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wh, cleanup, err := openWarehouse(ctx, cfg, *useFixtures, dates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	specs := catalog.All(catalog.Params{Population: cfg.Population})
	if mem, ok := wh.(*memory.Warehouse); ok {
		specs = available(specs, mem)
		logger.Info("running against fixtures", "charts", len(specs))
	}

	outDir := cfg.OutputDir
	if *outDirFlag != "" {
		outDir = *outDirFlag
	}

	renderer := chart.NewRenderer(wh, outDir, logger)
	report, err := renderer.Run(ctx, specs, dates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rendered %d charts, wrote %d artifacts under %s\n",
		report.ChartsRendered, report.ArtifactsWritten, outDir)
	if report.Failed() {
		fmt.Fprintf(os.Stderr, "%d charts failed:\n", len(report.Failures))
		for name, ferr := range report.Failures {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, ferr)
		}
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

// parseDates accepts either an explicit date list or an inclusive
// range.
func parseDates(list, from, to string) ([]time.Time, error) {
	if list != "" {
		var dates []time.Time
		for _, s := range strings.Split(list, ",") {
			d, err := domain.ParseDate(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("invalid date %q: %w", s, err)
			}
			dates = append(dates, d)
		}
		return dates, nil
	}
	if from != "" && to != "" {
		start, err := domain.ParseDate(from)
		if err != nil {
			return nil, fmt.Errorf("invalid -from date %q: %w", from, err)
		}
		end, err := domain.ParseDate(to)
		if err != nil {
			return nil, fmt.Errorf("invalid -to date %q: %w", to, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("-to %s precedes -from %s", to, from)
		}
		return domain.Dates(start, end), nil
	}
	return nil, fmt.Errorf("either -dates or both -from and -to are required")
}

func openWarehouse(ctx context.Context, cfg *config.Config, fixtures bool, dates []time.Time) (warehouse.Warehouse, func(), error) {
	if fixtures {
		return memory.Fixtures(domain.MaxDate(dates), 15), func() {}, nil
	}
	switch cfg.Warehouse {
	case "clickhouse":
		conn, err := clickhouse.NewConn(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return clickhouse.NewWarehouse(conn), func() { conn.Close() }, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return postgres.NewWarehouse(pool), pool.Close, nil
	case "sqlite":
		wh, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite warehouse: %w", err)
		}
		return wh, func() { wh.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown warehouse backend %q", cfg.Warehouse)
	}
}

// available keeps the specs whose tables the fixture warehouse holds.
func available(specs []chart.Spec, mem *memory.Warehouse) []chart.Spec {
	var out []chart.Spec
	for _, s := range specs {
		if mem.Has(s.Query.Schema, s.Query.Table) {
			out = append(out, s)
		}
	}
	return out
}
