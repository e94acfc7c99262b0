// Package main runs the chart pipeline as a long-lived service:
// dataset downloads and catalog renders on their own schedules, with
// health, status and Prometheus metrics over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"covid-charts/internal/catalog"
	"covid-charts/internal/chart"
	"covid-charts/internal/config"
	"covid-charts/internal/domain"
	"covid-charts/internal/downloader"
	"covid-charts/internal/observability"
	"covid-charts/internal/warehouse"
	"covid-charts/internal/warehouse/clickhouse"
	"covid-charts/internal/warehouse/postgres"
	"covid-charts/internal/warehouse/sqlite"
)

// Server ties the schedulers and their shared state together.
type Server struct {
	cfg    *config.Config
	wh     warehouse.Warehouse
	specs  []chart.Spec
	log    *slog.Logger
	days   int
	assets []downloader.Asset

	mu              sync.Mutex
	started         time.Time
	renderRunning   bool
	downloadRunning bool
	lastRender      time.Time
	lastDownload    time.Time
	renderRuns      int
	downloadRuns    int
}

func main() {
	renderInterval := flag.Duration("render-interval", 6*time.Hour, "Time between catalog renders")
	downloadInterval := flag.Duration("download-interval", 12*time.Hour, "Time between dataset downloads")
	days := flag.Int("days", 7, "Bulletin dates to re-render each cycle, counting back from today")
	httpAddr := flag.String("http-addr", ":9090", "Health/metrics HTTP address")
	noDownload := flag.Bool("no-download", false, "Disable the download scheduler")
	flag.Parse()

	if *days < 1 {
		fmt.Fprintf(os.Stderr, "Error: -days must be at least 1, got %d\n", *days)
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wh, cleanup, err := openWarehouse(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	s := &Server{
		cfg:     cfg,
		wh:      wh,
		specs:   catalog.All(catalog.Params{Population: cfg.Population}),
		log:     logger,
		days:    *days,
		started: time.Now().UTC(),
		assets:  append(append([]downloader.Asset(nil), downloader.HealthDataAssets...), downloader.CDCAssets...),
	}

	go s.startHTTPServer(ctx, *httpAddr)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runRenderScheduler(ctx, *renderInterval)
	}()
	if !*noDownload {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runDownloadScheduler(ctx, *downloadInterval)
		}()
	}

	logger.Info("server started",
		"charts", len(s.specs),
		"render_interval", *renderInterval,
		"download_interval", *downloadInterval)
	wg.Wait()
	logger.Info("shutdown complete")
}

// runRenderScheduler renders on start and then on every tick.
func (s *Server) runRenderScheduler(ctx context.Context, interval time.Duration) {
	s.runRender(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRender(ctx)
		}
	}
}

// runRender re-renders the most recent bulletin dates. Recent dates
// are rendered again on purpose: late-arriving warehouse rows revise
// them.
func (s *Server) runRender(ctx context.Context) {
	s.mu.Lock()
	if s.renderRunning {
		s.mu.Unlock()
		s.log.Warn("render already running, skipping cycle")
		return
	}
	s.renderRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.renderRunning = false
		s.lastRender = time.Now().UTC()
		s.renderRuns++
		s.mu.Unlock()
	}()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	dates := domain.Dates(today.AddDate(0, 0, -(s.days-1)), today)

	start := time.Now()
	report, err := chart.NewRenderer(s.wh, s.cfg.OutputDir, s.log).Run(ctx, s.specs, dates)
	if err != nil {
		s.log.Error("render cycle aborted", "error", err)
		return
	}
	s.log.Info("render cycle finished",
		"charts", report.ChartsRendered,
		"artifacts", report.ArtifactsWritten,
		"failures", len(report.Failures),
		"elapsed", time.Since(start))
	if !report.Failed() {
		observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}
}

// runDownloadScheduler downloads on start and then on every tick.
func (s *Server) runDownloadScheduler(ctx context.Context, interval time.Duration) {
	s.runDownload(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDownload(ctx)
		}
	}
}

func (s *Server) runDownload(ctx context.Context) {
	s.mu.Lock()
	if s.downloadRunning {
		s.mu.Unlock()
		s.log.Warn("download already running, skipping cycle")
		return
	}
	s.downloadRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.downloadRunning = false
		s.lastDownload = time.Now().UTC()
		s.downloadRuns++
		s.mu.Unlock()
	}()

	healthdata := downloader.NewClient("healthdata.gov", s.cfg.SocrataToken, s.cfg.DownloadDir, s.log)
	cdc := downloader.NewClient("data.cdc.gov", s.cfg.SocrataToken, s.cfg.DownloadDir, s.log)

	start := time.Now()
	var failures int
	if err := healthdata.DownloadAll(ctx, downloader.HealthDataAssets); err != nil {
		failures++
	}
	if err := cdc.DownloadAll(ctx, downloader.CDCAssets); err != nil {
		failures++
	}
	s.log.Info("download cycle finished",
		"datasets", len(s.assets),
		"hosts_failed", failures,
		"elapsed", time.Since(start))
}

// startHTTPServer serves health, Prometheus metrics and status.
func (s *Server) startHTTPServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Error("http server failed", "error", err)
	}
}

// StatusResponse is the JSON body of /status.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Charts          int       `json:"charts"`
	LastRender      time.Time `json:"last_render,omitempty"`
	LastDownload    time.Time `json:"last_download,omitempty"`
	RenderRuns      int       `json:"render_runs"`
	DownloadRuns    int       `json:"download_runs"`
	RenderRunning   bool      `json:"render_running"`
	DownloadRunning bool      `json:"download_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		Charts:          len(s.specs),
		LastRender:      s.lastRender,
		LastDownload:    s.lastDownload,
		RenderRuns:      s.renderRuns,
		DownloadRuns:    s.downloadRuns,
		RenderRunning:   s.renderRunning,
		DownloadRunning: s.downloadRunning,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
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

func openWarehouse(ctx context.Context, cfg *config.Config) (warehouse.Warehouse, func(), error) {
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
