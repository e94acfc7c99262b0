// Package main downloads the remote source datasets as timestamped
// CSV files for the warehouse ETL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"covid-charts/internal/config"
	"covid-charts/internal/downloader"
)

func main() {
	healthdata := flag.Bool("healthdata", true, "Download the healthdata.gov datasets")
	cdc := flag.Bool("cdc", true, "Download the data.cdc.gov datasets")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	if cfg.SocrataToken == "" {
		logger.Warn("no app token configured, the API may throttle us")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed := false
	if *healthdata {
		client := downloader.NewClient("healthdata.gov", cfg.SocrataToken, cfg.DownloadDir, logger)
		if err := client.DownloadAll(ctx, downloader.HealthDataAssets); err != nil {
			logger.Error("healthdata.gov downloads incomplete", "error", err)
			failed = true
		}
	}
	if *cdc {
		client := downloader.NewClient("data.cdc.gov", cfg.SocrataToken, cfg.DownloadDir, logger)
		if err := client.DownloadAll(ctx, downloader.CDCAssets); err != nil {
			logger.Error("data.cdc.gov downloads incomplete", "error", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
