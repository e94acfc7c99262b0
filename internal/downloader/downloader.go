// Package downloader fetches the remote source datasets as timestamped
// CSV files for the warehouse ETL to pick up. Each dataset lives in a
// Socrata-style open data portal and is downloaded whole; the filename
// carries the dataset's last-updated time so repeated runs are
// idempotent per upstream revision.
package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker"

	"covid-charts/internal/observability"
)

// Asset is one dataset in a Socrata server.
type Asset struct {
	Name string
	ID   string
}

// ErrThrottled reports that the source API rate-limited us. Passing an
// app token raises the limits considerably.
var ErrThrottled = errors.New("source api throttled the request")

var errServerError = errors.New("source api server error")

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client downloads datasets from one Socrata host.
type Client struct {
	host    string
	baseURL string
	token   string
	outDir  string
	http    *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// NewClient creates a downloader for the given host. token may be
// empty, at the cost of aggressive upstream rate limits.
func NewClient(host, token, outDir string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Client{
		host:    host,
		baseURL: "https://" + host,
		token:   token,
		outDir:  outDir,
		http:    &http.Client{Timeout: 60 * time.Second},
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		circuit: cb,
		log:     log,
	}
}

// WithHTTPClient replaces the HTTP client, for tests against local
// servers.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// WithBaseURL replaces the portal URL, for tests against local
// servers.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Download fetches one dataset and writes
// {outDir}/{name}_{YYYYMMDD_HHMM}.csv, timestamped with the dataset's
// rowsUpdatedAt from the portal metadata. Returns the written path.
func (c *Client) Download(ctx context.Context, asset Asset) (string, error) {
	updatedAt, err := c.rowsUpdatedAt(ctx, asset)
	if err != nil {
		return "", fmt.Errorf("metadata for %s: %w", asset.Name, err)
	}

	url := fmt.Sprintf("%s/api/views/%s/rows.csv?accessType=DOWNLOAD", c.baseURL, asset.ID)
	resp, err := c.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	outPath := filepath.Join(c.outDir,
		fmt.Sprintf("%s_%s.csv", asset.Name, updatedAt.UTC().Format("20060102_1504")))

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", outPath, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}

	observability.RecordDownload(n)
	c.log.Info("dataset downloaded", "dataset", asset.Name, "path", outPath, "bytes", n)
	return outPath, nil
}

// DownloadAll fetches every asset, isolating per-dataset failures.
// The returned error joins whatever failed.
func (c *Client) DownloadAll(ctx context.Context, assets []Asset) error {
	var errs []error
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.Download(ctx, asset); err != nil {
			observability.RecordDownloadError(asset.Name)
			c.log.Error("dataset download failed", "dataset", asset.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) rowsUpdatedAt(ctx context.Context, asset Asset) (time.Time, error) {
	url := fmt.Sprintf("%s/api/views/%s.json", c.baseURL, asset.ID)
	resp, err := c.get(ctx, url)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	var meta struct {
		RowsUpdatedAt int64 `json:"rowsUpdatedAt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return time.Time{}, err
	}
	if meta.RowsUpdatedAt == 0 {
		return time.Time{}, fmt.Errorf("metadata for %s has no rowsUpdatedAt", asset.ID)
	}
	return time.Unix(meta.RowsUpdatedAt, 0), nil
}

// get executes a GET with retries, exponential backoff and the
// circuit breaker. Throttling and server errors count against the
// breaker; an open circuit fails fast.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if c.token != "" {
			req.Header.Set("X-App-Token", c.token)
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.http.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				resp.Body.Close()
				return nil, ErrThrottled
			case resp.StatusCode >= 500:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
			case resp.StatusCode != http.StatusOK:
				resp.Body.Close()
				return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("circuit open for %s: %w", c.host, err)
		}
		if attempt >= c.backoff.MaxRetries {
			return nil, err
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}
