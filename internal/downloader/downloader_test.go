package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// 2022-01-08 12:30:00 UTC.
const testUpdatedAt = 1641645000

func fastBackoff() BackoffConfig {
	return BackoffConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClient("example.test", "secret-token", t.TempDir(), nil).
		WithBaseURL(srv.URL).
		WithHTTPClient(srv.Client())
	c.backoff = fastBackoff()
	return c
}

func socrataHandler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/views/abcd-1234.json", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-App-Token"); got != "secret-token" {
			t.Errorf("X-App-Token = %q, want secret-token", got)
		}
		fmt.Fprintf(w, `{"id": "abcd-1234", "rowsUpdatedAt": %d}`, testUpdatedAt)
	})
	mux.HandleFunc("/api/views/abcd-1234/rows.csv", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("accessType"); got != "DOWNLOAD" {
			t.Errorf("accessType = %q, want DOWNLOAD", got)
		}
		fmt.Fprintln(w, "date,cases")
		fmt.Fprintln(w, "2022-01-07,12")
	})
	return mux
}

func TestDownloadWritesTimestampedCSV(t *testing.T) {
	srv := httptest.NewServer(socrataHandler(t))
	defer srv.Close()

	c := testClient(t, srv)
	path, err := c.Download(context.Background(), Asset{Name: "covid_cases", ID: "abcd-1234"})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if got := filepath.Base(path); got != "covid_cases_20220108_1230.csv" {
		t.Errorf("filename = %q, want covid_cases_20220108_1230.csv", got)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !strings.HasPrefix(string(data), "date,cases\n") {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestDownloadThrottled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	_, err := c.Download(context.Background(), Asset{Name: "covid_cases", ID: "abcd-1234"})
	if !errors.Is(err, ErrThrottled) {
		t.Errorf("err = %v, want ErrThrottled", err)
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	meta := socrataHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		meta.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	path, err := c.Download(context.Background(), Asset{Name: "covid_cases", ID: "abcd-1234"})
	if err != nil {
		t.Fatalf("Download after retries: %v", err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
	if n := calls.Load(); n < 3 {
		t.Errorf("server saw %d calls, want at least 3", n)
	}
}

func TestDownloadMissingMetadataTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "abcd-1234"}`)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	_, err := c.Download(context.Background(), Asset{Name: "covid_cases", ID: "abcd-1234"})
	if err == nil || !strings.Contains(err.Error(), "rowsUpdatedAt") {
		t.Errorf("err = %v, want missing rowsUpdatedAt", err)
	}
}

func TestDownloadAllIsolatesFailures(t *testing.T) {
	srv := httptest.NewServer(socrataHandler(t))
	defer srv.Close()

	c := testClient(t, srv)
	assets := []Asset{
		{Name: "missing_dataset", ID: "zzzz-9999"},
		{Name: "covid_cases", ID: "abcd-1234"},
	}

	err := c.DownloadAll(context.Background(), assets)
	if err == nil {
		t.Fatal("expected an error for the missing dataset")
	}
	if !strings.Contains(err.Error(), "missing_dataset") {
		t.Errorf("err = %v, want it to name missing_dataset", err)
	}

	// The healthy dataset still landed.
	matches, _ := filepath.Glob(filepath.Join(c.outDir, "covid_cases_*.csv"))
	if len(matches) != 1 {
		t.Errorf("downloads = %v, want one covid_cases file", matches)
	}
}

func TestAssetCatalogsAreWellFormed(t *testing.T) {
	for _, assets := range [][]Asset{HealthDataAssets, CDCAssets} {
		seen := make(map[string]bool)
		for _, a := range assets {
			if a.Name == "" || a.ID == "" {
				t.Errorf("incomplete asset %+v", a)
			}
			if len(a.ID) != 9 || a.ID[4] != '-' {
				t.Errorf("asset %s has malformed id %q", a.Name, a.ID)
			}
			if seen[a.Name] {
				t.Errorf("duplicate asset name %q", a.Name)
			}
			seen[a.Name] = true
		}
	}
}
