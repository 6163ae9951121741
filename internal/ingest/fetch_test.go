package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch_RetriesThenWrites(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua == "" || ua == "Go-http-client/1.1" {
			t.Errorf("User-Agent = %q, want marsweather agent", ua)
		}
		w.Write([]byte(kaggleCSV))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data", "mars-weather.csv")
	f := NewFetcher()
	f.maxElapsed = 10 * time.Second

	n, err := f.Fetch(context.Background(), srv.URL+"/mars-weather.csv", dest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n != int64(len(kaggleCSV)) {
		t.Errorf("n = %d, want %d", n, len(kaggleCSV))
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != kaggleCSV {
		t.Error("written file does not match download")
	}
}

func TestFetch_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mars-weather.csv")
	if _, err := NewFetcher().Fetch(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 404)", calls.Load())
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination should not exist after failed fetch")
	}
}

func TestFetch_RejectsMalformedTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sol,min_temp\nabc,-70\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mars-weather.csv")
	if err := os.WriteFile(dest, []byte(kaggleCSV), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFetcher().Fetch(context.Background(), srv.URL, dest); err == nil {
		t.Fatal("expected error for malformed download")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != kaggleCSV {
		t.Error("existing file was replaced by a rejected download")
	}
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	_, err := NewFetcher().Fetch(context.Background(), "file:///tmp/x.csv", filepath.Join(t.TempDir(), "x.csv"))
	if err == nil {
		t.Fatal("expected error for file:// scheme")
	}
}
