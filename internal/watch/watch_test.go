package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_CallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mars-weather.csv")
	if err := os.WriteFile(path, []byte("sol\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fw, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer fw.Close()
	fw.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- fw.Run(ctx, func() error {
			if calls.Add(1) == 1 {
				cancel()
			}
			return nil
		})
	}()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("sol\n1\n2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mars-weather.csv")
	fw, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer fw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fw.Run(ctx, func() error {
		t.Error("onChange called without a write")
		return nil
	}); err != nil {
		t.Errorf("Run: %v", err)
	}
}
