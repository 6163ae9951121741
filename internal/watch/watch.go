// Package watch re-runs a callback when a single file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// FileWatcher watches the directory holding a file, so editors that save by
// rename are still seen, and filters events down to that file.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

func New(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &FileWatcher{path: abs, watcher: w, debounce: DefaultDebounce}, nil
}

func (fw *FileWatcher) SetDebounce(d time.Duration) {
	fw.debounce = d
}

func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

// Run calls onChange once per burst of writes to the file until ctx is done.
// Errors from onChange are logged, not returned.
func (fw *FileWatcher) Run(ctx context.Context, onChange func() error) error {
	timer := time.NewTimer(fw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(fw.debounce)
		case <-timer.C:
			if err := onChange(); err != nil {
				log.Printf("watch: %v", err)
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
