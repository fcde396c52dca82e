// Package watch triggers a callback when files below a set of directories
// change, coalescing bursts of events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/osusec/beavercds-ng/internal/log"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watcher recursively watches directories. fsnotify only watches single
// directories, so every subdirectory is added, including ones created later.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger
	roots    []string
}

// New watches roots and their subdirectories. Roots that do not exist are
// skipped with a log line; at least one must exist.
func New(roots []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{
		fs:       fw,
		debounce: debounce,
		logger:   log.WithComponent("watch"),
	}

	for _, root := range roots {
		if root == "" {
			continue
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			w.logger.Debug().Str("dir", root).Msg("not found, not watching")
			continue
		}
		if err := w.addTree(root); err != nil {
			_ = fw.Close()
			return nil, err
		}
		w.roots = append(w.roots, root)
	}
	if len(w.roots) == 0 {
		_ = fw.Close()
		return nil, errors.New("no directory to watch")
	}
	return w, nil
}

// Roots returns the directories actually being watched.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("walk error")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers debounced change notifications to onChange until ctx is
// done, then closes the watcher. onChange runs on Run's goroutine, so calls
// never overlap.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	defer w.fs.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("change detected")

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn().Err(err).Str("dir", event.Name).Msg("could not watch new directory")
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")

		case <-fire:
			fire = nil
			onChange()
		}
	}
}
