// Package watcher counts changes to a working tree.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// skipDirs are never watched.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Watcher wraps fsnotify and bumps a revision once per burst of changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration
	revision atomic.Uint64
	changed  func()
}

// New creates a watcher over root and every directory beneath it.
func New(root string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, root: root, debounce: debounce}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// OnChange registers fn to run after each revision bump. It must be set
// before Run.
func (w *Watcher) OnChange(fn func()) {
	w.changed = fn
}

// Revision returns the number of change bursts seen so far.
func (w *Watcher) Revision() uint64 {
	return w.revision.Load()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish between listing and watching.
			if path != root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Warn().Err(err).Str("dir", path).Msg("cannot watch directory")
		}
		return nil
	})
}

// Run forwards fsnotify events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						log.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch new directory")
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			rev := w.revision.Add(1)
			log.Debug().Uint64("revision", rev).Msg("working tree changed")
			if w.changed != nil {
				w.changed()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

// ignored reports whether path lies inside a skipped directory.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for dir := rel; dir != "." && dir != string(filepath.Separator) && dir != ""; dir = filepath.Dir(dir) {
		if skipDirs[filepath.Base(dir)] {
			return true
		}
	}
	return false
}
