package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/baseline-warden/internal/detect"
	"github.com/jward/baseline-warden/internal/files"
	"github.com/jward/baseline-warden/internal/log"
)

// watchDebounce is how long the watcher waits for changes to settle.
const watchDebounce = 300 * time.Millisecond

// watchAndScan runs scan once, then again after every burst of relevant
// file changes under root, until ctx is done. An error from the first scan
// is returned; later errors are logged and watching continues.
func watchAndScan(ctx context.Context, root string, ignore []string, debounce time.Duration, scan func() error) error {
	if err := scan(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := addWatchDirs(w, root, root, ignore); err != nil {
		return err
	}
	log.Info("watching for changes", "root", root)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("watch stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				// New directories are not watched until added.
				if err := addWatchDirs(w, root, ev.Name, ignore); err != nil {
					log.Debug("watch new path", "path", ev.Name, "error", err)
				}
			}
			if !relevantEvent(ev) {
				continue
			}
			log.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case <-timer.C:
			if err := scan(); err != nil {
				log.Error("scan failed", "error", err)
			}
		}
	}
}

// addWatchDirs watches dir and every directory below it. A directory is
// skipped when a file directly inside it would be ignored, so trees such as
// node_modules are never watched. Ignore patterns are relative to root.
func addWatchDirs(w *fsnotify.Watcher, root, dir string, ignore []string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipWatchDir(root, path, d.Name(), ignore) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func skipWatchDir(root, path, name string, ignore []string) bool {
	if path != root && strings.HasPrefix(name, ".") {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return files.Ignored(filepath.ToSlash(rel)+"/_", ignore)
}

// relevantEvent reports whether ev may change scan results: a write,
// create, remove or rename of a file some detector reads.
func relevantEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	_, ok := detect.FamilyForFile(ev.Name)
	return ok
}
