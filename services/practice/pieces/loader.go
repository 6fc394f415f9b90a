// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pieces

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Loader seeds the repository from a directory of *.json piece files and
// keeps it current while the service runs. A file dropped into the directory
// becomes startable without a restart.
type Loader struct {
	repo    *Repository
	dir     string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLoader creates a loader for the given directory. The logger may be nil.
func NewLoader(repo *Repository, dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{repo: repo, dir: dir, logger: logger, done: make(chan struct{})}
}

// LoadDir loads every *.json file in the directory into the repository.
// Individual bad files are logged and skipped.
func (l *Loader) LoadDir(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, fmt.Errorf("read piece directory %s: %w", l.dir, err)
	}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := l.loadFile(ctx, filepath.Join(l.dir, entry.Name())); err != nil {
			l.logger.Warn("Skipping unreadable piece file", "file", entry.Name(), "error", err)
			continue
		}
		loaded++
	}
	l.logger.Info("Loaded piece directory", "dir", l.dir, "pieces", loaded)
	return loaded, nil
}

// Watch starts watching the directory and reloads pieces on create/write
// events until Stop is called. Call after LoadDir.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create piece watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch piece directory %s: %w", l.dir, err)
	}
	l.watcher = watcher

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-l.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				if !strings.HasSuffix(event.Name, ".json") {
					continue
				}
				if err := l.loadFile(ctx, event.Name); err != nil {
					l.logger.Warn("Failed to reload piece file", "file", event.Name, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("Piece watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Stop ends the watch goroutine. Safe to call when Watch was never started.
func (l *Loader) Stop() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

func (l *Loader) loadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var piece Piece
	if err := json.Unmarshal(data, &piece); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if piece.ID == "" {
		// Fall back to the filename so hand-authored files stay minimal.
		piece.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return l.repo.Put(ctx, &piece)
}
