// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_DefaultsToStderr(t *testing.T) {
	logger := New(Config{})
	defer logger.Close()

	if logger.Slog() == nil {
		t.Fatal("expected a usable slog.Logger")
	}
	if logger.file != nil {
		t.Error("no file should be opened without LogDir")
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Service: "practice", LogDir: dir, JSON: true})

	logger.Slog().Info("hello from test", "key", "value")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one log file, got %v (err %v)", entries, err)
	}
	if !strings.HasPrefix(entries[0].Name(), "practice_") {
		t.Errorf("log file should be named after the service, got %s", entries[0].Name())
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hello from test") {
		t.Error("log file should contain the message")
	}
	if !strings.Contains(content, `"service":"practice"`) {
		t.Error("log file entries should carry the service attribute")
	}
}

func TestLevel_Filtering(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Service: "practice", LogDir: dir, Level: LevelWarn})

	logger.Slog().Info("filtered out")
	logger.Slog().Warn("kept")
	logger.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one log file, got %d", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if strings.Contains(string(data), "filtered out") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("warn entry should survive the filter")
	}
}

func TestToSlogLevel(t *testing.T) {
	cases := map[Level]slog.Level{
		LevelDebug: slog.LevelDebug,
		LevelInfo:  slog.LevelInfo,
		LevelWarn:  slog.LevelWarn,
		LevelError: slog.LevelError,
	}
	for in, want := range cases {
		if got := in.toSlogLevel(); got != want {
			t.Errorf("level %d mapped to %v, want %v", in, got, want)
		}
	}
}
