package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newSilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFileAt(t *testing.T, dir, name string, size int, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEvictUnderBudgetNoOp(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "a", 100, time.Hour)
	writeFileAt(t, dir, "b", 100, time.Minute)

	n, freed, err := Evict(dir, 1000, false, newSilentLogger())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || freed != 0 {
		t.Errorf("got n=%d freed=%d, want 0,0 when under budget", n, freed)
	}
}

func TestEvictRemovesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "oldest", 100, 3*time.Hour)
	writeFileAt(t, dir, "middle", 100, 2*time.Hour)
	writeFileAt(t, dir, "newest", 100, time.Hour)

	n, freed, err := Evict(dir, 150, false, newSilentLogger())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || freed != 200 {
		t.Fatalf("got n=%d freed=%d, want 2,200", n, freed)
	}
	if _, err := os.Stat(filepath.Join(dir, "newest")); err != nil {
		t.Errorf("newest file should survive eviction: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "oldest")); !os.IsNotExist(err) {
		t.Errorf("oldest file should have been evicted")
	}
}

func TestEvictDryRunLeavesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "a", 100, time.Hour)
	writeFileAt(t, dir, "b", 100, time.Minute)

	n, freed, err := Evict(dir, 50, true, newSilentLogger())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || freed != 200 {
		t.Fatalf("got n=%d freed=%d, want 2,200 reported", n, freed)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("dry-run must not delete files, found %d entries", len(entries))
	}
}

func TestEvictMissingDirIsNotError(t *testing.T) {
	n, freed, err := Evict(filepath.Join(t.TempDir(), "does-not-exist"), 100, false, newSilentLogger())
	if err != nil {
		t.Fatalf("missing cache dir should not error: %v", err)
	}
	if n != 0 || freed != 0 {
		t.Errorf("got n=%d freed=%d, want 0,0", n, freed)
	}
}
