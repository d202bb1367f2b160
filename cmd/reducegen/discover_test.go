package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverOpsFindsFixedTable(t *testing.T) {
	ops, err := discoverOps("../../reduce/ops.go")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Sum", "Prod", "ProdNZ", "Max", "Min", "And", "Or", "Xor", "Any", "All",
		"ArgMax", "ArgMin", "MaxAndArgMax", "MinAndArgMin"}
	if len(ops) != len(want) {
		t.Fatalf("got %d ops %v, want %d: %v", len(ops), ops, len(want), want)
	}
	seen := make(map[string]bool, len(ops))
	for _, o := range ops {
		seen[o] = true
	}
	for _, w := range want {
		if !seen[w] {
			t.Errorf("missing op %q in discovered table %v", w, ops)
		}
	}
}

func TestDiscoverOpsRejectsFileWithoutTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.go")
	if err := os.WriteFile(path, []byte("package x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := discoverOps(path); err == nil {
		t.Error("expected an error for a file with no opTable")
	}
}
