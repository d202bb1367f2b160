package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGeneratorRunWritesSourceAndRegistry(t *testing.T) {
	out := t.TempDir()
	gen := &Generator{
		Ops:            []string{"Sum", "And", "MaxAndArgMax"},
		Types:          []string{"float32", "uint32"},
		IdxType:        "int32",
		FreeBuckets:    []int{1, 2},
		ReducedBuckets: []int{1},
		OutDir:         out,
		RegistryPkg:    "generated",
	}

	n, err := gen.Run()
	if err != nil {
		t.Fatal(err)
	}
	// Sum: numeric, both types * 2 free buckets * 1 reduced bucket = 4
	// And: integer-only, uint32 only * 2 * 1 = 2
	// MaxAndArgMax: numeric, both types * 2 * 1 = 4
	if want := 10; n != want {
		t.Fatalf("generated %d signatures, want %d", n, want)
	}

	registry, err := os.ReadFile(filepath.Join(out, "registry.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(registry), "package generated") {
		t.Errorf("registry.go missing expected package clause:\n%s", registry)
	}
	if !strings.Contains(string(registry), "var Entries") {
		t.Errorf("registry.go missing Entries var:\n%s", registry)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	var cuFiles int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".cu") {
			cuFiles++
		}
	}
	if cuFiles != n {
		t.Errorf("found %d .cu files on disk, want %d", cuFiles, n)
	}
}

func TestAllowsSkipsBitwiseOnFloat(t *testing.T) {
	if allows("integer", "numeric-only") {
		t.Error("bitwise ops must not admit float-only types")
	}
	if !allows("numeric", "numeric-only") {
		t.Error("numeric ops must admit float types")
	}
	if !allows("numeric", "integer") {
		t.Error("numeric ops must admit integer types too")
	}
}

func TestAccTypeForWidensFloat16(t *testing.T) {
	if got := accTypeFor("float16"); got != "float32" {
		t.Errorf("accTypeFor(float16) = %q, want float32", got)
	}
	if got := accTypeFor("int32"); got != "int32" {
		t.Errorf("accTypeFor(int32) = %q, want int32 (unwidened)", got)
	}
}
