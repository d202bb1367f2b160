// Command reduceevict enforces a byte budget on the on-disk kernel
// binary cache reduce/cache.Cache writes markers into: one file per
// cache key, evicted least-recently-used-by-access-time once the
// directory exceeds a configured byte budget. Eviction is a separate
// maintenance concern and is not part of the engine itself.
//
// Usage:
//
//	reduceevict -dir /var/cache/gpureduce -budget 1GiB
//	reduceevict -budget 1GiB -dry-run
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

var (
	dir     = flag.String("dir", "", "cache directory (default: $GPUREDUCE_CACHE_DIR or os.UserCacheDir()/gpureduce)")
	budget  = flag.String("budget", "1GiB", "byte budget, humanized (e.g. 512MiB, 2GiB)")
	dryRun  = flag.Bool("dry-run", false, "report what would be evicted without deleting anything")
	verbose = flag.Bool("v", false, "debug-level logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	budgetBytes, err := humanize.ParseBytes(*budget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -budget %q: %v\n\n", *budget, err)
		flag.Usage()
		os.Exit(1)
	}

	cacheDir := *dir
	if cacheDir == "" {
		cacheDir = resolveDefaultDir()
	}
	if cacheDir == "" {
		fmt.Fprintln(os.Stderr, "Error: no cache directory resolved; pass -dir explicitly")
		os.Exit(1)
	}

	evicted, freed, err := Evict(cacheDir, int64(budgetBytes), *dryRun, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	verb := "evicted"
	if *dryRun {
		verb = "would evict"
	}
	fmt.Printf("reduceevict: %s %d files (%s) from %s\n", verb, evicted, humanize.Bytes(uint64(freed)), cacheDir)
}

func resolveDefaultDir() string {
	if d := os.Getenv("GPUREDUCE_CACHE_DIR"); d != "" {
		return d
	}
	if base, err := os.UserCacheDir(); err == nil {
		return base + "/gpureduce"
	}
	return ""
}
