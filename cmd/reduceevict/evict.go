package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

type cacheFile struct {
	path    string
	size    int64
	modTime int64 // unix nanos; reduce/cache.Cache.touch keeps this as the LRU access marker
}

// Evict walks dir (reduce/cache.Cache's on-disk marker directory),
// totals its size, and — if over budgetBytes — deletes the
// least-recently-touched files first until the total is back under
// budget. With dryRun set, it reports what would be deleted without
// touching the filesystem.
func Evict(dir string, budgetBytes int64, dryRun bool, logger *slog.Logger) (evictedCount int, freedBytes int64, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("cache directory does not exist, nothing to evict", "dir", dir)
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("reading cache dir %s: %w", dir, err)
	}

	var files []cacheFile
	var total int64
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			logger.Warn("skipping unreadable entry", "name", de.Name(), "error", err)
			continue
		}
		files = append(files, cacheFile{
			path:    filepath.Join(dir, de.Name()),
			size:    info.Size(),
			modTime: info.ModTime().UnixNano(),
		})
		total += info.Size()
	}

	logger.Info("cache scan complete", "dir", dir, "files", len(files), "total_bytes", total, "budget_bytes", budgetBytes)
	if total <= budgetBytes {
		return 0, 0, nil
	}

	// Oldest access time first.
	sort.Slice(files, func(i, j int) bool { return files[i].modTime < files[j].modTime })

	over := total - budgetBytes
	for _, f := range files {
		if over <= 0 {
			break
		}
		if dryRun {
			logger.Info("would evict", "path", f.path, "size", f.size)
		} else {
			if err := os.Remove(f.path); err != nil {
				logger.Warn("failed to evict", "path", f.path, "error", err)
				continue
			}
			logger.Debug("evicted", "path", f.path, "size", f.size)
		}
		evictedCount++
		freedBytes += f.size
		over -= f.size
	}
	return evictedCount, freedBytes, nil
}
