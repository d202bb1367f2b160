// Copyright 2026 gpureduce Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implements the process-wide kernel binary cache.
//
// The in-memory layer is a sync.RWMutex-guarded map, safe under
// concurrent readers and serialised writers. The on-disk layer persists
// one file per cache key under a directory resolved from
// GPUREDUCE_CACHE_DIR (or os.UserCacheDir as a fallback), filename being a
// stable hash of the key — eviction of that directory is explicitly a
// separate maintenance tool's job (cmd/reduceevict), not this package's.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/example/gpureduce/reduce/gpu"
)

// Key is the full kernel cache key: the kernel-source generator's
// structural Signature plus the device_arch_tag.
type Key struct {
	SignatureKey string
	ArchTag      string
}

func (k Key) String() string {
	return k.SignatureKey + "|arch=" + k.ArchTag
}

// Hash returns a stable, filesystem-safe hash of the key, used both as
// the in-memory map key and the on-disk filename.
func (k Key) Hash() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:16])
}

// CompileFunc generates-and-compiles a binary for a cache miss. It is
// supplied by the caller (the reduce.Engine) since only it knows how to
// drive both the kernel-source generator and the gpu.Context.Compile
// collaborator.
type CompileFunc func(ctx context.Context) (gpu.Binary, error)

// Cache is the process-wide kernel binary cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]gpu.Binary

	logger *slog.Logger
	dir    string // on-disk persistence root; "" disables disk persistence
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithLogger overrides the default stderr text logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithDir overrides the on-disk cache directory. Passing "" disables
// on-disk persistence (in-memory only).
func WithDir(dir string) Option {
	return func(c *Cache) { c.dir = dir }
}

// New constructs a Cache. The on-disk directory defaults to
// GPUREDUCE_CACHE_DIR, falling back to a "gpureduce" subdirectory of
// os.UserCacheDir.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]gpu.Binary),
		logger:  slog.New(slog.NewTextHandler(os.Stderr, nil)),
		dir:     defaultCacheDir(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultCacheDir() string {
	if dir := os.Getenv("GPUREDUCE_CACHE_DIR"); dir != "" {
		return dir
	}
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "gpureduce")
	}
	return ""
}

// LoadOrCompile returns the cached binary for key, compiling (via fn) and
// inserting on a miss.
//
// The disk layer here only records that a compile happened for key — it
// does not itself persist the opaque gpu.Binary handle across process
// restarts, since a Binary is only meaningful within the gpu.Context that
// produced it. A real deployment's gpu.Context implementation is expected
// to consult the same on-disk directory for its own binary bytes; this
// package's disk bookkeeping exists so cmd/reduceevict has a stable,
// crash-surviving view of what is cached and when it was last touched.
func (c *Cache) LoadOrCompile(ctx context.Context, key Key, fn CompileFunc) (gpu.Binary, error) {
	hash := key.Hash()

	c.mu.RLock()
	bin, ok := c.entries[hash]
	c.mu.RUnlock()
	if ok {
		c.touch(hash)
		return bin, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the write lock: another goroutine may have compiled
	// this exact key while we waited.
	if bin, ok := c.entries[hash]; ok {
		c.touch(hash)
		return bin, nil
	}

	c.logger.Info("kernel cache miss", "key", key.String(), "hash", hash)
	bin, err := fn(ctx)
	if err != nil {
		c.logger.Warn("kernel compile failed", "key", key.String(), "error", err)
		return nil, err
	}
	c.entries[hash] = bin
	c.recordDiskMeta(hash, key)
	return bin, nil
}

// touch updates the on-disk access-time marker used by cmd/reduceevict's
// LRU-by-access-time eviction policy.
func (c *Cache) touch(hash string) {
	if c.dir == "" {
		return
	}
	path := filepath.Join(c.dir, hash)
	now := time.Now()
	_ = os.Chtimes(path, now, now)
}

func (c *Cache) recordDiskMeta(hash string, key Key) {
	if c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("kernel cache: could not create cache dir", "dir", c.dir, "error", err)
		return
	}
	path := filepath.Join(c.dir, hash)
	if err := os.WriteFile(path, []byte(key.String()+"\n"), 0o644); err != nil {
		c.logger.Warn("kernel cache: could not write cache marker", "path", path, "error", err)
	}
}

// Len reports the number of entries currently cached in memory.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dir reports the on-disk persistence root in use.
func (c *Cache) Dir() string { return c.dir }
