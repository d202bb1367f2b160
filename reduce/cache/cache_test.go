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

package cache

import (
	"context"
	"testing"

	"github.com/example/gpureduce/reduce/gpu"
)

type fakeBinary struct{ name string }

func (b fakeBinary) EntryName() string { return b.name }

func TestLoadOrCompileCachesOnHash(t *testing.T) {
	c := New(WithDir(t.TempDir()))
	key := Key{SignatureKey: "sum|acc=float32", ArchTag: "amd64-avx2"}

	calls := 0
	fn := func(ctx context.Context) (gpu.Binary, error) {
		calls++
		return fakeBinary{name: "sum_kernel"}, nil
	}

	bin1, err := c.LoadOrCompile(context.Background(), key, fn)
	if err != nil {
		t.Fatalf("LoadOrCompile: %v", err)
	}
	bin2, err := c.LoadOrCompile(context.Background(), key, fn)
	if err != nil {
		t.Fatalf("LoadOrCompile (second): %v", err)
	}

	if calls != 1 {
		t.Errorf("compile func called %d times, want 1", calls)
	}
	if bin1.EntryName() != bin2.EntryName() {
		t.Errorf("cached binaries differ: %q vs %q", bin1.EntryName(), bin2.EntryName())
	}
	if c.Len() != 1 {
		t.Errorf("cache has %d entries, want 1", c.Len())
	}
}

func TestLoadOrCompileDistinctKeysDistinctEntries(t *testing.T) {
	c := New(WithDir(t.TempDir()))
	fn := func(ctx context.Context) (gpu.Binary, error) {
		return fakeBinary{name: "k"}, nil
	}

	k1 := Key{SignatureKey: "sum|acc=float32", ArchTag: "amd64-avx2"}
	k2 := Key{SignatureKey: "max|acc=float32", ArchTag: "amd64-avx2"}

	if _, err := c.LoadOrCompile(context.Background(), k1, fn); err != nil {
		t.Fatal(err)
	}
	if _, err := c.LoadOrCompile(context.Background(), k2, fn); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Errorf("cache has %d entries, want 2", c.Len())
	}
}

func TestLoadOrCompilePropagatesCompileError(t *testing.T) {
	c := New(WithDir(t.TempDir()))
	key := Key{SignatureKey: "sum|acc=float32", ArchTag: "amd64-avx2"}

	wantErr := &testError{"compile failed"}
	_, err := c.LoadOrCompile(context.Background(), key, func(ctx context.Context) (gpu.Binary, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Errorf("got err %v, want %v", err, wantErr)
	}
	if c.Len() != 0 {
		t.Errorf("cache has %d entries after failed compile, want 0", c.Len())
	}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
