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

// Package gpu defines the external collaborator interfaces the reduction
// engine is built against: the GPU context and the numeric-type registry.
// The engine never links a real GPU driver; production callers supply a
// Context backed by whatever compute stack they run (CUDA, ROCm, a
// Vulkan compute path, ...). The fake subpackage provides an in-process,
// host-memory Context used by this module's own test suite.
package gpu

import "context"

// Category classifies an element type for operator admissibility checks
// (BAD_TYPE — e.g. bitwise ops reject floats).
type Category int

const (
	CategorySignedInt Category = iota
	CategoryUnsignedInt
	CategoryFloat
	CategoryBool
)

// TypeInfo is the numeric-type registry interface. One instance describes
// one element type available to the engine.
type TypeInfo interface {
	// Name is a stable, printable identifier used both as a cache-key
	// component and embedded directly into generated kernel source.
	Name() string
	// ByteWidth is the element's size in bytes.
	ByteWidth() int
	Category() Category
	// AccumulatorType returns the type used to accumulate this element
	// type's values during a reduction — e.g. float16 sum widens to a
	// float32 accumulator.
	AccumulatorType() TypeInfo
}

// Buffer is an opaque handle to device memory. The engine treats it as
// inert — it never dereferences it directly, only passes it back to the
// Context that allocated it.
type Buffer interface {
	// Bytes is the buffer's allocated size, for bookkeeping/assertions.
	Bytes() int64
}

// Dim3 is a 3-component launch dimension (grid or block shape).
type Dim3 struct {
	X, Y, Z int
}

// KernelSource is the generated, not-yet-compiled kernel text plus the
// static signature it was generated for. It is treated as an opaque
// string by Context.Compile.
type KernelSource struct {
	Signature string // cache-key string; see kernelsrc.Signature.Key()
	Text      string
	EntryName string

	// Meta carries the generator's structured kernelsrc.Signature for
	// collaborators that want it without re-parsing Text. A real Context
	// only ever consumes Text; this module's own in-process test fake
	// (gpu/fake) uses Meta to interpret a signature's semantics directly
	// rather than parsing generated kernel source.
	Meta any
}

// Binary is an opaque compiled kernel handle returned by Context.Compile
// and passed back into Context.Launch. It is also what the process-wide
// kernel cache stores.
type Binary interface {
	EntryName() string
}

// LaunchArgs mirrors the kernel-argument layout fixed by the kernel
// generator: padded fixed-rank free and reduced axis descriptors plus
// base pointers.
type LaunchArgs struct {
	Free        []FreeAxisArg
	Reduced     []ReducedAxisArg
	SrcBase     Buffer
	SrcOffset   int64
	DstBase     Buffer
	DstOffset   int64
	DstIdxBase  Buffer // nil unless the op tracks an index
	DstIdxOff   int64
	M, N        int64
	ScratchBase Buffer // nil unless the inter-warp path needs scratch
}

// FreeAxisArg is one padded free-axis kernel argument slot. Unused slots
// carry Length 1 and zero strides.
type FreeAxisArg struct {
	Length         int64
	SrcStride      int64
	DstStride      int64
	DstIndexStride int64
}

// ReducedAxisArg is one padded reduced-axis kernel argument slot.
type ReducedAxisArg struct {
	Length    int64
	SrcStride int64
	IdxWeight int64
}

// Context is the external GPU context/allocator collaborator. All
// operations that touch the device accept a context.Context for
// cancellation/timeout of the host-side submission call; none of them
// block on kernel *completion*.
type Context interface {
	Alloc(ctx context.Context, bytes int64) (Buffer, error)
	Free(ctx context.Context, buf Buffer) error
	Memset(ctx context.Context, buf Buffer, pattern byte) error
	WriteHost(ctx context.Context, buf Buffer, offset int64, data []byte) error
	ReadHost(ctx context.Context, buf Buffer, offset int64, out []byte) error

	Compile(ctx context.Context, src KernelSource) (Binary, error)
	Launch(ctx context.Context, bin Binary, grid, block Dim3, args LaunchArgs) error

	WarpSize() int
	MaxBlockSize() int
	// ArchTag participates in the kernel cache key.
	ArchTag() string
}
