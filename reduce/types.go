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

package reduce

import "github.com/example/gpureduce/reduce/gpu"

// Tensor is the engine's tensor descriptor: rank, per-axis length and byte
// stride, element type, and a device buffer handle. The engine never owns
// the buffer; it is the caller's for the duration of the call.
type Tensor struct {
	Buf     gpu.Buffer
	Offset  int64 // bytes, into Buf
	Shape   []int64
	Strides []int64 // bytes, signed; may be negative or non-contiguous
	Elem    gpu.TypeInfo
}

// Rank returns the tensor's dimensionality.
func (t Tensor) Rank() int { return len(t.Shape) }

// elemCount returns the product of t's axis lengths, the logical element
// count.
func (t Tensor) elemCount() int64 {
	n := int64(1)
	for _, l := range t.Shape {
		n *= l
	}
	return n
}

// Request bundles one reduction call's inputs.
type Request struct {
	Src        Tensor
	Dst        Tensor
	DstIndex   *Tensor // present iff Op.TracksIndex()
	ReduceAxes []int   // caller order, not sorted — see Plan.Reduced
	Op         Op
}

// FreeAxis is one free-axis descriptor in launch iteration order.
type FreeAxis struct {
	Length         int64
	SrcStride      int64
	DstStride      int64
	DstIndexStride int64
}

// ReducedAxis is one reduced-axis descriptor. For index-tracking ops the
// plan keeps them in the caller's original reduce_axes order, since argmax
// digit weighting depends on that order; for all other ops the planner
// sorts them by ascending |SrcStride| and coalesces contiguous runs.
type ReducedAxis struct {
	Length    int64
	SrcStride int64
	// Weight is the multiplier used when composing a flat index from a
	// position inside the reduced subspace. A coalesced axis carries 0.
	Weight int64
}

// Plan is the planner's output. It owns no device memory and is a
// read-only, call-local value.
type Plan struct {
	Free    []FreeAxis
	Reduced []ReducedAxis
	M       int64 // product of free-axis lengths
	N       int64 // product of reduced-axis lengths
	Op      Op

	// Hot is the index into Reduced of the innermost (smallest
	// |SrcStride|) reduced axis after permutation, the hot axis. -1 when
	// there are no reduced axes.
	Hot int

	SrcElem    gpu.TypeInfo
	DstElem    gpu.TypeInfo
	DstIdxElem gpu.TypeInfo // nil unless Op.TracksIndex()

	SrcBase    gpu.Buffer
	SrcOffset  int64
	DstBase    gpu.Buffer
	DstOffset  int64
	DstIdxBase gpu.Buffer
	DstIdxOff  int64
}
