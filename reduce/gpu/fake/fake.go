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

// Package fake provides an in-process, host-memory gpu.Context used by
// this module's own test suite. A production caller supplies a real
// device context; this fake lets the planner, launch configurator, and
// invocation path be exercised deterministically without one.
//
// Rather than parse the generated kernel source text, the fake's Compile
// keeps the kernelsrc.Signature carried in KernelSource.Meta and
// interprets it directly in Launch — a reference implementation of the
// same per-fibre algorithm the generated kernels implement, used only to
// check that the planner and configurator feed a kernel correct,
// well-formed work.
package fake

import (
	"context"
	"fmt"
	"math"

	"github.com/example/gpureduce/reduce/gpu"
	"github.com/example/gpureduce/reduce/kernelsrc"
)

// Buffer is host memory standing in for a device allocation.
type Buffer struct {
	data []byte
}

func (b *Buffer) Bytes() int64 { return int64(len(b.data)) }

// Binary wraps the signature a Compile call was asked to produce.
type Binary struct {
	sig kernelsrc.Signature
}

func (b *Binary) EntryName() string { return b.sig.EntryName() }

// Context is the fake gpu.Context implementation.
type Context struct {
	warpSize      int
	maxBlockSize  int
	archTag       string
	compileCalls  int
	launchCalls   int
}

// New constructs a fake Context with the given tuning parameters.
func New(warpSize, maxBlockSize int, archTag string) *Context {
	return &Context{warpSize: warpSize, maxBlockSize: maxBlockSize, archTag: archTag}
}

func (c *Context) WarpSize() int      { return c.warpSize }
func (c *Context) MaxBlockSize() int  { return c.maxBlockSize }
func (c *Context) ArchTag() string    { return c.archTag }
func (c *Context) CompileCalls() int  { return c.compileCalls }
func (c *Context) LaunchCalls() int   { return c.launchCalls }

func (c *Context) Alloc(ctx context.Context, bytes int64) (gpu.Buffer, error) {
	return &Buffer{data: make([]byte, bytes)}, nil
}

func (c *Context) Free(ctx context.Context, buf gpu.Buffer) error {
	return nil
}

func (c *Context) Memset(ctx context.Context, buf gpu.Buffer, pattern byte) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("fake: Memset on foreign buffer type %T", buf)
	}
	for i := range b.data {
		b.data[i] = pattern
	}
	return nil
}

func (c *Context) WriteHost(ctx context.Context, buf gpu.Buffer, offset int64, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("fake: WriteHost on foreign buffer type %T", buf)
	}
	if offset < 0 || offset+int64(len(data)) > int64(len(b.data)) {
		return fmt.Errorf("fake: WriteHost out of bounds: offset=%d len=%d buf=%d", offset, len(data), len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

func (c *Context) ReadHost(ctx context.Context, buf gpu.Buffer, offset int64, out []byte) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("fake: ReadHost on foreign buffer type %T", buf)
	}
	if offset < 0 || offset+int64(len(out)) > int64(len(b.data)) {
		return fmt.Errorf("fake: ReadHost out of bounds: offset=%d len=%d buf=%d", offset, len(out), len(b.data))
	}
	copy(out, b.data[offset:])
	return nil
}

func (c *Context) Compile(ctx context.Context, src gpu.KernelSource) (gpu.Binary, error) {
	c.compileCalls++
	sig, ok := src.Meta.(kernelsrc.Signature)
	if !ok {
		return nil, fmt.Errorf("fake: Compile requires KernelSource.Meta to carry a kernelsrc.Signature, got %T", src.Meta)
	}
	return &Binary{sig: sig}, nil
}

func (c *Context) Launch(ctx context.Context, bin gpu.Binary, grid, block gpu.Dim3, args gpu.LaunchArgs) error {
	c.launchCalls++
	b, ok := bin.(*Binary)
	if !ok {
		return fmt.Errorf("fake: Launch on foreign binary type %T", bin)
	}
	return interpret(b.sig, args)
}

// interpret runs the reference per-fibre algorithm over host memory. It
// is intentionally sequential: determinism means the result must not
// depend on how work is partitioned across threads/warps, so a
// single-threaded fold is as valid a reference as any parallel one,
// provided it applies the same tie-break rule (lower index wins).
func interpret(sig kernelsrc.Signature, args gpu.LaunchArgs) error {
	srcType, ok := gpu.TypeByName(sig.SrcType)
	if !ok {
		return fmt.Errorf("fake: unknown src type %q", sig.SrcType)
	}
	dstType, ok := gpu.TypeByName(sig.DstType)
	if !ok {
		return fmt.Errorf("fake: unknown dst type %q", sig.DstType)
	}
	var dstIdxType gpu.TypeInfo
	if sig.TracksIndex {
		dstIdxType, ok = gpu.TypeByName(sig.DstIdxType)
		if !ok {
			return fmt.Errorf("fake: unknown dst_idx type %q", sig.DstIdxType)
		}
	}

	srcBuf, ok := args.SrcBase.(*Buffer)
	if !ok {
		return fmt.Errorf("fake: src buffer is not a fake buffer")
	}
	var dstBuf, dstIdxBuf *Buffer
	if sig.WritesValue {
		dstBuf, ok = args.DstBase.(*Buffer)
		if !ok {
			return fmt.Errorf("fake: dst buffer is not a fake buffer")
		}
	}
	if sig.TracksIndex {
		dstIdxBuf, ok = args.DstIdxBase.(*Buffer)
		if !ok {
			return fmt.Errorf("fake: dst_idx buffer is not a fake buffer")
		}
	}

	return forEachFreeCombo(args.Free, args.M, func(srcOff, dstOff, dstIdxOff int64) error {
		best, bestIdx, err := reduceFibre(sig, srcType, srcBuf, args.SrcOffset+srcOff, args.Reduced, args.N)
		if err != nil {
			return err
		}
		if sig.WritesValue {
			encode(dstBuf.data, args.DstOffset+dstOff, dstType, best)
		}
		if sig.TracksIndex {
			encodeInt(dstIdxBuf.data, args.DstIdxOff+dstIdxOff, dstIdxType, bestIdx)
		}
		return nil
	})
}

func forEachFreeCombo(free []gpu.FreeAxisArg, m int64, fn func(srcOff, dstOff, dstIdxOff int64) error) error {
	if len(free) == 0 {
		if m == 0 {
			return nil
		}
		return fn(0, 0, 0)
	}
	coord := make([]int64, len(free))
	for {
		var srcOff, dstOff, dstIdxOff int64
		for i, c := range coord {
			srcOff += c * free[i].SrcStride
			dstOff += c * free[i].DstStride
			dstIdxOff += c * free[i].DstIndexStride
		}
		if err := fn(srcOff, dstOff, dstIdxOff); err != nil {
			return err
		}
		i := len(coord) - 1
		for i >= 0 {
			coord[i]++
			if coord[i] < free[i].Length {
				break
			}
			coord[i] = 0
			i--
		}
		if i < 0 {
			return nil
		}
	}
}

// reduceFibre folds one fibre of N elements, applying sig's combine rule
// and, for index-tracking ops, the lower-index tie-break.
func reduceFibre(sig kernelsrc.Signature, srcType gpu.TypeInfo, srcBuf *Buffer, srcBase int64, reduced []gpu.ReducedAxisArg, n int64) (scalar, int64, error) {
	var best scalar
	var bestIdx int64
	haveBest := false

	coord := make([]int64, len(reduced))
	for k := int64(0); k < n; k++ {
		var off, flat int64
		for i, c := range coord {
			off += c * reduced[i].SrcStride
			flat += c * reduced[i].IdxWeight
		}

		v := decode(srcBuf.data, srcBase+off, srcType)
		v = loadElem(sig.Combine, v)

		if !haveBest {
			best, bestIdx, haveBest = v, flat, true
		} else {
			best, bestIdx = combine(sig.Combine, best, bestIdx, v, flat)
		}

		i := len(coord) - 1
		for i >= 0 {
			coord[i]++
			if coord[i] < reduced[i].Length {
				break
			}
			coord[i] = 0
			i--
		}
	}
	return best, bestIdx, nil
}

// scalar is a generic accumulator value: exactly one of f/i is
// meaningful, selected by isFloat.
type scalar struct {
	f       float64
	i       int64
	isFloat bool
}

func loadElem(c kernelsrc.CombineKind, v scalar) scalar {
	if c == kernelsrc.CombineProdNZ {
		if (v.isFloat && v.f == 0) || (!v.isFloat && v.i == 0) {
			if v.isFloat {
				v.f = 1
			} else {
				v.i = 1
			}
		}
	}
	return v
}

// combine folds `next` (at flat index nextIdx) into the running best,
// applying the operator's associative rule and, where the op tracks an
// index, the "lower index wins" tie-break on equal values.
func combine(c kernelsrc.CombineKind, best scalar, bestIdx int64, next scalar, nextIdx int64) (scalar, int64) {
	switch c {
	case kernelsrc.CombineSum:
		return addScalar(best, next), bestIdx
	case kernelsrc.CombineProd, kernelsrc.CombineProdNZ:
		return mulScalar(best, next), bestIdx
	case kernelsrc.CombineAnd:
		return scalar{i: best.i & next.i}, bestIdx
	case kernelsrc.CombineOr:
		return scalar{i: best.i | next.i}, bestIdx
	case kernelsrc.CombineXor:
		return scalar{i: best.i ^ next.i}, bestIdx
	case kernelsrc.CombineAny:
		return boolScalar(toBool(best) || toBool(next)), bestIdx
	case kernelsrc.CombineAll:
		return boolScalar(toBool(best) && toBool(next)), bestIdx
	case kernelsrc.CombineMax:
		return pickExtreme(best, bestIdx, next, nextIdx, true)
	case kernelsrc.CombineMin:
		return pickExtreme(best, bestIdx, next, nextIdx, false)
	default:
		return best, bestIdx
	}
}

func addScalar(a, b scalar) scalar {
	if a.isFloat || b.isFloat {
		return scalar{isFloat: true, f: toFloat(a) + toFloat(b)}
	}
	return scalar{i: a.i + b.i}
}

func mulScalar(a, b scalar) scalar {
	if a.isFloat || b.isFloat {
		return scalar{isFloat: true, f: toFloat(a) * toFloat(b)}
	}
	return scalar{i: a.i * b.i}
}

func toFloat(v scalar) float64 {
	if v.isFloat {
		return v.f
	}
	return float64(v.i)
}

func toBool(v scalar) bool {
	if v.isFloat {
		return v.f != 0
	}
	return v.i != 0
}

func boolScalar(b bool) scalar {
	if b {
		return scalar{i: 1}
	}
	return scalar{i: 0}
}

// pickExtreme implements the max/min combine with NaN propagation and
// the lower-index tie-break.
func pickExtreme(best scalar, bestIdx int64, next scalar, nextIdx int64, wantMax bool) (scalar, int64) {
	bf, nf := toFloat(best), toFloat(next)
	if best.isFloat && math.IsNaN(bf) {
		return best, bestIdx
	}
	if next.isFloat && math.IsNaN(nf) {
		return next, nextIdx
	}
	var better bool
	if wantMax {
		better = nf > bf
	} else {
		better = nf < bf
	}
	if better {
		return next, nextIdx
	}
	if nf == bf && nextIdx < bestIdx {
		// Equal values: lower flat index wins. The sequential fold visits
		// indices in ascending order, so this branch only fires for a
		// different fold order.
		return next, nextIdx
	}
	return best, bestIdx
}
