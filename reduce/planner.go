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

// warpSize is the planner's workload-split unit (T = warp_size). The real
// figure is queried from gpu.Context at launch time; the planner itself
// works off gpuarch's tuning default so that Build can run — and be unit
// tested — without a live device.
const warpSize = 32

// rawFree is a free axis before launch-order sorting, still tagged with
// its original source axis so dst_idx strides (gathered separately, since
// dst_idx shares dst's free-axis shape but not necessarily its stride
// layout) can be matched back up after sorting.
type rawFree struct {
	srcAxis   int
	length    int64
	srcStride int64
	dstStride int64
}

// Build transforms a reduction request into a plan. All validation happens
// here, before any device work.
func Build(req Request) (*Plan, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	srcRank := req.Src.Rank()
	reduceSet := make(map[int]bool, len(req.ReduceAxes))
	for _, a := range req.ReduceAxes {
		reduceSet[a] = true
	}

	// Classify axes; free axes keep source order for dst correspondence —
	// not reorderable relative to how they sit in dst.
	var free []rawFree
	dstPos := 0
	for axis := 0; axis < srcRank; axis++ {
		if reduceSet[axis] {
			continue
		}
		free = append(free, rawFree{
			srcAxis:   axis,
			length:    req.Src.Shape[axis],
			srcStride: req.Src.Strides[axis],
			dstStride: req.Dst.Strides[dstPos],
		})
		dstPos++
	}

	// Reduced axes: kept in caller order for weight correctness — the
	// weight of each axis depends on the order the caller listed them in.
	type rawReduced struct {
		length    int64
		srcStride int64
	}
	raw := make([]rawReduced, len(req.ReduceAxes))
	for i, axis := range req.ReduceAxes {
		raw[i] = rawReduced{length: req.Src.Shape[axis], srcStride: req.Src.Strides[axis]}
	}

	// argmax_weight[k] = product of lengths of axes after k, in caller
	// order.
	weights := make([]int64, len(raw))
	acc := int64(1)
	for k := len(raw) - 1; k >= 0; k-- {
		weights[k] = acc
		acc *= raw[k].length
	}

	reduced := make([]ReducedAxis, len(raw))
	for i, r := range raw {
		reduced[i] = ReducedAxis{Length: r.length, SrcStride: r.srcStride, Weight: weights[i]}
	}

	// Reduced-axis coalescing is only safe for non-index-tracking ops —
	// argument ops must preserve digit boundaries.
	if !req.Op.TracksIndex() {
		reduced = coalesceReduced(reduced)
	}

	hot := hotAxis(reduced)

	// Free-axis launch order: sort by ascending |src_stride| for
	// cache-friendly access, then coalesce contiguous runs to a fixed
	// point.
	sortedFree := make([]FreeAxis, len(free))
	for i, f := range free {
		sortedFree[i] = FreeAxis{Length: f.length, SrcStride: f.srcStride, DstStride: f.dstStride}
	}
	sortFreeByStride(sortedFree)
	if req.DstIndex != nil {
		attachDstIndexStrides(sortedFree, free, *req.DstIndex)
	}
	sortedFree = coalesceFree(sortedFree)

	m := int64(1)
	for _, f := range sortedFree {
		m *= f.Length
	}
	n := int64(1)
	for _, r := range reduced {
		n *= r.Length
	}

	p := &Plan{
		Free:       sortedFree,
		Reduced:    reduced,
		M:          m,
		N:          n,
		Op:         req.Op,
		Hot:        hot,
		SrcElem:    req.Src.Elem,
		DstElem:    req.Dst.Elem,
		SrcBase:    req.Src.Buf,
		SrcOffset:  req.Src.Offset,
		DstBase:    req.Dst.Buf,
		DstOffset:  req.Dst.Offset,
	}
	if req.DstIndex != nil {
		p.DstIdxElem = req.DstIndex.Elem
		p.DstIdxBase = req.DstIndex.Buf
		p.DstIdxOff = req.DstIndex.Offset
	}
	return p, nil
}

func validate(req Request) error {
	src, dst := req.Src, req.Dst
	nReduce := len(req.ReduceAxes)
	if dst.Rank() != src.Rank()-nReduce {
		return errf(BadRank, "dst rank %d, want src rank %d minus %d reduce axes", dst.Rank(), src.Rank(), nReduce)
	}

	seen := make(map[int]bool, nReduce)
	for _, a := range req.ReduceAxes {
		if a < 0 || a >= src.Rank() {
			return errf(BadAxis, "reduce axis %d out of range [0,%d)", a, src.Rank())
		}
		if seen[a] {
			return errf(BadAxis, "reduce axis %d repeated", a)
		}
		seen[a] = true
	}

	dstPos := 0
	for axis := 0; axis < src.Rank(); axis++ {
		if seen[axis] {
			continue
		}
		if dstPos >= dst.Rank() || src.Shape[axis] != dst.Shape[dstPos] {
			return errf(BadShape, "free axis %d length %d does not match dst axis %d", axis, src.Shape[axis], dstPos)
		}
		dstPos++
	}

	wantIndex := req.Op.TracksIndex()
	if wantIndex && req.DstIndex == nil {
		return errf(MissingIndex, "op %s requires dst_idx", req.Op)
	}
	if !wantIndex && req.DstIndex != nil {
		return errf(UnexpectedIndex, "op %s does not accept dst_idx", req.Op)
	}
	if req.DstIndex != nil {
		if req.DstIndex.Rank() != dst.Rank() {
			return errf(BadShape, "dst_idx rank %d does not match dst rank %d", req.DstIndex.Rank(), dst.Rank())
		}
		for i := range dst.Shape {
			if req.DstIndex.Shape[i] != dst.Shape[i] {
				return errf(BadShape, "dst_idx axis %d length %d does not match dst length %d", i, req.DstIndex.Shape[i], dst.Shape[i])
			}
		}
	}

	if !req.Op.allowsCategory(src.Elem.Category()) {
		return errf(BadType, "op %s does not support element category of %s", req.Op, src.Elem.Name())
	}

	return nil
}

func sortFreeByStride(f []FreeAxis) {
	// Simple insertion sort: free-axis counts are small (rank ≤ 8 in the
	// test suite, unbounded in principle but never large in practice).
	for i := 1; i < len(f); i++ {
		j := i
		for j > 0 && abs64(f[j-1].SrcStride) > abs64(f[j].SrcStride) {
			f[j-1], f[j] = f[j], f[j-1]
			j--
		}
	}
}

// attachDstIndexStrides fills in DstIndexStride for each sorted free axis
// by matching back to the original (unsorted) axis list. Needed because
// sortFreeByStride reorders `f` independently of `free`/dstIdx's axis
// order.
func attachDstIndexStrides(f []FreeAxis, free []rawFree, dstIdx Tensor) {
	// Build a lookup by (length, srcStride, dstStride) — free axes are
	// always distinguishable by that triple within one request.
	type key struct{ l, s, d int64 }
	lookup := make(map[key]int64, len(free))
	for pos, raw := range free {
		lookup[key{raw.length, raw.srcStride, raw.dstStride}] = dstIdx.Strides[pos]
	}
	for i := range f {
		k := key{f[i].Length, f[i].SrcStride, f[i].DstStride}
		f[i].DstIndexStride = lookup[k]
	}
}

func coalesceFree(f []FreeAxis) []FreeAxis {
	changed := true
	for changed {
		changed = false
		out := make([]FreeAxis, 0, len(f))
		i := 0
		for i < len(f) {
			if i+1 < len(f) && contiguous(f[i+1], f[i]) {
				merged := FreeAxis{
					Length:         f[i].Length * f[i+1].Length,
					SrcStride:      f[i].SrcStride,
					DstStride:      f[i].DstStride,
					DstIndexStride: f[i].DstIndexStride,
				}
				out = append(out, merged)
				i += 2
				changed = true
				continue
			}
			out = append(out, f[i])
			i++
		}
		f = out
	}
	return f
}

// contiguous reports whether inner axis f1 coalesces into outer axis f0:
// B_inner * L_inner == B_outer for both src and dst strides, same sign.
func contiguous(f0, f1 FreeAxis) bool {
	if f1.SrcStride*f1.Length != f0.SrcStride {
		return false
	}
	if f1.DstStride*f1.Length != f0.DstStride {
		return false
	}
	if f0.DstIndexStride != 0 || f1.DstIndexStride != 0 {
		if f1.DstIndexStride*f1.Length != f0.DstIndexStride {
			return false
		}
	}
	return true
}

func coalesceReduced(r []ReducedAxis) []ReducedAxis {
	sorted := make([]ReducedAxis, len(r))
	copy(sorted, r)
	for i := 1; i < len(sorted); i++ {
		j := i
		for j > 0 && abs64(sorted[j-1].SrcStride) > abs64(sorted[j].SrcStride) {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
			j--
		}
	}

	changed := true
	for changed {
		changed = false
		out := make([]ReducedAxis, 0, len(sorted))
		i := 0
		for i < len(sorted) {
			if i+1 < len(sorted) && sorted[i].SrcStride*sorted[i].Length == sorted[i+1].SrcStride {
				out = append(out, ReducedAxis{
					Length:    sorted[i].Length * sorted[i+1].Length,
					SrcStride: sorted[i].SrcStride,
					Weight:    0, // unused: coalescing only happens for non-index ops
				})
				i += 2
				changed = true
				continue
			}
			out = append(out, sorted[i])
			i++
		}
		sorted = out
	}
	return sorted
}

// hotAxis returns the index into reduced of the innermost (smallest
// |SrcStride|) axis, the hot axis. -1 when reduced is empty.
func hotAxis(reduced []ReducedAxis) int {
	if len(reduced) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(reduced); i++ {
		if abs64(reduced[i].SrcStride) < abs64(reduced[best].SrcStride) {
			best = i
		}
	}
	return best
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// IntraBlockStrategy is the planner's choice of how threads cooperate on
// one fibre.
type IntraBlockStrategy int

const (
	// StrategyPackedWarp: N < 32 — multiple reductions share one warp,
	// thread-private accumulation, no shared reduction.
	StrategyPackedWarp IntraBlockStrategy = iota
	// StrategyWarpShuffle: 32 <= N < 256 — one warp per reduction,
	// shuffle-reduce.
	StrategyWarpShuffle
	// StrategySharedTree: N >= 256 — multiple warps per reduction,
	// shared-memory tree then shuffle.
	StrategySharedTree
)

// Strategy reports which intra-block reduction strategy this plan's N
// calls for.
func (p *Plan) Strategy() IntraBlockStrategy {
	switch {
	case p.N < warpSize:
		return StrategyPackedWarp
	case p.N < 256:
		return StrategyWarpShuffle
	default:
		return StrategySharedTree
	}
}

// ThreadsPerReduction is the number of threads cooperating on one fibre.
func (p *Plan) ThreadsPerReduction() int {
	switch p.Strategy() {
	case StrategyPackedWarp:
		return 1
	case StrategyWarpShuffle:
		return warpSize
	default:
		warps := (p.N + warpSize - 1) / warpSize
		// Cap at a block's worth of warps; the configurator clamps
		// against the device's real max block size at launch time.
		const maxWarpsPerReduction = gpuarchMaxWarpsPerReduction
		if warps > maxWarpsPerReduction {
			warps = maxWarpsPerReduction
		}
		return int(warps) * warpSize
	}
}

// gpuarchMaxWarpsPerReduction bounds how many warps a single reduction
// may claim before the shared-memory tree stage becomes the bottleneck
// rather than memory bandwidth — chosen to keep one reduction within a
// single default-sized block (gpuarch.DefaultBlockSize / warpSize).
const gpuarchMaxWarpsPerReduction = 8

// ReductionsPerBlock is how many independent fibres share one block when
// N < 32: block size divided by threads per reduction.
func (p *Plan) ReductionsPerBlock(blockSize int) int {
	tpr := p.ThreadsPerReduction()
	if tpr <= 0 {
		tpr = 1
	}
	rpb := blockSize / tpr
	if rpb < 1 {
		rpb = 1
	}
	return rpb
}
