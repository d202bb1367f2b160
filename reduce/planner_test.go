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

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/gpureduce/reduce/gpu"
)

func tensor(shape, strides []int64, elem gpu.TypeInfo) Tensor {
	return Tensor{Shape: shape, Strides: strides, Elem: elem}
}

func TestBuildClassifiesFreeAndReducedAxes(t *testing.T) {
	// src: [4,5,6] row-major float32, reduce axis 1 -> dst [4,6]
	src := tensor([]int64{4, 5, 6}, rowMajorStrides([]int64{4, 5, 6}, 4), gpu.Float32)
	dst := tensor([]int64{4, 6}, rowMajorStrides([]int64{4, 6}, 4), gpu.Float32)

	p, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{1}, Op: Sum})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.M != 24 {
		t.Errorf("M = %d, want 24", p.M)
	}
	if p.N != 5 {
		t.Errorf("N = %d, want 5", p.N)
	}
	if len(p.Reduced) != 1 || p.Reduced[0].Length != 5 {
		t.Errorf("Reduced = %+v, want single axis of length 5", p.Reduced)
	}
}

func TestBuildCoalescesContiguousFreeAxes(t *testing.T) {
	// src: [2,3,4] contiguous, reduce axis 2 only -> free axes {0,1} are
	// contiguous with each other (stride(1)*len(1) == stride(0)) and
	// should coalesce to a single free axis of length 6.
	shape := []int64{2, 3, 4}
	strides := rowMajorStrides(shape, 4)
	src := tensor(shape, strides, gpu.Float32)
	dst := tensor([]int64{2, 3}, rowMajorStrides([]int64{2, 3}, 4), gpu.Float32)

	p, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{2}, Op: Sum})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Free) != 1 {
		t.Fatalf("Free = %+v, want a single coalesced axis", p.Free)
	}
	if p.Free[0].Length != 6 {
		t.Errorf("Free[0].Length = %d, want 6", p.Free[0].Length)
	}
}

func TestBuildHotAxisIsInnermostReducedAxis(t *testing.T) {
	shape := []int64{4, 5, 6}
	strides := rowMajorStrides(shape, 4)
	src := tensor(shape, strides, gpu.Float32)
	dst := tensor([]int64{4}, rowMajorStrides([]int64{4}, 4), gpu.Float32)

	// Reduce axes {1,2}: axis 2 has the smaller |stride| (4 vs 24), so it
	// is the hot axis even though it is listed second.
	p, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{1, 2}, Op: Sum})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Hot < 0 || p.Hot >= len(p.Reduced) {
		t.Fatalf("Hot = %d out of range", p.Hot)
	}
	if got, want := p.Reduced[p.Hot].SrcStride, strides[2]; got != want {
		t.Errorf("hot axis stride = %d, want %d (axis 2's stride)", got, want)
	}
}

func TestBuildPreservesReduceAxesOrderForWeights(t *testing.T) {
	shape := []int64{3, 4}
	strides := rowMajorStrides(shape, 4)
	src := tensor(shape, strides, gpu.Float32)
	dst := tensor([]int64{}, nil, gpu.Float32)
	dstIdx := tensor([]int64{}, nil, gpu.Int32)

	// reduce_axes = [1,0]: weight for axis 1 (listed first) must be the
	// product of lengths listed after it (just axis 0's length, 3), and
	// axis 0's weight must be 1 (nothing after it).
	req := Request{Src: src, Dst: dst, DstIndex: &dstIdx, ReduceAxes: []int{1, 0}, Op: ArgMax}
	p, err := Build(req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Reduced) != 2 {
		t.Fatalf("Reduced = %+v, want 2 axes (index-tracking ops do not coalesce)", p.Reduced)
	}
	if p.Reduced[0].Weight != 3 {
		t.Errorf("weight for first-listed axis (1) = %d, want 3", p.Reduced[0].Weight)
	}
	if p.Reduced[1].Weight != 1 {
		t.Errorf("weight for second-listed axis (0) = %d, want 1", p.Reduced[1].Weight)
	}
}

func TestBuildRejectsRankMismatch(t *testing.T) {
	src := tensor([]int64{4, 5}, rowMajorStrides([]int64{4, 5}, 4), gpu.Float32)
	dst := tensor([]int64{4, 5}, rowMajorStrides([]int64{4, 5}, 4), gpu.Float32)

	_, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{0}, Op: Sum})
	assertKind(t, err, BadRank)
}

func TestBuildRejectsOutOfRangeAxis(t *testing.T) {
	src := tensor([]int64{4, 5}, rowMajorStrides([]int64{4, 5}, 4), gpu.Float32)
	dst := tensor([]int64{4}, rowMajorStrides([]int64{4}, 4), gpu.Float32)

	_, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{2}, Op: Sum})
	assertKind(t, err, BadAxis)
}

func TestBuildRejectsRepeatedAxis(t *testing.T) {
	src := tensor([]int64{4, 5}, rowMajorStrides([]int64{4, 5}, 4), gpu.Float32)
	dst := tensor([]int64{}, nil, gpu.Float32)

	_, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{0, 0}, Op: Sum})
	assertKind(t, err, BadAxis)
}

func TestBuildRejectsFreeShapeMismatch(t *testing.T) {
	src := tensor([]int64{4, 5}, rowMajorStrides([]int64{4, 5}, 4), gpu.Float32)
	dst := tensor([]int64{9}, rowMajorStrides([]int64{9}, 4), gpu.Float32)

	_, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{1}, Op: Sum})
	assertKind(t, err, BadShape)
}

func TestBuildRejectsMissingIndexForArgOp(t *testing.T) {
	src := tensor([]int64{4, 5}, rowMajorStrides([]int64{4, 5}, 4), gpu.Float32)
	dst := tensor([]int64{4}, rowMajorStrides([]int64{4}, 4), gpu.Float32)

	_, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{1}, Op: ArgMax})
	assertKind(t, err, MissingIndex)
}

func TestBuildRejectsUnexpectedIndexForPlainOp(t *testing.T) {
	src := tensor([]int64{4, 5}, rowMajorStrides([]int64{4, 5}, 4), gpu.Float32)
	dst := tensor([]int64{4}, rowMajorStrides([]int64{4}, 4), gpu.Float32)
	dstIdx := tensor([]int64{4}, rowMajorStrides([]int64{4}, 4), gpu.Int32)

	_, err := Build(Request{Src: src, Dst: dst, DstIndex: &dstIdx, ReduceAxes: []int{1}, Op: Sum})
	assertKind(t, err, UnexpectedIndex)
}

func TestBuildRejectsBadTypeForBitwiseOp(t *testing.T) {
	src := tensor([]int64{4}, rowMajorStrides([]int64{4}, 4), gpu.Float32)
	dst := tensor([]int64{}, nil, gpu.Float32)

	_, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{0}, Op: And})
	assertKind(t, err, BadType)
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("got nil error, want kind %s", want)
	}
	re, ok := err.(*Error)
	if !ok {
		t.Fatalf("got error of type %T, want *reduce.Error", err)
	}
	if re.Kind != want {
		t.Fatalf("got kind %s, want %s", re.Kind, want)
	}
}

func TestStrategySelectionByN(t *testing.T) {
	cases := []struct {
		n    int64
		want IntraBlockStrategy
	}{
		{1, StrategyPackedWarp},
		{31, StrategyPackedWarp},
		{32, StrategyWarpShuffle},
		{255, StrategyWarpShuffle},
		{256, StrategySharedTree},
		{10000, StrategySharedTree},
	}
	for _, c := range cases {
		p := &Plan{N: c.n}
		if got := p.Strategy(); got != c.want {
			t.Errorf("Strategy(N=%d) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestReductionsPerBlockNeverZero(t *testing.T) {
	p := &Plan{N: 1}
	if got := p.ReductionsPerBlock(256); got < 1 {
		t.Errorf("ReductionsPerBlock = %d, want >= 1", got)
	}
}

func TestBuildFreeAxisPermutationInvariance(t *testing.T) {
	// Two requests with the same logical free/reduced axes but
	// differently-strided (permuted) src layouts should plan to the same
	// M, N regardless of physical axis order.
	shapeA := []int64{4, 6}
	stridesA := rowMajorStrides(shapeA, 4)
	srcA := tensor(shapeA, stridesA, gpu.Float32)
	dstA := tensor([]int64{4}, rowMajorStrides([]int64{4}, 4), gpu.Float32)
	pa, err := Build(Request{Src: srcA, Dst: dstA, ReduceAxes: []int{1}, Op: Sum})
	if err != nil {
		t.Fatalf("Build A: %v", err)
	}

	// Same data, transposed: shape [6,4], reduce axis 0 instead of 1.
	shapeB := []int64{6, 4}
	stridesB := []int64{4, 24} // column-major-ish: axis0 stride 4, axis1 stride 24
	srcB := tensor(shapeB, stridesB, gpu.Float32)
	dstB := tensor([]int64{4}, rowMajorStrides([]int64{4}, 4), gpu.Float32)
	pb, err := Build(Request{Src: srcB, Dst: dstB, ReduceAxes: []int{0}, Op: Sum})
	if err != nil {
		t.Fatalf("Build B: %v", err)
	}

	if pa.M != pb.M || pa.N != pb.N {
		t.Errorf("permuted plans disagree: A.M=%d A.N=%d, B.M=%d B.N=%d", pa.M, pa.N, pb.M, pb.N)
	}
}

func TestBuildIsDeterministicForIdenticalRequests(t *testing.T) {
	// Two Build calls on the same request must agree on every
	// exported scalar field.
	shape := []int64{3}
	strides := rowMajorStrides(shape, 4)
	src := tensor(shape, strides, gpu.Float32)
	dst := tensor([]int64{}, nil, gpu.Float32)

	p1, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{0}, Op: Sum})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p2, err := Build(Request{Src: src, Dst: dst, ReduceAxes: []int{0}, Op: Sum})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff(planShape(p1), planShape(p2)); diff != "" {
		t.Errorf("identical requests produced different plans (-p1 +p2):\n%s", diff)
	}
}

// planShape extracts the comparable, non-interface-typed portion of a
// Plan for structural comparison (Plan itself carries gpu.TypeInfo/
// gpu.Buffer interface fields that are not go-cmp-comparable without
// exporting the registry's internals).
func planShape(p *Plan) any {
	return struct {
		Free    []FreeAxis
		Reduced []ReducedAxis
		M, N    int64
		Op      Op
		Hot     int
	}{p.Free, p.Reduced, p.M, p.N, p.Op, p.Hot}
}
