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
	"github.com/example/gpureduce/gpuarch"
	"github.com/example/gpureduce/reduce/gpu"
)

// rankBuckets are the fixed rank bounds a plan's actual free/reduced axis
// count is rounded up into (max_free_rank, max_reduced_rank in the static
// signature). Bucketing keeps the kernel cache small: many call shapes
// with the same op/type/bucket share one compiled binary, which is the
// whole point of a runtime-programmable kernel.
var rankBuckets = [...]int{1, 2, 4, 8, 16}

func rankBucket(n int) int {
	for _, b := range rankBuckets {
		if n <= b {
			return b
		}
	}
	return n
}

// LaunchConfig is the launch configurator's output: grid and block shape,
// scratch buffer size, and the padded launch arguments bound to the
// plan's concrete shapes/strides.
type LaunchConfig struct {
	Grid, Block gpu.Dim3
	ScratchBytes int64
	MaxFreeRank, MaxReducedRank int
	Args gpu.LaunchArgs
}

// Configure derives a LaunchConfig from a plan. warpSize and maxBlockSize
// come from the gpu.Context; gpuarch's defaults replace either value when
// it is not positive.
func Configure(p *Plan, warp, maxBlock int) LaunchConfig {
	if warp <= 0 {
		warp = gpuarch.DefaultWarpSize
	}
	if maxBlock <= 0 {
		maxBlock = gpuarch.DefaultBlockSize
	}

	maxFreeRank := rankBucket(len(p.Free))
	maxReducedRank := rankBucket(len(p.Reduced))

	tpr := p.ThreadsPerReduction()
	if tpr > maxBlock {
		tpr = maxBlock
	}
	rpb := p.ReductionsPerBlock(maxBlock)
	if rpb < 1 {
		rpb = 1
	}
	blockSize := tpr * rpb
	if blockSize > maxBlock {
		blockSize = maxBlock
		rpb = blockSize / tpr
		if rpb < 1 {
			rpb = 1
		}
	}

	grid := int((p.M + int64(rpb) - 1) / int64(rpb))
	if grid < 1 {
		grid = 1
	}

	var scratch int64
	if p.Strategy() == StrategySharedTree {
		warpsPerReduction := int64(tpr / warp)
		if warpsPerReduction < 1 {
			warpsPerReduction = 1
		}
		scratch = warpsPerReduction * int64(rpb) * int64(p.DstElem.AccumulatorType().ByteWidth())
		if p.Op.TracksIndex() {
			scratch += warpsPerReduction * int64(rpb) * int64(p.DstIdxElem.ByteWidth())
		}
	}

	args := gpu.LaunchArgs{
		Free:       padFree(p.Free, maxFreeRank),
		Reduced:    padReduced(p.Reduced, maxReducedRank),
		SrcBase:    p.SrcBase,
		SrcOffset:  p.SrcOffset,
		DstBase:    p.DstBase,
		DstOffset:  p.DstOffset,
		DstIdxBase: p.DstIdxBase,
		DstIdxOff:  p.DstIdxOff,
		M:          p.M,
		N:          p.N,
	}

	return LaunchConfig{
		Grid:           gpu.Dim3{X: grid},
		Block:          gpu.Dim3{X: blockSize},
		ScratchBytes:   scratch,
		MaxFreeRank:    maxFreeRank,
		MaxReducedRank: maxReducedRank,
		Args:           args,
	}
}

// padFree pads the plan's free-axis list to n entries with inert
// (length=1, stride=0) slots.
func padFree(f []FreeAxis, n int) []gpu.FreeAxisArg {
	out := make([]gpu.FreeAxisArg, n)
	for i := 0; i < n; i++ {
		if i < len(f) {
			out[i] = gpu.FreeAxisArg{
				Length:         f[i].Length,
				SrcStride:      f[i].SrcStride,
				DstStride:      f[i].DstStride,
				DstIndexStride: f[i].DstIndexStride,
			}
		} else {
			out[i] = gpu.FreeAxisArg{Length: 1}
		}
	}
	return out
}

func padReduced(r []ReducedAxis, n int) []gpu.ReducedAxisArg {
	out := make([]gpu.ReducedAxisArg, n)
	for i := 0; i < n; i++ {
		if i < len(r) {
			out[i] = gpu.ReducedAxisArg{
				Length:    r[i].Length,
				SrcStride: r[i].SrcStride,
				IdxWeight: r[i].Weight,
			}
		} else {
			out[i] = gpu.ReducedAxisArg{Length: 1}
		}
	}
	return out
}
