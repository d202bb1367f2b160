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
	"context"

	"github.com/example/gpureduce/reduce/gpu"
)

// fillIdentity handles size-0 and empty dimensions: when any axis length
// is zero, the engine writes the identity element (and, for argument ops,
// 0) to every dst cell and launches no kernel.
func fillIdentity(ctx context.Context, gctx gpu.Context, p *Plan) error {
	if p.M == 0 {
		// No destination cells exist; nothing to write.
		return nil
	}

	valueBits := p.Op.identityBits(p.DstElem)
	var idxBits []byte
	if p.Op.TracksIndex() {
		idxBits = make([]byte, p.DstIdxElem.ByteWidth())
	}

	return forEachFreeIndex(p.Free, func(offsets freeOffsets) error {
		if p.Op.WritesValue() {
			if err := gctx.WriteHost(ctx, p.DstBase, p.DstOffset+offsets.dst, valueBits); err != nil {
				return wrapf(DeviceAllocFail, err, "writing identity to dst")
			}
		}
		if p.Op.TracksIndex() {
			if err := gctx.WriteHost(ctx, p.DstIdxBase, p.DstIdxOff+offsets.dstIdx, idxBits); err != nil {
				return wrapf(DeviceAllocFail, err, "writing identity index to dst_idx")
			}
		}
		return nil
	})
}

// freeOffsets is one free-axis coordinate's byte offsets into each output
// stream, relative to that stream's base.
type freeOffsets struct {
	dst    int64
	dstIdx int64
}

// forEachFreeIndex walks every coordinate combination over free (the
// Cartesian product of each axis's length) and invokes fn once per
// combination, in row-major order over `free` as given.
func forEachFreeIndex(free []FreeAxis, fn func(freeOffsets) error) error {
	if len(free) == 0 {
		return fn(freeOffsets{})
	}
	coord := make([]int64, len(free))
	for {
		var off freeOffsets
		for i, c := range coord {
			off.dst += c * free[i].DstStride
			off.dstIdx += c * free[i].DstIndexStride
		}
		if err := fn(off); err != nil {
			return err
		}
		// Odometer increment, least-significant axis first.
		i := len(free) - 1
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
