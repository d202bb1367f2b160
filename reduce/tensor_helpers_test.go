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
	"encoding/binary"
	"math"

	"github.com/example/gpureduce/reduce/gpu"
	"github.com/example/gpureduce/reduce/gpu/fake"
)

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// rowMajorStrides returns contiguous row-major byte strides for shape,
// given an element's byte width.
func rowMajorStrides(shape []int64, elemWidth int) []int64 {
	strides := make([]int64, len(shape))
	acc := int64(elemWidth)
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

func elemCountOf(shape []int64) int64 {
	n := int64(1)
	for _, l := range shape {
		n *= l
	}
	return n
}

// newTensor allocates a fresh, contiguous row-major tensor on ctx and
// returns it alongside its backing buffer for direct inspection.
func newTensor(ctx *fake.Context, shape []int64, elem gpu.TypeInfo) (Tensor, gpu.Buffer) {
	n := elemCountOf(shape)
	buf, err := ctx.Alloc(nil, n*int64(elem.ByteWidth()))
	if err != nil {
		panic(err)
	}
	return Tensor{
		Buf:     buf,
		Shape:   append([]int64(nil), shape...),
		Strides: rowMajorStrides(shape, elem.ByteWidth()),
		Elem:    elem,
	}, buf
}

func writeFloat32s(ctx *fake.Context, buf gpu.Buffer, vals []float32) {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		putFloat32(data[i*4:], v)
	}
	if err := ctx.WriteHost(nil, buf, 0, data); err != nil {
		panic(err)
	}
}

func readFloat32s(ctx *fake.Context, buf gpu.Buffer, n int) []float32 {
	data := make([]byte, 4*n)
	if err := ctx.ReadHost(nil, buf, 0, data); err != nil {
		panic(err)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = readFloat32(data[i*4:])
	}
	return out
}

func readInt32s(ctx *fake.Context, buf gpu.Buffer, n int) []int32 {
	data := make([]byte, 4*n)
	if err := ctx.ReadHost(nil, buf, 0, data); err != nil {
		panic(err)
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24)
	}
	return out
}

func writeUint32s(ctx *fake.Context, buf gpu.Buffer, vals []uint32) {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		data[i*4] = byte(v)
		data[i*4+1] = byte(v >> 8)
		data[i*4+2] = byte(v >> 16)
		data[i*4+3] = byte(v >> 24)
	}
	if err := ctx.WriteHost(nil, buf, 0, data); err != nil {
		panic(err)
	}
}

func readUint32s(ctx *fake.Context, buf gpu.Buffer, n int) []uint32 {
	data := make([]byte, 4*n)
	if err := ctx.ReadHost(nil, buf, 0, data); err != nil {
		panic(err)
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
	}
	return out
}
