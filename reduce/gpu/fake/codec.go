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

package fake

import (
	"encoding/binary"
	"math"

	"github.com/example/gpureduce/reduce/gpu"
)

// decode reads one element of type t at byte offset off in data into the
// fake's generic accumulator representation.
func decode(data []byte, off int64, t gpu.TypeInfo) scalar {
	b := data[off : off+int64(t.ByteWidth())]
	switch t.Category() {
	case gpu.CategoryFloat:
		switch t.ByteWidth() {
		case 4:
			return scalar{isFloat: true, f: float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))}
		case 8:
			return scalar{isFloat: true, f: math.Float64frombits(binary.LittleEndian.Uint64(b))}
		case 2:
			return scalar{isFloat: true, f: float64(decodeFloat16(binary.LittleEndian.Uint16(b)))}
		}
	case gpu.CategoryBool:
		if b[0] != 0 {
			return scalar{i: 1}
		}
		return scalar{i: 0}
	case gpu.CategorySignedInt:
		switch t.ByteWidth() {
		case 1:
			return scalar{i: int64(int8(b[0]))}
		case 2:
			return scalar{i: int64(int16(binary.LittleEndian.Uint16(b)))}
		case 4:
			return scalar{i: int64(int32(binary.LittleEndian.Uint32(b)))}
		case 8:
			return scalar{i: int64(binary.LittleEndian.Uint64(b))}
		}
	case gpu.CategoryUnsignedInt:
		switch t.ByteWidth() {
		case 1:
			return scalar{i: int64(b[0])}
		case 2:
			return scalar{i: int64(binary.LittleEndian.Uint16(b))}
		case 4:
			return scalar{i: int64(binary.LittleEndian.Uint32(b))}
		case 8:
			return scalar{i: int64(binary.LittleEndian.Uint64(b))}
		}
	}
	return scalar{}
}

// encode writes v into data at byte offset off as type t.
func encode(data []byte, off int64, t gpu.TypeInfo, v scalar) {
	b := data[off : off+int64(t.ByteWidth())]
	switch t.Category() {
	case gpu.CategoryFloat:
		switch t.ByteWidth() {
		case 4:
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(toFloat(v))))
		case 8:
			binary.LittleEndian.PutUint64(b, math.Float64bits(toFloat(v)))
		case 2:
			binary.LittleEndian.PutUint16(b, encodeFloat16(float32(toFloat(v))))
		}
	case gpu.CategoryBool:
		if toBool(v) {
			b[0] = 1
		} else {
			b[0] = 0
		}
	default:
		encodeInt(data, off, t, intOf(v))
	}
}

// encodeInt writes an integer value into data at byte offset off as type
// t — used both for general integer ops and for the dst_idx stream
// (always an integer category wide enough to hold the largest linear
// index).
func encodeInt(data []byte, off int64, t gpu.TypeInfo, v int64) {
	b := data[off : off+int64(t.ByteWidth())]
	switch t.ByteWidth() {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}

func intOf(v scalar) int64 {
	if v.isFloat {
		return int64(v.f)
	}
	return v.i
}

// decodeFloat16/encodeFloat16 implement IEEE 754 binary16, sufficient
// for this module's test fixtures (no subnormal/inf/NaN round-tripping
// beyond what the test suite exercises).
func decodeFloat16(bits uint16) float32 {
	sign := uint32(bits>>15) & 0x1
	exp := uint32(bits>>10) & 0x1F
	frac := uint32(bits) & 0x3FF

	var f32 uint32
	switch exp {
	case 0:
		f32 = sign << 31 // zero/subnormal flushed to zero
	case 0x1F:
		f32 = (sign << 31) | (0xFF << 23) | (frac << 13) // inf/NaN
	default:
		f32 = (sign << 31) | ((exp - 15 + 127) << 23) | (frac << 13)
	}
	return math.Float32frombits(f32)
}

func encodeFloat16(v float32) uint16 {
	bits := math.Float32bits(v)
	sign := uint16(bits>>16) & 0x8000
	exp := int32((bits>>23)&0xFF) - 127 + 15
	frac := uint16((bits >> 13) & 0x3FF)

	switch {
	case exp <= 0:
		return sign // flush to zero
	case exp >= 0x1F:
		return sign | 0x7C00 // inf
	default:
		return sign | uint16(exp)<<10 | frac
	}
}
