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

// Op identifies one of the fixed set of associative reduction operators.
type Op int

const (
	Sum Op = iota
	Prod
	ProdNZ
	Max
	Min
	And
	Or
	Xor
	Any
	All
	ArgMax
	ArgMin
	MaxAndArgMax
	MinAndArgMin
)

func (op Op) String() string {
	if int(op) < 0 || int(op) >= len(opTable) {
		return "unknown"
	}
	return opTable[op].name
}

// combineKind selects which combine/identity code shape the kernel-source
// generator emits for an operator. It is a closed set matching the fixed
// operator table, never extended at runtime.
type combineKind int

const (
	combineSum combineKind = iota
	combineProd
	combineProdNZ
	combineMax
	combineMin
	combineAnd
	combineOr
	combineXor
	combineAny
	combineAll
)

// opInfo is one operator's static metadata — the data the planner and the
// kernel-source generator both consult, never the runtime values.
type opInfo struct {
	name string

	// tracksIndex is true for the four argument-returning operators.
	tracksIndex bool
	// writesValue is false only for the pure ArgMax/ArgMin operators,
	// which write solely to the index stream.
	writesValue bool

	combine combineKind

	// firstElementSeed is true for the min/max family: the kernel seeds
	// each thread's accumulator from its first assigned element rather
	// than from a written identity.
	firstElementSeed bool

	// allowedCategories restricts which gpu.Category values the op may
	// be invoked with (BAD_TYPE, e.g. bitwise on floats).
	allowedCategories []gpu.Category
}

var allNumeric = []gpu.Category{gpu.CategorySignedInt, gpu.CategoryUnsignedInt, gpu.CategoryFloat}
var integerOnly = []gpu.Category{gpu.CategorySignedInt, gpu.CategoryUnsignedInt, gpu.CategoryBool}
var boolOnly = []gpu.Category{gpu.CategoryBool, gpu.CategorySignedInt, gpu.CategoryUnsignedInt}

var opTable = [...]opInfo{
	Sum:          {name: "sum", combine: combineSum, writesValue: true, allowedCategories: allNumeric},
	Prod:         {name: "prod", combine: combineProd, writesValue: true, allowedCategories: allNumeric},
	ProdNZ:       {name: "prodnz", combine: combineProdNZ, writesValue: true, allowedCategories: allNumeric},
	Max:          {name: "max", combine: combineMax, writesValue: true, firstElementSeed: true, allowedCategories: allNumeric},
	Min:          {name: "min", combine: combineMin, writesValue: true, firstElementSeed: true, allowedCategories: allNumeric},
	And:          {name: "and", combine: combineAnd, writesValue: true, allowedCategories: integerOnly},
	Or:           {name: "or", combine: combineOr, writesValue: true, allowedCategories: integerOnly},
	Xor:          {name: "xor", combine: combineXor, writesValue: true, allowedCategories: integerOnly},
	Any:          {name: "any", combine: combineAny, writesValue: true, allowedCategories: boolOnly},
	All:          {name: "all", combine: combineAll, writesValue: true, allowedCategories: boolOnly},
	ArgMax:       {name: "argmax", combine: combineMax, tracksIndex: true, firstElementSeed: true, allowedCategories: allNumeric},
	ArgMin:       {name: "argmin", combine: combineMin, tracksIndex: true, firstElementSeed: true, allowedCategories: allNumeric},
	MaxAndArgMax: {name: "maxandargmax", combine: combineMax, tracksIndex: true, writesValue: true, firstElementSeed: true, allowedCategories: allNumeric},
	MinAndArgMin: {name: "minandargmin", combine: combineMin, tracksIndex: true, writesValue: true, firstElementSeed: true, allowedCategories: allNumeric},
}

func (op Op) info() (opInfo, bool) {
	if int(op) < 0 || int(op) >= len(opTable) {
		return opInfo{}, false
	}
	return opTable[op], true
}

// TracksIndex reports whether op requires/produces a dst_idx stream.
func (op Op) TracksIndex() bool {
	info, _ := op.info()
	return info.tracksIndex
}

// WritesValue reports whether op writes to the value destination stream.
// False only for ArgMax/ArgMin, which write solely to dst_idx.
func (op Op) WritesValue() bool {
	info, _ := op.info()
	return info.writesValue
}

// allowsCategory reports whether this operator admits elements of the
// given type category (the BAD_TYPE check).
func (op Op) allowsCategory(c gpu.Category) bool {
	info, ok := op.info()
	if !ok {
		return false
	}
	for _, want := range info.allowedCategories {
		if want == c {
			return true
		}
	}
	return false
}

// identityBits returns the identity element's in-memory representation
// for t, used to fill dst when a fibre is empty.
//
// min/max/argmin/argmax have no identity (they seed from the first real
// element) — identityBits is never called for those when N > 0, only when
// the fibre itself is empty, in which case dst still owes a deterministic
// value and the engine falls back to a type-appropriate zero value.
func (op Op) identityBits(t gpu.TypeInfo) []byte {
	info, _ := op.info()
	width := t.ByteWidth()
	buf := make([]byte, width)
	switch info.combine {
	case combineSum:
		// zero value; buf is already zeroed.
	case combineProd, combineProdNZ:
		writeOne(buf, t)
	case combineAnd:
		for i := range buf {
			buf[i] = 0xFF
		}
	case combineOr, combineXor, combineAny:
		// zero value; buf is already zeroed.
	case combineAll:
		buf[0] = 1
	case combineMax, combineMin:
		// No true identity; zero-length fibres still owe dst a
		// deterministic value, so they get the type's zero value rather
		// than a seeded one.
	}
	return buf
}

// writeOne encodes the multiplicative identity (1) into buf for t.
func writeOne(buf []byte, t gpu.TypeInfo) {
	switch t.Category() {
	case gpu.CategoryFloat:
		switch t.ByteWidth() {
		case 4:
			putFloat32(buf, 1)
		case 8:
			putFloat64(buf, 1)
		case 2:
			// float16 "1.0" bit pattern: sign 0, exponent 15 (bias),
			// mantissa 0 -> 0x3C00.
			buf[0] = 0x00
			buf[1] = 0x3C
		}
	default:
		if len(buf) > 0 {
			buf[0] = 1
		}
	}
}
