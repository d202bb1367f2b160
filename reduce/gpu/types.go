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

package gpu

// basicType is the registry's concrete TypeInfo implementation for the
// element kinds the engine supports.
type basicType struct {
	name     string
	width    int
	category Category
	accum    string // name of the registered accumulator type, or "" for self
}

func (t basicType) Name() string      { return t.name }
func (t basicType) ByteWidth() int    { return t.width }
func (t basicType) Category() Category { return t.category }

func (t basicType) AccumulatorType() TypeInfo {
	if t.accum == "" {
		return t
	}
	return mustType(t.accum)
}

var registry = map[string]basicType{
	"int8":    {"int8", 1, CategorySignedInt, ""},
	"int16":   {"int16", 2, CategorySignedInt, ""},
	"int32":   {"int32", 4, CategorySignedInt, ""},
	"int64":   {"int64", 8, CategorySignedInt, ""},
	"uint8":   {"uint8", 1, CategoryUnsignedInt, ""},
	"uint16":  {"uint16", 2, CategoryUnsignedInt, ""},
	"uint32":  {"uint32", 4, CategoryUnsignedInt, ""},
	"uint64":  {"uint64", 8, CategoryUnsignedInt, ""},
	"bool":    {"bool", 1, CategoryBool, ""},
	"float16": {"float16", 2, CategoryFloat, "float32"},
	"float32": {"float32", 4, CategoryFloat, ""},
	"float64": {"float64", 8, CategoryFloat, ""},
}

// TypeByName looks up a registered numeric type by its printable name.
func TypeByName(name string) (TypeInfo, bool) {
	t, ok := registry[name]
	return t, ok
}

func mustType(name string) TypeInfo {
	t, ok := registry[name]
	if !ok {
		panic("gpu: unknown accumulator type " + name)
	}
	return t
}

var (
	Int8    = mustType("int8")
	Int16   = mustType("int16")
	Int32   = mustType("int32")
	Int64   = mustType("int64")
	Uint8   = mustType("uint8")
	Uint16  = mustType("uint16")
	Uint32  = mustType("uint32")
	Uint64  = mustType("uint64")
	Bool    = mustType("bool")
	Float16 = mustType("float16")
	Float32 = mustType("float32")
	Float64 = mustType("float64")
)
