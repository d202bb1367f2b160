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

// Package kernelsrc implements the kernel-source generator: given a
// static signature (op, types, rank bounds), it emits a single
// parameterised GPU kernel source that one compiled binary can reuse
// across any call whose shapes/strides fit within those bounds.
//
// The generator never compiles anything itself — the source compiler is
// out of scope here — it only produces the text handed to the
// gpu.Context.Compile collaborator.
package kernelsrc

import "fmt"

// Signature is the kernel cache key's structural component: everything
// except device_arch_tag, which the caller appends separately since it
// is a deployment property, not a kernel-shape property.
type Signature struct {
	Op            string // reduce.Op.String()
	Combine       CombineKind
	TracksIndex   bool
	WritesValue   bool
	FirstElemSeed bool

	SrcType    string
	AccType    string
	DstType    string
	DstIdxType string // "" unless TracksIndex

	MaxFreeRank    int
	MaxReducedRank int
}

// Key returns the stable string this signature contributes to the kernel
// cache key. It intentionally excludes device_arch_tag.
func (s Signature) Key() string {
	return fmt.Sprintf("%s|src=%s|acc=%s|dst=%s|idx=%s|fr=%d|rr=%d",
		s.Op, s.SrcType, s.AccType, s.DstType, s.DstIdxType, s.MaxFreeRank, s.MaxReducedRank)
}

// EntryName is the kernel function's source-level name, built from the
// op, source and accumulator types and rank bounds. Signatures that differ
// only in DstType or DstIdxType share a name.
func (s Signature) EntryName() string {
	return fmt.Sprintf("reduce_%s_%s_%s_fr%d_rr%d", s.Op, s.SrcType, s.AccType, s.MaxFreeRank, s.MaxReducedRank)
}

// CombineKind mirrors reduce.combineKind without importing the reduce
// package (kernelsrc must not depend on reduce — reduce depends on it).
type CombineKind int

const (
	CombineSum CombineKind = iota
	CombineProd
	CombineProdNZ
	CombineMax
	CombineMin
	CombineAnd
	CombineOr
	CombineXor
	CombineAny
	CombineAll
)
