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

package kernelsrc

import (
	"fmt"
	"strings"
)

// Emitter accumulates a kernel's source text using a string-builder plus
// typed-fragment-methods shape rather than a text/template approach,
// since the fragments here are conditioned on the Signature's fixed,
// closed set of operators rather than on arbitrary user templates.
type Emitter struct {
	sig Signature
	buf strings.Builder
}

func newEmitter(sig Signature) *Emitter {
	return &Emitter{sig: sig}
}

func (e *Emitter) line(format string, args ...any) {
	fmt.Fprintf(&e.buf, format+"\n", args...)
}

func (e *Emitter) raw(s string) {
	e.buf.WriteString(s)
}

// Generate emits the full kernel source for sig. The result is a text
// artifact only — it is never parsed or compiled by this module.
func Generate(sig Signature) (string, error) {
	if err := validateSignature(sig); err != nil {
		return "", err
	}
	e := newEmitter(sig)
	e.emitHeader()
	e.emitArgStruct()
	e.emitCombine()
	e.emitKernel()
	return e.buf.String(), nil
}

func validateSignature(sig Signature) error {
	if sig.MaxFreeRank < 0 || sig.MaxReducedRank < 0 {
		return fmt.Errorf("kernelsrc: negative rank bound in signature %+v", sig)
	}
	if sig.TracksIndex && sig.DstIdxType == "" {
		return fmt.Errorf("kernelsrc: signature %q tracks index but has no DstIdxType", sig.Op)
	}
	return nil
}

func (e *Emitter) emitHeader() {
	e.line("// Generated kernel source. Signature: %s", e.sig.Key())
	e.line("// acc_t = %s, dst_t = %s, src_t = %s", e.sig.AccType, e.sig.DstType, e.sig.SrcType)
	e.line("")
}

// emitArgStruct emits the padded fixed-rank argument layout. Padding
// entries (length=1, stride=0) make the same binary handle any rank <=
// the bound without the kernel branching on rank.
func (e *Emitter) emitArgStruct() {
	e.line("struct FreeAxisArg { long length; long src_stride; long dst_stride; long dst_idx_stride; };")
	e.line("struct ReducedAxisArg { long length; long src_stride; long idx_weight; };")
	e.line("struct %sArgs {", e.sig.EntryName())
	e.line("  struct FreeAxisArg free[%d];", e.sig.MaxFreeRank)
	e.line("  struct ReducedAxisArg reduced[%d];", e.sig.MaxReducedRank)
	e.line("  const %s* src_base;", e.sig.SrcType)
	e.line("  %s* dst_base;", e.sig.DstType)
	if e.sig.TracksIndex {
		e.line("  %s* dst_idx_base;", e.sig.DstIdxType)
	}
	e.line("  long M;")
	e.line("  long N;")
	e.line("};")
	e.line("")
}

// emitCombine emits the op's identity/combine/tie-break fragment.
func (e *Emitter) emitCombine() {
	acc := e.sig.AccType
	e.line("__device__ inline %s combine_%s(%s a, %s b) {", acc, e.sig.Op, acc, acc)
	switch e.sig.Combine {
	case CombineSum:
		e.line("  return a + b;")
	case CombineProd, CombineProdNZ:
		e.line("  return a * b;")
	case CombineMax:
		e.line("  if (isnan_generic(a) || isnan_generic(b)) return nan_generic();")
		e.line("  return a > b ? a : b;")
	case CombineMin:
		e.line("  if (isnan_generic(a) || isnan_generic(b)) return nan_generic();")
		e.line("  return a < b ? a : b;")
	case CombineAnd:
		e.line("  return a & b;")
	case CombineOr:
		e.line("  return a | b;")
	case CombineXor:
		e.line("  return a ^ b;")
	case CombineAny:
		e.line("  return a || b;")
	case CombineAll:
		e.line("  return a && b;")
	}
	e.line("}")
	e.line("")

	e.emitIdentity()

	if e.sig.Combine == CombineProdNZ {
		e.line("__device__ inline %s load_elem_%s(%s v) {", acc, e.sig.Op, acc)
		e.line("  return v == (%s)0 ? (%s)1 : v;", acc, acc)
		e.line("}")
	} else {
		e.line("__device__ inline %s load_elem_%s(%s v) { return v; }", acc, e.sig.Op, acc)
	}
	e.line("")
}

// emitIdentity emits the op's identity-element constant. Unused by the
// min/max family, which seeds from the first real element instead.
func (e *Emitter) emitIdentity() {
	acc := e.sig.AccType
	e.line("__device__ inline %s identity_%s() {", acc, e.sig.Op)
	switch e.sig.Combine {
	case CombineSum, CombineOr, CombineXor, CombineAny:
		e.line("  return (%s)0;", acc)
	case CombineProd, CombineProdNZ:
		e.line("  return (%s)1;", acc)
	case CombineAnd:
		e.line("  return (%s)~0;", acc)
	case CombineAll:
		e.line("  return (%s)1;", acc)
	default:
		e.line("  return (%s)0; // unused: first-element-seeded op", acc)
	}
	e.line("}")
	e.line("")
}

// emitKernel emits the three-stage intra-block algorithm.
func (e *Emitter) emitKernel() {
	name := e.sig.EntryName()
	e.line("__global__ void %s(struct %sArgs args) {", name, name)
	e.line("  long fibre = blockIdx.x * blockDim.x / threads_per_reduction() + warpIdx();")
	e.line("  if (fibre >= args.M) return;")
	e.line("")

	e.emitFreeOffsetComputation()
	e.emitSequentialStage()
	e.emitIntraWarpStage()
	e.emitInterWarpStage()
	e.emitWriteback()
	e.line("}")
}

func (e *Emitter) emitFreeOffsetComputation() {
	e.line("  // Decompose `fibre` into free-axis coordinates and accumulate the")
	e.line("  // fixed src/dst/dst_idx byte offset for this block.")
	e.line("  long rem = fibre;")
	e.line("  long src_off = 0, dst_off = 0, dst_idx_off = 0;")
	e.line("  for (int a = %d - 1; a >= 0; a--) {", e.sig.MaxFreeRank)
	e.line("    long len = args.free[a].length;")
	e.line("    long c = rem %% len;")
	e.line("    rem /= len;")
	e.line("    src_off += c * args.free[a].src_stride;")
	e.line("    dst_off += c * args.free[a].dst_stride;")
	if e.sig.TracksIndex {
		e.line("    dst_idx_off += c * args.free[a].dst_idx_stride;")
	}
	e.line("  }")
	e.line("")
}

func (e *Emitter) emitSequentialStage() {
	acc := e.sig.AccType
	e.line("  // Sequential stage: each thread walks a disjoint stride through")
	e.line("  // [0, N) and folds its slice into a local accumulator.")
	if e.sig.FirstElemSeed {
		e.line("  %s local = (%s)0;", acc, acc)
		e.line("  int have_local = 0;")
	} else {
		e.line("  %s local = identity_%s();", acc, e.sig.Op)
	}
	if e.sig.TracksIndex {
		e.line("  long local_idx = -1;")
	}
	e.line("  for (long k = lane_id(); k < args.N; k += lanes_per_reduction()) {")
	e.line("    long roff = src_off;")
	e.line("    long flat = 0;")
	e.line("    long rrem = k;")
	e.line("    for (int r = %d - 1; r >= 0; r--) {", e.sig.MaxReducedRank)
	e.line("      long len = args.reduced[r].length;")
	e.line("      long c = rrem %% len;")
	e.line("      rrem /= len;")
	e.line("      roff += c * args.reduced[r].src_stride;")
	if e.sig.TracksIndex {
		e.line("      flat += c * args.reduced[r].idx_weight;")
	}
	e.line("    }")
	e.line("    %s v = load_elem_%s((%s)src_at(args.src_base, src_off + roff));", acc, e.sig.Op, acc)
	if e.sig.FirstElemSeed {
		e.line("    if (!have_local) { local = v; have_local = 1; ")
		if e.sig.TracksIndex {
			e.line("      local_idx = flat;")
		}
		e.line("    } else {")
		e.line("      %s combined = combine_%s(local, v);", acc, e.sig.Op)
		if e.sig.TracksIndex {
			e.line("      // Tie-break: lower flat index wins.")
			e.line("      if (combined == local && flat > local_idx) { /* keep existing winner */ }")
			e.line("      else if (combined != local || flat < local_idx) { local_idx = (combined == v) ? flat : local_idx; }")
		}
		e.line("      local = combined;")
		e.line("    }")
	} else {
		e.line("    local = combine_%s(local, v);", e.sig.Op)
	}
	e.line("  }")
	e.line("")
}

func (e *Emitter) emitIntraWarpStage() {
	e.line("  // Intra-warp stage: pairwise shuffle-reduce, T-1 steps. Ties break")
	e.line("  // toward the lower flat index (deterministic across runs).")
	e.line("  for (int offset = warp_size() / 2; offset > 0; offset >>= 1) {")
	e.line("    %s other = shfl_down(local, offset);", e.sig.AccType)
	if e.sig.TracksIndex {
		e.line("    long other_idx = shfl_down_long(local_idx, offset);")
		e.line("    combine_with_tiebreak_%s(&local, &local_idx, other, other_idx);", e.sig.Op)
	} else {
		e.line("    local = combine_%s(local, other);", e.sig.Op)
	}
	e.line("  }")
	e.line("")
}

func (e *Emitter) emitInterWarpStage() {
	e.line("  // Inter-warp stage: warp leaders publish to shared memory; one")
	e.line("  // warp reloads and repeats the shuffle tree.")
	e.line("  if (warps_per_reduction() > 1) {")
	e.line("    if (lane_id() == 0) shared_publish_%s(local%s);", e.sig.Op, indexArgSuffix(e.sig))
	e.line("    barrier();")
	e.line("    if (warp_id_in_reduction() == 0) {")
	e.line("      local = shared_reload_%s(%s);", e.sig.Op, indexArgSuffix2(e.sig))
	e.line("      for (int offset = warps_per_reduction() / 2; offset > 0; offset >>= 1) {")
	e.line("        %s other = shfl_down(local, offset);", e.sig.AccType)
	if e.sig.TracksIndex {
		e.line("        long other_idx = shfl_down_long(local_idx, offset);")
		e.line("        combine_with_tiebreak_%s(&local, &local_idx, other, other_idx);", e.sig.Op)
	} else {
		e.line("        local = combine_%s(local, other);", e.sig.Op)
	}
	e.line("      }")
	e.line("    }")
	e.line("  }")
	e.line("")
}

func indexArgSuffix(sig Signature) string {
	if sig.TracksIndex {
		return ", local_idx"
	}
	return ""
}

func indexArgSuffix2(sig Signature) string {
	if sig.TracksIndex {
		return "&local_idx"
	}
	return ""
}

func (e *Emitter) emitWriteback() {
	e.line("  if (lane_id() != 0 || warp_id_in_reduction() != 0) return;")
	if e.sig.WritesValue {
		e.line("  dst_at(args.dst_base, dst_off)[0] = (%s)local;", e.sig.DstType)
	}
	if e.sig.TracksIndex {
		e.line("  dst_idx_at(args.dst_idx_base, dst_idx_off)[0] = (%s)local_idx;", e.sig.DstIdxType)
	}
}
