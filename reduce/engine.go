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
	"fmt"

	"github.com/example/gpureduce/reduce/cache"
	"github.com/example/gpureduce/reduce/gpu"
	"github.com/example/gpureduce/reduce/kernelsrc"
)

// Engine binds a gpu.Context collaborator and a kernel cache into the
// invocation path: plan, configure, look up or generate+compile+cache a
// kernel, launch it.
type Engine struct {
	gctx  gpu.Context
	cache *cache.Cache
}

// NewEngine constructs an Engine. cache may be nil, in which case a
// fresh process-local Cache is created; callers that want to share one
// cache across multiple Engines should construct it themselves and pass
// it in.
func NewEngine(gctx gpu.Context, kernelCache *cache.Cache) *Engine {
	if kernelCache == nil {
		kernelCache = cache.New()
	}
	return &Engine{gctx: gctx, cache: kernelCache}
}

// Run executes one reduction request end to end. It returns once the
// launch is submitted, not once the GPU has finished.
func (e *Engine) Run(ctx context.Context, req Request) error {
	plan, err := Build(req)
	if err != nil {
		return err
	}

	// Any zero-length axis short-circuits to an identity fill with no
	// kernel launch.
	if plan.M == 0 || plan.N == 0 {
		return fillIdentity(ctx, e.gctx, plan)
	}

	warp := e.gctx.WarpSize()
	maxBlock := e.gctx.MaxBlockSize()
	lc := Configure(plan, warp, maxBlock)

	sig := signatureFor(plan, lc)
	key := cache.Key{SignatureKey: sig.Key(), ArchTag: e.gctx.ArchTag()}

	bin, err := e.cache.LoadOrCompile(ctx, key, func(ctx context.Context) (gpu.Binary, error) {
		text, err := kernelsrc.Generate(sig)
		if err != nil {
			return nil, wrapf(CompileFail, err, "generating kernel source for %s", sig.Key())
		}
		b, err := e.gctx.Compile(ctx, gpu.KernelSource{
			Signature: key.String(),
			Text:      text,
			EntryName: sig.EntryName(),
			Meta:      sig,
		})
		if err != nil {
			return nil, wrapf(CompileFail, err, "compiling kernel for %s", sig.Key())
		}
		return b, nil
	})
	if err != nil {
		return toEngineError(CompileFail, err)
	}

	args := lc.Args
	if lc.ScratchBytes > 0 {
		scratch, err := e.gctx.Alloc(ctx, lc.ScratchBytes)
		if err != nil {
			return wrapf(DeviceAllocFail, err, "allocating %d scratch bytes", lc.ScratchBytes)
		}
		defer e.gctx.Free(ctx, scratch)
		args.ScratchBase = scratch
	}

	if err := e.gctx.Launch(ctx, bin, lc.Grid, lc.Block, args); err != nil {
		// Partial writes to dst on LAUNCH_FAIL are permitted and are the
		// caller's to reason about; nothing is retried.
		return wrapf(LaunchFail, err, "launching %s", sig.EntryName())
	}
	return nil
}

// toEngineError passes through an already-typed *Error (from the compile
// closure above) unchanged, or wraps an unexpected error under kind.
func toEngineError(kind Kind, err error) error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return wrapf(kind, err, "kernel cache")
}

func signatureFor(p *Plan, lc LaunchConfig) kernelsrc.Signature {
	info, _ := p.Op.info()
	sig := kernelsrc.Signature{
		Op:            p.Op.String(),
		Combine:       combineKindFor(info.combine),
		TracksIndex:   info.tracksIndex,
		WritesValue:   info.writesValue,
		FirstElemSeed: info.firstElementSeed,

		SrcType: p.SrcElem.Name(),
		AccType: p.DstElem.AccumulatorType().Name(),
		DstType: p.DstElem.Name(),

		MaxFreeRank:    lc.MaxFreeRank,
		MaxReducedRank: lc.MaxReducedRank,
	}
	if p.DstIdxElem != nil {
		sig.DstIdxType = p.DstIdxElem.Name()
	}
	return sig
}

func combineKindFor(c combineKind) kernelsrc.CombineKind {
	switch c {
	case combineSum:
		return kernelsrc.CombineSum
	case combineProd:
		return kernelsrc.CombineProd
	case combineProdNZ:
		return kernelsrc.CombineProdNZ
	case combineMax:
		return kernelsrc.CombineMax
	case combineMin:
		return kernelsrc.CombineMin
	case combineAnd:
		return kernelsrc.CombineAnd
	case combineOr:
		return kernelsrc.CombineOr
	case combineXor:
		return kernelsrc.CombineXor
	case combineAny:
		return kernelsrc.CombineAny
	case combineAll:
		return kernelsrc.CombineAll
	default:
		panic(fmt.Sprintf("reduce: unhandled combine kind %d", c))
	}
}

// --- named entry points for callers ---
//
//	reduce_<op>(dst, [dst_idx,] src, n_reduce_axes, reduce_axes[]) -> status
//
// Go's error return takes the place of the status code; OK is a nil
// error.

func (e *Engine) ReduceSum(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: Sum})
}

func (e *Engine) ReduceProd(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: Prod})
}

func (e *Engine) ReduceProdNZ(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: ProdNZ})
}

func (e *Engine) ReduceMax(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: Max})
}

func (e *Engine) ReduceMin(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: Min})
}

func (e *Engine) ReduceAnd(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: And})
}

func (e *Engine) ReduceOr(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: Or})
}

func (e *Engine) ReduceXor(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: Xor})
}

func (e *Engine) ReduceAny(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: Any})
}

func (e *Engine) ReduceAll(ctx context.Context, dst, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, ReduceAxes: reduceAxes, Op: All})
}

func (e *Engine) ReduceArgMax(ctx context.Context, dst, dstIdx, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, DstIndex: &dstIdx, ReduceAxes: reduceAxes, Op: ArgMax})
}

func (e *Engine) ReduceArgMin(ctx context.Context, dst, dstIdx, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, DstIndex: &dstIdx, ReduceAxes: reduceAxes, Op: ArgMin})
}

func (e *Engine) ReduceMaxAndArgMax(ctx context.Context, dst, dstIdx, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, DstIndex: &dstIdx, ReduceAxes: reduceAxes, Op: MaxAndArgMax})
}

func (e *Engine) ReduceMinAndArgMin(ctx context.Context, dst, dstIdx, src Tensor, reduceAxes []int) error {
	return e.Run(ctx, Request{Src: src, Dst: dst, DstIndex: &dstIdx, ReduceAxes: reduceAxes, Op: MinAndArgMin})
}
