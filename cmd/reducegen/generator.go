package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/gpureduce/reduce/kernelsrc"
	"golang.org/x/tools/imports"
)

// opMeta is reducegen's own copy of the fixed operator table's metadata.
// It duplicates a handful of facts already encoded in reduce/ops.go's
// unexported opTable rather than reaching across the package boundary for
// them, since generation needs to run without linking the reduce
// package's internal combine-kind enum.
type opMeta struct {
	combine       kernelsrc.CombineKind
	tracksIndex   bool
	writesValue   bool
	firstElemSeed bool
	category      string // "numeric", "integer", "bool"
}

var opMetaTable = map[string]opMeta{
	"Sum":          {combine: kernelsrc.CombineSum, writesValue: true, category: "numeric"},
	"Prod":         {combine: kernelsrc.CombineProd, writesValue: true, category: "numeric"},
	"ProdNZ":       {combine: kernelsrc.CombineProdNZ, writesValue: true, category: "numeric"},
	"Max":          {combine: kernelsrc.CombineMax, writesValue: true, firstElemSeed: true, category: "numeric"},
	"Min":          {combine: kernelsrc.CombineMin, writesValue: true, firstElemSeed: true, category: "numeric"},
	"And":          {combine: kernelsrc.CombineAnd, writesValue: true, category: "integer"},
	"Or":           {combine: kernelsrc.CombineOr, writesValue: true, category: "integer"},
	"Xor":          {combine: kernelsrc.CombineXor, writesValue: true, category: "integer"},
	"Any":          {combine: kernelsrc.CombineAny, writesValue: true, category: "bool"},
	"All":          {combine: kernelsrc.CombineAll, writesValue: true, category: "bool"},
	"ArgMax":       {combine: kernelsrc.CombineMax, tracksIndex: true, firstElemSeed: true, category: "numeric"},
	"ArgMin":       {combine: kernelsrc.CombineMin, tracksIndex: true, firstElemSeed: true, category: "numeric"},
	"MaxAndArgMax": {combine: kernelsrc.CombineMax, tracksIndex: true, writesValue: true, firstElemSeed: true, category: "numeric"},
	"MinAndArgMin": {combine: kernelsrc.CombineMin, tracksIndex: true, writesValue: true, firstElemSeed: true, category: "numeric"},
}

// typeCategory classifies a registered element type name the same way
// reduce/gpu's registry does, so reducegen skips nonsensical combinations
// (e.g. bitwise-and over float32) instead of emitting dead kernel source.
func typeCategory(name string) string {
	switch name {
	case "int8", "int16", "int32", "int64", "uint8", "uint16", "uint32", "uint64":
		return "integer"
	case "bool":
		return "bool"
	case "float16", "float32", "float64":
		return "numeric-only"
	default:
		return "unknown"
	}
}

func allows(opCategory, typeCat string) bool {
	switch opCategory {
	case "numeric":
		return typeCat == "integer" || typeCat == "numeric-only"
	case "integer":
		return typeCat == "integer" || typeCat == "bool"
	case "bool":
		return typeCat == "bool" || typeCat == "integer"
	default:
		return false
	}
}

func accTypeFor(srcType string) string {
	if srcType == "float16" {
		return "float32"
	}
	return srcType
}

// Generator drives the batch kernel-source generation pass.
type Generator struct {
	Ops            []string
	Types          []string
	IdxType        string
	FreeBuckets    []int
	ReducedBuckets []int
	OutDir         string
	RegistryPkg    string
}

type generated struct {
	sig      kernelsrc.Signature
	fileName string
}

// Run emits one kernel source file per (op, type, free-rank, reduced-rank)
// combination that opMetaTable/typeCategory admit, plus a single
// registry.go stub listing every signature that was generated — the stub
// lets a caller pre-populate reduce/cache.Cache without re-deriving
// signatures from scratch at startup.
func (g *Generator) Run() (int, error) {
	if err := os.MkdirAll(g.OutDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output dir %s: %w", g.OutDir, err)
	}

	var all []generated
	for _, opName := range g.Ops {
		meta, ok := opMetaTable[opName]
		if !ok {
			continue // unrecognized identifier in opTable (e.g. not an Op), skip silently
		}
		for _, t := range g.Types {
			tc := typeCategory(t)
			if !allows(meta.category, tc) {
				continue
			}
			for _, fr := range g.FreeBuckets {
				for _, rr := range g.ReducedBuckets {
					sig := kernelsrc.Signature{
						Op:            strings.ToLower(opName),
						Combine:       meta.combine,
						TracksIndex:   meta.tracksIndex,
						WritesValue:   meta.writesValue,
						FirstElemSeed: meta.firstElemSeed,
						SrcType:       t,
						AccType:       accTypeFor(t),
						DstType:       t,
						MaxFreeRank:   fr,
						MaxReducedRank: rr,
					}
					if meta.tracksIndex {
						sig.DstIdxType = g.IdxType
					}
					text, err := kernelsrc.Generate(sig)
					if err != nil {
						return 0, fmt.Errorf("generating %s: %w", sig.Key(), err)
					}
					fileName := sig.EntryName() + ".cu"
					path := filepath.Join(g.OutDir, fileName)
					if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
						return 0, fmt.Errorf("writing %s: %w", path, err)
					}
					all = append(all, generated{sig: sig, fileName: fileName})
				}
			}
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].sig.Key() < all[j].sig.Key() })

	if err := g.writeRegistry(all); err != nil {
		return 0, err
	}
	return len(all), nil
}

// writeRegistry emits a small Go source stub listing every generated
// signature's cache key and source file. The stub is hand-assembled
// text, so it runs golang.org/x/tools/imports over the result before
// writing rather than trusting the strings.Builder output to already be
// gofmt-clean.
func (g *Generator) writeRegistry(all []generated) error {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", g.RegistryPkg)
	b.WriteString("// Entry describes one pre-generated kernel source file.\n")
	b.WriteString("type Entry struct {\n\tKey      string\n\tFile     string\n\tEntryName string\n}\n\n")
	b.WriteString("// Entries lists every signature this package generated kernel source for.\n")
	b.WriteString("var Entries = []Entry{\n")
	for _, e := range all {
		fmt.Fprintf(&b, "\t{Key: %q, File: %q, EntryName: %q},\n", e.sig.Key(), e.fileName, e.sig.EntryName())
	}
	b.WriteString("}\n")

	formatted, err := imports.Process("registry.go", []byte(b.String()), nil)
	if err != nil {
		return fmt.Errorf("formatting registry stub: %w", err)
	}
	return os.WriteFile(filepath.Join(g.OutDir, "registry.go"), formatted, 0o644)
}
