// Command reducegen pre-generates GPU kernel source files for a batch of
// reduction signatures, ahead of the engine's own lazy cache-miss path
// (reduce.Engine.Run / reduce/cache.Cache.LoadOrCompile).
//
// It exists for deployments that want kernel source committed to a build
// artifact rather than generated at first-call latency, since kernel
// compilation on a cache miss may block arbitrarily long.
//
// Usage:
//
//	reducegen -ops reduce/ops.go -types float32,float64,int32,uint32 \
//	    -freerank 1,2,4,8 -reducedrank 1,2,4,8 -out generated
//
// Or via go:generate from reduce/kernelsrc:
//
//	//go:generate reducegen -ops ../ops.go -types float32,float64 -out .
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	opsFile     = flag.String("ops", "reduce/ops.go", "path to the operator table source (reduce/ops.go)")
	typesFlag   = flag.String("types", "float32,float64,int32,uint32", "comma-separated element type names")
	idxType     = flag.String("idxtype", "int32", "destination index element type for argument-tracking ops")
	freeRanks   = flag.String("freerank", "1,2,4,8", "comma-separated max-free-rank buckets")
	reducRanks  = flag.String("reducedrank", "1,2,4,8", "comma-separated max-reduced-rank buckets")
	outDir      = flag.String("out", "generated", "output directory for kernel source and the registry stub")
	registryPkg = flag.String("pkg", "generated", "package name for the registry stub")
)

func main() {
	flag.Parse()

	if *opsFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -ops flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	ops, err := discoverOps(*opsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	types := splitNonEmpty(*typesFlag)
	freeBuckets, err := parseInts(*freeRanks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -freerank: %v\n", err)
		os.Exit(1)
	}
	reducedBuckets, err := parseInts(*reducRanks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -reducedrank: %v\n", err)
		os.Exit(1)
	}

	gen := &Generator{
		Ops:            ops,
		Types:          types,
		IdxType:        *idxType,
		FreeBuckets:    freeBuckets,
		ReducedBuckets: reducedBuckets,
		OutDir:         *outDir,
		RegistryPkg:    *registryPkg,
	}

	n, err := gen.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("reducegen: wrote %d kernel source files to %s\n", n, *outDir)
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, p := range splitNonEmpty(s) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
