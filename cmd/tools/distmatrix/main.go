// Command distmatrix precomputes a symmetry-reduced distance matrix from an
// .ang file and saves it as a binary artifact that misorient can load with
// -matrix-in, so repeated clustering sweeps skip the dominant cost.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/banshee-data/misorient.report/internal/ebsd"
	"github.com/banshee-data/misorient.report/internal/ebsd/angio"
	"github.com/banshee-data/misorient.report/internal/fsutil"
)

var (
	angFile     = flag.String("ang", "", "EBSD .ang orientation file (required)")
	outFile     = flag.String("out", "", "output matrix artifact path (required)")
	groupName   = flag.String("group", "hexagonal", "symmetry group")
	strategy    = flag.String("strategy", "row-at-a-time", "distance strategy: full-tensor, row-at-a-time, pairwise")
	workers     = flag.Int("workers", 0, "row-at-a-time workers (0 = one per CPU)")
	memBudgetMB = flag.Int("mem-budget-mb", 0, "memory budget in MiB (0 = default)")
)

func main() {
	flag.Parse()
	if *angFile == "" || *outFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	fsys := fsutil.OSFileSystem{}
	grid, hdr, err := angio.Load(fsys, *angFile)
	if err != nil {
		log.Fatalf("failed to load %s: %v", *angFile, err)
	}

	name := *groupName
	if f := flag.Lookup("group"); f != nil && f.Value.String() == f.DefValue {
		if hdrName, ok := hdr.GroupName(); ok {
			name = hdrName
		}
	}
	group, err := ebsd.GroupByName(name)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	strat, err := ebsd.ParseStrategy(*strategy)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	params := ebsd.DistanceParams{Strategy: strat, Workers: *workers}
	if *memBudgetMB > 0 {
		params.MemoryBudgetBytes = uint64(*memBudgetMB) << 20
	}
	dc, err := ebsd.NewDistanceComputer(params)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	n := grid.Len()
	log.Printf("computing %dx%d matrix, group=%s (|G|=%d), strategy=%s, ~%d bytes",
		n, n, group.Name, group.Order(), strat,
		ebsd.MemoryEstimate(strat, n, n, group.Order(), dc.Params().Workers))

	m, err := dc.OrientationMatrix(grid.Quats(), group)
	if err != nil {
		log.Fatalf("distance computation failed: %v", err)
	}
	if err := ebsd.SaveMatrix(fsys, *outFile, m); err != nil {
		log.Fatalf("failed to save matrix: %v", err)
	}
	log.Printf("saved %dx%d matrix to %s", n, n, *outFile)
}
