// Command misorient runs the orientation clustering pipeline over an EBSD
// scan: load an .ang file, compute the symmetry-reduced misorientation
// distance matrix, cluster with DBSCAN, aggregate per-cluster mean
// orientations, then optionally persist the run and render plots.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/misorient.report/internal/ebsd"
	"github.com/banshee-data/misorient.report/internal/ebsd/angio"
	"github.com/banshee-data/misorient.report/internal/ebsd/monitor"
	storage "github.com/banshee-data/misorient.report/internal/ebsd/storage/sqlite"
	"github.com/banshee-data/misorient.report/internal/fsutil"
	"github.com/banshee-data/misorient.report/internal/units"
	"github.com/banshee-data/misorient.report/internal/version"
)

var (
	angFile     = flag.String("ang", "", "EBSD .ang orientation file (required)")
	configFile  = flag.String("config", "", "JSON run config; flags override file values")
	groupName   = flag.String("group", "", "symmetry group (default: from .ang header, else hexagonal)")
	strategy    = flag.String("strategy", "", "distance strategy: full-tensor, row-at-a-time, pairwise, precomputed")
	epsDeg      = flag.Float64("eps", 0, "DBSCAN neighborhood radius in degrees")
	minPts      = flag.Int("minpts", 0, "DBSCAN minimum neighborhood size")
	workers     = flag.Int("workers", 0, "row-at-a-time workers (0 = one per CPU)")
	memBudgetMB = flag.Int("mem-budget-mb", 0, "memory budget for the distance working set in MiB")
	matrixIn    = flag.String("matrix-in", "", "load a precomputed distance matrix instead of computing")
	matrixOut   = flag.String("matrix-out", "", "save the distance matrix for later runs")
	dbFile      = flag.String("db", "", "sqlite database to record the run in")
	migrations  = flag.String("migrations", "migrations", "schema migrations directory")
	plotDir     = flag.String("plots", "", "base directory for cluster map / histogram output")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("misorient %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *angFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	fsys := fsutil.OSFileSystem{}
	grid, hdr, err := angio.Load(fsys, *angFile)
	if err != nil {
		log.Fatalf("failed to load %s: %v", *angFile, err)
	}
	log.Printf("loaded %s: %dx%d grid (%d points), material=%q symmetry=%q",
		*angFile, grid.Rows(), grid.Cols(), grid.Len(), hdr.MaterialName, hdr.Symmetry)

	cfg, err := buildConfig(hdr)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	opts, err := cfg.Resolve()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	opts.Source = *angFile

	if *matrixIn != "" {
		m, err := ebsd.LoadMatrix(fsys, *matrixIn)
		if err != nil {
			log.Fatalf("failed to load distance matrix: %v", err)
		}
		opts.Distance.Strategy = ebsd.StrategyPrecomputed
		opts.Precomputed = m
	}

	res, err := ebsd.RunPipeline(grid, opts)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	fmt.Printf("run %s: %d points, %d clusters, %d noise (distance %s, cluster %s)\n",
		res.ID, res.NumPoints, res.NumClusters, res.NoiseCount,
		res.DistanceDuration.Round(time.Millisecond), res.ClusterDuration.Round(time.Millisecond))
	for label := 0; label < res.NumClusters; label++ {
		q := res.Means[label]
		phi1, bigPhi, phi2 := q.Euler()
		fmt.Printf("  cluster %d: mean Euler (%.2f, %.2f, %.2f) deg, %d members\n",
			label, units.Degrees(phi1), units.Degrees(bigPhi), units.Degrees(phi2),
			len(res.Clustering().Members(label)))
	}

	if *matrixOut != "" {
		if err := ebsd.SaveMatrix(fsys, *matrixOut, res.Matrix); err != nil {
			log.Fatalf("failed to save distance matrix: %v", err)
		}
		log.Printf("saved distance matrix to %s", *matrixOut)
	}

	if *dbFile != "" {
		if err := recordRun(res); err != nil {
			log.Fatalf("failed to record run: %v", err)
		}
	}

	if *plotDir != "" {
		if err := renderPlots(grid, res); err != nil {
			log.Fatalf("failed to render plots: %v", err)
		}
	}
}

// buildConfig merges defaults, the optional config file and any explicitly
// set flags, then applies the .ang header symmetry when no group was named.
func buildConfig(hdr *angio.Header) (*ebsd.RunConfig, error) {
	cfg := ebsd.DefaultRunConfig()
	if *configFile != "" {
		loaded, err := ebsd.LoadRunConfig(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var overrides ebsd.RunConfig
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "group":
			overrides.Group = groupName
		case "strategy":
			overrides.Strategy = strategy
		case "eps":
			overrides.EpsDegrees = epsDeg
		case "minpts":
			overrides.MinPts = minPts
		case "workers":
			overrides.Workers = workers
		case "mem-budget-mb":
			overrides.MemoryBudgetMB = memBudgetMB
		}
	})
	cfg.Merge(&overrides)

	// Header symmetry wins only when neither flag nor config named a group
	// beyond the default.
	if overrides.Group == nil && *configFile == "" {
		if name, ok := hdr.GroupName(); ok {
			cfg.Group = &name
		}
	}
	return cfg, nil
}

func recordRun(res *ebsd.RunResult) error {
	db, err := storage.NewDB(*dbFile)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.MigrateUp(*migrations); err != nil {
		return err
	}
	return storage.NewRunStore(db).SaveRun(res)
}

func renderPlots(grid *ebsd.Grid, res *ebsd.RunResult) error {
	dir, err := monitor.MakeRunOutputDir(*plotDir, res.Source)
	if err != nil {
		return err
	}
	if err := monitor.PlotClusterMap(grid, res.Labels, res.NumClusters,
		filepath.Join(dir, "cluster_map.png")); err != nil {
		return err
	}
	if err := monitor.PlotAngleHistogram(res.Matrix, 72,
		filepath.Join(dir, "angle_hist.png")); err != nil {
		return err
	}
	if err := monitor.WriteClusterScatterHTML(grid, res.Labels, res.NumClusters,
		filepath.Join(dir, "clusters.html")); err != nil {
		return err
	}
	log.Printf("wrote plots to %s", dir)
	return nil
}
