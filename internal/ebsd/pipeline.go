package ebsd

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/misorient.report/internal/monitoring"
	"github.com/banshee-data/misorient.report/internal/units"
)

// PipelineOptions are the resolved options for one batch run.
type PipelineOptions struct {
	Group    Group
	Distance DistanceParams
	Cluster  DBSCANParams

	// Precomputed substitutes a loaded distance matrix for computation.
	// Required when Distance.Strategy is StrategyPrecomputed; the caller
	// guarantees it was produced by an equivalent procedure on matching
	// input, and it must pass Validate and match the grid size.
	Precomputed *Matrix

	// Source names the orientation data file for run records.
	Source string
}

// RunResult is the complete derived output of one pipeline invocation. The
// distance matrix and labels are owned by this run and recomputed on each
// invocation; only runs are persisted, never labels on their own.
type RunResult struct {
	ID        string
	CreatedAt time.Time
	Source    string

	GroupName string
	Strategy  Strategy
	Eps       float64
	MinPts    int

	NumPoints   int
	NumClusters int
	NoiseCount  int

	Labels []int
	Means  map[int]Quat
	Matrix *Matrix

	DistanceDuration time.Duration
	ClusterDuration  time.Duration
}

// RunPipeline executes the batch flow: orientation grid → distance matrix →
// cluster labels → per-cluster mean orientations. All validation happens
// before the distance computation starts.
func RunPipeline(grid *Grid, opts PipelineOptions) (*RunResult, error) {
	if grid == nil || grid.Len() == 0 {
		return nil, fmt.Errorf("%w: empty orientation grid", ErrInvalidConfig)
	}
	if err := opts.Cluster.Validate(); err != nil {
		return nil, err
	}

	qs := grid.Quats()
	res := &RunResult{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Source:    opts.Source,
		GroupName: opts.Group.Name,
		Strategy:  opts.Distance.Strategy,
		Eps:       opts.Cluster.Eps,
		MinPts:    opts.Cluster.MinPts,
		NumPoints: len(qs),
	}

	distStart := time.Now()
	var m *Matrix
	if opts.Distance.Strategy == StrategyPrecomputed {
		if opts.Precomputed == nil {
			return nil, fmt.Errorf("%w: precomputed strategy selected but no matrix supplied", ErrInvalidConfig)
		}
		m = opts.Precomputed
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if m.RowCount != len(qs) {
			return nil, fmt.Errorf("%w: precomputed matrix is %dx%d for %d grid points",
				ErrInvalidConfig, m.RowCount, m.ColCount, len(qs))
		}
	} else {
		dc, err := NewDistanceComputer(opts.Distance)
		if err != nil {
			return nil, err
		}
		m, err = dc.OrientationMatrix(qs, opts.Group)
		if err != nil {
			return nil, err
		}
	}
	res.Matrix = m
	res.DistanceDuration = time.Since(distStart)
	monitoring.Logf("distance matrix %dx%d ready in %s (strategy=%s group=%s)",
		m.RowCount, m.ColCount, res.DistanceDuration.Round(time.Millisecond), res.Strategy, res.GroupName)

	clusterStart := time.Now()
	clustering, err := DBSCAN(m, opts.Cluster)
	if err != nil {
		return nil, err
	}
	res.ClusterDuration = time.Since(clusterStart)
	res.Labels = clustering.Labels
	res.NumClusters = clustering.NumClusters
	res.NoiseCount = clustering.NoiseCount()
	monitoring.Logf("DBSCAN eps=%s minPts=%d found %d clusters, %d/%d noise points",
		units.FormatDegrees(opts.Cluster.Eps), opts.Cluster.MinPts,
		res.NumClusters, res.NoiseCount, res.NumPoints)

	means, err := ClusterMeans(qs, clustering, opts.Group)
	if err != nil {
		return nil, err
	}
	res.Means = means

	return res, nil
}

// Clustering reconstructs the Clustering value for a result, for callers
// that need member lookups after a run.
func (r *RunResult) Clustering() *Clustering {
	return &Clustering{
		Labels:      r.Labels,
		NumClusters: r.NumClusters,
		Params:      DBSCANParams{Eps: r.Eps, MinPts: r.MinPts},
	}
}
