package ebsd

import (
	"fmt"
)

// NoiseLabel marks points that are density-reachable from no core point.
const NoiseLabel = -1

// DBSCANParams configures the density-based cluster engine.
type DBSCANParams struct {
	// Eps is the neighborhood radius in radians.
	Eps float64

	// MinPts is the minimum neighborhood size for a core point. The
	// neighborhood of a point includes the point itself, so a point with
	// MinPts-1 other points within Eps is core.
	MinPts int
}

// Validate rejects invalid parameters before any clustering work begins.
func (p DBSCANParams) Validate() error {
	if p.Eps <= 0 {
		return fmt.Errorf("%w: eps %g, must be > 0", ErrInvalidConfig, p.Eps)
	}
	if p.MinPts < 1 {
		return fmt.Errorf("%w: minPts %d, must be >= 1", ErrInvalidConfig, p.MinPts)
	}
	return nil
}

// Clustering is the result of one DBSCAN run over a distance matrix.
// Labels[i] is the cluster of point i: NoiseLabel for noise, otherwise an
// integer from 0 upward in cluster discovery order. Labels are derived
// artifacts: they are recomputed whenever the matrix or parameters change
// and are only persisted together with the run that produced them.
type Clustering struct {
	Labels      []int
	NumClusters int
	Params      DBSCANParams
}

// NoiseCount returns the number of noise points.
func (c *Clustering) NoiseCount() int {
	n := 0
	for _, l := range c.Labels {
		if l == NoiseLabel {
			n++
		}
	}
	return n
}

// Members returns the point indices assigned to the given cluster label.
func (c *Clustering) Members(label int) []int {
	var idx []int
	for i, l := range c.Labels {
		if l == label {
			idx = append(idx, i)
		}
	}
	return idx
}

// DBSCAN partitions the points of a precomputed distance matrix into dense
// clusters plus noise. The matrix already encodes every pairwise distance of
// an arbitrary metric space, so region queries are a straight O(n) row scan
// and the whole run is O(n²); no spatial index applies.
//
// The run is deterministic for a fixed input ordering: points are visited in
// index order and cluster labels count up from 0 in discovery order. A
// permutation of the input permutes labels but never regroups points.
func DBSCAN(m *Matrix, params DBSCANParams) (*Clustering, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	n := m.RowCount
	const unvisited = 0
	// Internal labels: 0 unvisited, -1 noise, clusters from 1; shifted down
	// by one on return so public labels start at 0.
	labels := make([]int, n)
	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := regionQuery(m, i, params.Eps)
		if len(neighbors) < params.MinPts {
			labels[i] = NoiseLabel
			continue
		}

		clusterID++
		labels[i] = clusterID

		// Seed expansion: neighbors may grow as new core points are found.
		for j := 0; j < len(neighbors); j++ {
			idx := neighbors[j]

			if labels[idx] == NoiseLabel {
				labels[idx] = clusterID // noise becomes a border point
			}
			if labels[idx] != unvisited {
				continue
			}
			labels[idx] = clusterID

			next := regionQuery(m, idx, params.Eps)
			if len(next) >= params.MinPts {
				neighbors = append(neighbors, next...)
			}
		}
	}

	out := make([]int, n)
	for i, l := range labels {
		if l == NoiseLabel {
			out[i] = NoiseLabel
		} else {
			out[i] = l - 1
		}
	}
	return &Clustering{Labels: out, NumClusters: clusterID, Params: params}, nil
}

// regionQuery returns the indices of all points within eps of point i,
// including i itself (distance zero on the diagonal).
func regionQuery(m *Matrix, i int, eps float64) []int {
	row := m.Row(i)
	var neighbors []int
	for j, d := range row {
		if d <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
