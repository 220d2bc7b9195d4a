package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/misorient.report/internal/ebsd"
	"github.com/banshee-data/misorient.report/internal/monitoring"
)

// RunRecord is the persisted metadata of one pipeline run.
type RunRecord struct {
	RunID         string
	CreatedAt     time.Time
	Source        string
	SymmetryGroup string
	Strategy      string
	EpsRad        float64
	MinPts        int
	NumPoints     int
	NumClusters   int
	NoisePoints   int
	DistanceMs    int64
	ClusterMs     int64
}

// MeanRecord is one persisted cluster mean orientation.
type MeanRecord struct {
	Label       int
	Mean        ebsd.Quat
	MemberCount int
}

// RunStore persists cluster analysis runs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// SaveRun persists a run with its labels and cluster means in one
// transaction.
func (s *RunStore) SaveRun(res *ebsd.RunResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO cluster_runs
		(run_id, created_at, source, symmetry_group, strategy, eps_rad, min_pts,
		 num_points, num_clusters, noise_points, distance_ms, cluster_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.CreatedAt, res.Source, res.GroupName, res.Strategy.String(),
		res.Eps, res.MinPts, res.NumPoints, res.NumClusters, res.NoiseCount,
		res.DistanceDuration.Milliseconds(), res.ClusterDuration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.ID, err)
	}

	labelStmt, err := tx.Prepare(`INSERT INTO run_labels (run_id, point_index, label) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare label insert: %w", err)
	}
	defer labelStmt.Close()
	for i, label := range res.Labels {
		if _, err := labelStmt.Exec(res.ID, i, label); err != nil {
			return fmt.Errorf("insert label for point %d: %w", i, err)
		}
	}

	clustering := res.Clustering()
	meanStmt, err := tx.Prepare(`INSERT INTO run_means
		(run_id, label, qw, qx, qy, qz, member_count) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare mean insert: %w", err)
	}
	defer meanStmt.Close()
	for label, q := range res.Means {
		members := len(clustering.Members(label))
		if _, err := meanStmt.Exec(res.ID, label, q.W, q.X, q.Y, q.Z, members); err != nil {
			return fmt.Errorf("insert mean for cluster %d: %w", label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", res.ID, err)
	}
	monitoring.Logf("saved run %s: %d points, %d clusters, %d noise",
		res.ID, res.NumPoints, res.NumClusters, res.NoiseCount)
	return nil
}

// GetRun returns the metadata of one run.
func (s *RunStore) GetRun(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(`SELECT run_id, created_at, source, symmetry_group, strategy,
		eps_rad, min_pts, num_points, num_clusters, noise_points, distance_ms, cluster_ms
		FROM cluster_runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return rec, err
}

// ListRuns returns up to limit runs, most recent first.
func (s *RunStore) ListRuns(limit int) ([]RunRecord, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT run_id, created_at, source, symmetry_group, strategy,
		eps_rad, min_pts, num_points, num_clusters, noise_points, distance_ms, cluster_ms
		FROM cluster_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Labels returns the per-point cluster labels of a run in point order.
func (s *RunStore) Labels(runID string) ([]int, error) {
	rows, err := s.db.Query(`SELECT label FROM run_labels
		WHERE run_id = ? ORDER BY point_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("load labels for run %s: %w", runID, err)
	}
	defer rows.Close()

	var labels []int
	for rows.Next() {
		var l int
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// Means returns the cluster mean orientations of a run, ordered by label.
func (s *RunStore) Means(runID string) ([]MeanRecord, error) {
	rows, err := s.db.Query(`SELECT label, qw, qx, qy, qz, member_count
		FROM run_means WHERE run_id = ? ORDER BY label`, runID)
	if err != nil {
		return nil, fmt.Errorf("load means for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []MeanRecord
	for rows.Next() {
		var m MeanRecord
		if err := rows.Scan(&m.Label, &m.Mean.W, &m.Mean.X, &m.Mean.Y, &m.Mean.Z, &m.MemberCount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	err := row.Scan(&rec.RunID, &rec.CreatedAt, &rec.Source, &rec.SymmetryGroup,
		&rec.Strategy, &rec.EpsRad, &rec.MinPts, &rec.NumPoints, &rec.NumClusters,
		&rec.NoisePoints, &rec.DistanceMs, &rec.ClusterMs)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
