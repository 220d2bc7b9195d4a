package ebsd

import (
	"errors"
	"testing"
)

// blockMatrix builds a synthetic distance matrix with dense groups and far
// outliers. groupSizes lists the member count of each group; points inside a
// group sit at intra from each other, points of different groups at inter,
// and the trailing numOutliers points sit at outlierDist from everything.
func blockMatrix(groupSizes []int, numOutliers int, intra, inter, outlierDist float64) *Matrix {
	groupOf := make([]int, 0)
	for gi, sz := range groupSizes {
		for k := 0; k < sz; k++ {
			groupOf = append(groupOf, gi)
		}
	}
	for k := 0; k < numOutliers; k++ {
		groupOf = append(groupOf, -1-k) // unique pseudo-group per outlier
	}

	n := len(groupOf)
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := inter
			switch {
			case groupOf[i] == groupOf[j]:
				d = intra
			case groupOf[i] < 0 || groupOf[j] < 0:
				d = outlierDist
			}
			m.Set(i, j, d)
			m.Set(j, i, d)
		}
	}
	return m
}

func TestDBSCANFourClustersPlusNoise(t *testing.T) {
	// Four tight 12-point groups and five scattered outliers.
	m := blockMatrix([]int{12, 12, 12, 12}, 5, 0.01, 0.5, 0.3)
	params := DBSCANParams{Eps: 0.05, MinPts: 10}

	c, err := DBSCAN(m, params)
	if err != nil {
		t.Fatalf("DBSCAN: %v", err)
	}
	if c.NumClusters != 4 {
		t.Fatalf("NumClusters = %d, want 4", c.NumClusters)
	}
	if got := c.NoiseCount(); got != 5 {
		t.Errorf("NoiseCount() = %d, want 5", got)
	}

	// Each group lands in exactly one cluster and clusters never merge.
	for gi := 0; gi < 4; gi++ {
		first := c.Labels[gi*12]
		if first == NoiseLabel {
			t.Fatalf("group %d labeled noise", gi)
		}
		for k := 1; k < 12; k++ {
			if c.Labels[gi*12+k] != first {
				t.Errorf("group %d split: labels %d and %d", gi, first, c.Labels[gi*12+k])
			}
		}
		for gj := gi + 1; gj < 4; gj++ {
			if c.Labels[gj*12] == first {
				t.Errorf("groups %d and %d merged into label %d", gi, gj, first)
			}
		}
	}
	for k := 0; k < 5; k++ {
		if l := c.Labels[48+k]; l != NoiseLabel {
			t.Errorf("outlier %d labeled %d, want noise", k, l)
		}
	}
}

func TestDBSCANLabelsAreContiguous(t *testing.T) {
	m := blockMatrix([]int{5, 5, 5}, 0, 0.01, 0.5, 0)
	c, err := DBSCAN(m, DBSCANParams{Eps: 0.05, MinPts: 3})
	if err != nil {
		t.Fatalf("DBSCAN: %v", err)
	}
	seen := make(map[int]bool)
	for _, l := range c.Labels {
		if l == NoiseLabel {
			continue
		}
		if l < 0 || l >= c.NumClusters {
			t.Fatalf("label %d outside [0, %d)", l, c.NumClusters)
		}
		seen[l] = true
	}
	if len(seen) != c.NumClusters {
		t.Errorf("%d distinct labels for NumClusters = %d", len(seen), c.NumClusters)
	}
}

func TestDBSCANMinPtsIncludesSelf(t *testing.T) {
	// Two points at distance 0.01. With MinPts 2 the neighborhood {self,
	// other} makes both core; with MinPts 3 neither is.
	m := blockMatrix([]int{2}, 0, 0.01, 0, 0)

	c, err := DBSCAN(m, DBSCANParams{Eps: 0.05, MinPts: 2})
	if err != nil {
		t.Fatalf("DBSCAN: %v", err)
	}
	if c.NumClusters != 1 || c.NoiseCount() != 0 {
		t.Errorf("MinPts=2: got %d clusters, %d noise, want 1 cluster", c.NumClusters, c.NoiseCount())
	}

	c, err = DBSCAN(m, DBSCANParams{Eps: 0.05, MinPts: 3})
	if err != nil {
		t.Fatalf("DBSCAN: %v", err)
	}
	if c.NumClusters != 0 || c.NoiseCount() != 2 {
		t.Errorf("MinPts=3: got %d clusters, %d noise, want all noise", c.NumClusters, c.NoiseCount())
	}
}

func TestDBSCANAllNoise(t *testing.T) {
	// Everything far apart.
	m := blockMatrix(nil, 6, 0, 0, 1.0)
	c, err := DBSCAN(m, DBSCANParams{Eps: 0.05, MinPts: 2})
	if err != nil {
		t.Fatalf("DBSCAN: %v", err)
	}
	if c.NumClusters != 0 {
		t.Errorf("NumClusters = %d, want 0", c.NumClusters)
	}
	if c.NoiseCount() != 6 {
		t.Errorf("NoiseCount() = %d, want 6", c.NoiseCount())
	}
}

func TestDBSCANMinPtsOne(t *testing.T) {
	// With MinPts 1 every point is core, so isolated points become
	// singleton clusters instead of noise.
	m := blockMatrix(nil, 3, 0, 0, 1.0)
	c, err := DBSCAN(m, DBSCANParams{Eps: 0.05, MinPts: 1})
	if err != nil {
		t.Fatalf("DBSCAN: %v", err)
	}
	if c.NumClusters != 3 || c.NoiseCount() != 0 {
		t.Errorf("got %d clusters, %d noise, want 3 singleton clusters", c.NumClusters, c.NoiseCount())
	}
}

// TestDBSCANPermutationInvariance shuffles the point order and checks the
// partition is unchanged up to relabeling.
func TestDBSCANPermutationInvariance(t *testing.T) {
	m := blockMatrix([]int{6, 8, 7}, 3, 0.01, 0.5, 0.3)
	params := DBSCANParams{Eps: 0.05, MinPts: 4}

	base, err := DBSCAN(m, params)
	if err != nil {
		t.Fatalf("DBSCAN: %v", err)
	}

	n := m.RowCount
	// Fixed deterministic permutation: reverse order.
	perm := make([]int, n)
	for i := range perm {
		perm[i] = n - 1 - i
	}
	pm := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pm.Set(i, j, m.At(perm[i], perm[j]))
		}
	}

	shuffled, err := DBSCAN(pm, params)
	if err != nil {
		t.Fatalf("DBSCAN: %v", err)
	}
	if shuffled.NumClusters != base.NumClusters {
		t.Fatalf("NumClusters changed under permutation: %d vs %d", shuffled.NumClusters, base.NumClusters)
	}

	// Same-cluster and noise relationships must survive the permutation.
	for i := 0; i < n; i++ {
		if (base.Labels[perm[i]] == NoiseLabel) != (shuffled.Labels[i] == NoiseLabel) {
			t.Fatalf("point %d changed noise status under permutation", perm[i])
		}
		for j := i + 1; j < n; j++ {
			if base.Labels[perm[i]] == NoiseLabel || base.Labels[perm[j]] == NoiseLabel {
				continue
			}
			same := base.Labels[perm[i]] == base.Labels[perm[j]]
			sameShuffled := shuffled.Labels[i] == shuffled.Labels[j]
			if same != sameShuffled {
				t.Fatalf("pair (%d,%d) grouping changed under permutation", perm[i], perm[j])
			}
		}
	}
}

func TestDBSCANParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  DBSCANParams
		wantErr bool
	}{
		{"valid", DBSCANParams{Eps: 0.05, MinPts: 10}, false},
		{"zero eps", DBSCANParams{Eps: 0, MinPts: 10}, true},
		{"negative eps", DBSCANParams{Eps: -0.1, MinPts: 10}, true},
		{"zero minPts", DBSCANParams{Eps: 0.05, MinPts: 0}, true},
		{"minPts one", DBSCANParams{Eps: 0.05, MinPts: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDBSCANRejectsBadInputs(t *testing.T) {
	m := blockMatrix([]int{3}, 0, 0.01, 0, 0)

	if _, err := DBSCAN(m, DBSCANParams{Eps: 0, MinPts: 1}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for bad params, got %v", err)
	}

	bad := NewMatrix(2, 2)
	bad.Set(0, 1, 0.3) // missing mirror entry
	if _, err := DBSCAN(bad, DBSCANParams{Eps: 0.05, MinPts: 1}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for asymmetric matrix, got %v", err)
	}
}

func TestClusteringMembers(t *testing.T) {
	c := &Clustering{
		Labels:      []int{0, 1, 0, NoiseLabel, 1, 0},
		NumClusters: 2,
	}
	got := c.Members(0)
	want := []int{0, 2, 5}
	if len(got) != len(want) {
		t.Fatalf("Members(0) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Members(0)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if got := c.NoiseCount(); got != 1 {
		t.Errorf("NoiseCount() = %d, want 1", got)
	}
	if got := c.Members(7); got != nil {
		t.Errorf("Members(7) = %v, want nil", got)
	}
}
