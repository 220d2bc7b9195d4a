package ebsd

import (
	"math"
	"testing"
)

// perturb composes q with a small rotation about a varying axis.
func perturb(q Quat, i int, scale float64) Quat {
	axis := [3]float64{
		math.Cos(float64(i) * 1.7),
		math.Sin(float64(i) * 2.3),
		math.Cos(float64(i) * 0.9),
	}
	return q.Mul(FromAxisAngle(axis[0], axis[1], axis[2], scale*(1+0.1*float64(i%5))))
}

func TestClusterMeansTightCluster(t *testing.T) {
	base := FromEuler(0.8, 1.2, 2.0)
	n := 20
	qs := make([]Quat, n)
	labels := make([]int, n)
	for i := range qs {
		qs[i] = perturb(base, i, 0.005)
	}
	c := &Clustering{Labels: labels, NumClusters: 1}

	means, err := ClusterMeans(qs, c, GroupD6)
	if err != nil {
		t.Fatalf("ClusterMeans: %v", err)
	}
	mean, ok := means[0]
	if !ok {
		t.Fatal("no mean for cluster 0")
	}
	if err := mean.CheckUnit(); err != nil {
		t.Errorf("mean is not unit: %v", err)
	}
	if d := mean.AngleTo(base); d > 0.01 {
		t.Errorf("mean is %g rad from the true center", d)
	}
	if mean.W < 0 {
		t.Errorf("mean scalar part %g, want canonical non-negative sign", mean.W)
	}
}

// TestClusterMeansAcrossSymmetryBranches feeds members expressed through
// different symmetry operators. A naive component average would collapse;
// the mean must land on a symmetry variant of the true center.
func TestClusterMeansAcrossSymmetryBranches(t *testing.T) {
	base := FromEuler(0.4, 0.9, 1.1)
	n := 12
	qs := make([]Quat, n)
	labels := make([]int, n)
	for i := range qs {
		h := GroupD6.Ops[i%GroupD6.Order()]
		qs[i] = perturb(base, i, 0.004).Mul(h)
	}
	c := &Clustering{Labels: labels, NumClusters: 1}

	means, err := ClusterMeans(qs, c, GroupD6)
	if err != nil {
		t.Fatalf("ClusterMeans: %v", err)
	}
	mean := means[0]

	best := math.Inf(1)
	for _, h := range GroupD6.Ops {
		if d := mean.AngleTo(base.Mul(h)); d < best {
			best = d
		}
	}
	if best > 0.01 {
		t.Errorf("mean is %g rad from every symmetry variant of the center", best)
	}
}

// TestClusterMeansSignMix checks the double cover is handled: negated
// representatives of the same rotations must not cancel each other out.
func TestClusterMeansSignMix(t *testing.T) {
	base := FromEuler(1.5, 0.7, 0.3)
	n := 10
	qs := make([]Quat, n)
	labels := make([]int, n)
	for i := range qs {
		qs[i] = perturb(base, i, 0.004)
		if i%2 == 1 {
			qs[i] = qs[i].Neg()
		}
	}
	c := &Clustering{Labels: labels, NumClusters: 1}

	means, err := ClusterMeans(qs, c, GroupC1)
	if err != nil {
		t.Fatalf("ClusterMeans: %v", err)
	}
	if d := means[0].AngleTo(base); d > 0.01 {
		t.Errorf("mean is %g rad from the center with mixed signs", d)
	}
}

func TestClusterMeansSingleMember(t *testing.T) {
	q := FromEuler(0.2, 0.4, 0.6)
	qs := []Quat{q, FromEuler(2, 1, 0), FromEuler(2.01, 1, 0)}
	c := &Clustering{Labels: []int{0, 1, 1}, NumClusters: 2}

	means, err := ClusterMeans(qs, c, GroupD6)
	if err != nil {
		t.Fatalf("ClusterMeans: %v", err)
	}
	// A size-one cluster returns the member bit for bit.
	if means[0] != q {
		t.Errorf("singleton mean = %+v, want the member unchanged %+v", means[0], q)
	}
	if _, ok := means[1]; !ok {
		t.Error("missing mean for cluster 1")
	}
}

func TestClusterMeansAllNoise(t *testing.T) {
	qs := []Quat{Identity, FromEuler(1, 1, 1)}
	c := &Clustering{Labels: []int{NoiseLabel, NoiseLabel}, NumClusters: 0}

	means, err := ClusterMeans(qs, c, GroupD6)
	if err != nil {
		t.Fatalf("ClusterMeans: %v", err)
	}
	if len(means) != 0 {
		t.Errorf("all-noise clustering produced %d means, want 0", len(means))
	}
}

func TestClusterMeansValidation(t *testing.T) {
	qs := []Quat{Identity}
	c := &Clustering{Labels: []int{0, 0}, NumClusters: 1}
	if _, err := ClusterMeans(qs, c, GroupD6); err == nil {
		t.Error("expected error for length mismatch")
	}

	c = &Clustering{Labels: []int{0}, NumClusters: 1}
	if _, err := ClusterMeans(qs, c, Group{}); err == nil {
		t.Error("expected error for empty group")
	}
}

func TestNearestRepresentative(t *testing.T) {
	base := FromEuler(0.6, 1.0, 0.4)
	// Push the orientation onto a different symmetry branch.
	q := base.Mul(GroupD6.Ops[5])

	rep := NearestRepresentative(q, base, GroupD6)
	if d := rep.AngleTo(base); d > 1e-6 {
		t.Errorf("representative is %g rad from the reference", d)
	}
	if rep.Dot(base) < 0 {
		t.Error("representative not sign-aligned with the reference")
	}
}

func TestRecenterQuats(t *testing.T) {
	qs := []Quat{FromEuler(0.5, 0.5, 0.5), FromEuler(1.0, 0.3, 2.1)}
	rc := RecenterQuats(qs, qs[0])
	if d := rc[0].AngleTo(Identity); d > 1e-6 {
		t.Errorf("recentered reference is %g rad from identity", d)
	}
	if d1, d2 := qs[0].AngleTo(qs[1]), rc[0].AngleTo(rc[1]); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("recentering changed the pair angle: %g vs %g", d1, d2)
	}
}
