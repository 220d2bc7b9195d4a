package ebsd

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ClusterMeans computes one representative orientation per non-noise
// cluster: the quaternion minimizing the sum of squared angular distances to
// the members, i.e. the dominant eigenvector of the accumulated 4×4
// outer-product matrix of member quaternions.
//
// Before accumulation each member is re-expressed through the symmetry
// operator that brings it nearest the cluster seed, and sign-aligned with
// the seed, so the average never straddles a symmetry branch cut or the
// quaternion double cover. A cluster of size one returns that orientation
// unchanged. An all-noise clustering returns an empty map.
func ClusterMeans(qs []Quat, c *Clustering, g Group) (map[int]Quat, error) {
	if len(qs) != len(c.Labels) {
		return nil, fmt.Errorf("%w: %d orientations for %d labels",
			ErrInvalidConfig, len(qs), len(c.Labels))
	}
	if g.Order() == 0 {
		return nil, fmt.Errorf("%w: empty symmetry group", ErrInvalidConfig)
	}

	means := make(map[int]Quat)
	for label := 0; label < c.NumClusters; label++ {
		members := c.Members(label)
		if len(members) == 0 {
			continue
		}
		if len(members) == 1 {
			means[label] = qs[members[0]]
			continue
		}
		means[label] = quaternionMean(qs, members, g)
	}
	return means, nil
}

// quaternionMean accumulates the symmetric outer-product matrix of the
// aligned member quaternions and takes its dominant eigenvector.
func quaternionMean(qs []Quat, members []int, g Group) Quat {
	seed := qs[members[0]]

	var acc [4][4]float64
	for _, idx := range members {
		q := NearestRepresentative(qs[idx], seed, g)
		v := [4]float64{q.W, q.X, q.Y, q.Z}
		for a := 0; a < 4; a++ {
			for b := 0; b < 4; b++ {
				acc[a][b] += v[a] * v[b]
			}
		}
	}

	sym := mat.NewSymDense(4, nil)
	for a := 0; a < 4; a++ {
		for b := a; b < 4; b++ {
			sym.SetSym(a, b, acc[a][b])
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		// Factorization of a 4x4 PSD accumulator cannot fail in practice;
		// fall back to the seed rather than return garbage.
		return seed
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// EigenSym orders eigenvalues ascending; the dominant eigenvector is
	// the last column.
	q := Quat{
		W: vecs.At(0, 3),
		X: vecs.At(1, 3),
		Y: vecs.At(2, 3),
		Z: vecs.At(3, 3),
	}.Normalize()
	// Canonical sign: non-negative scalar part.
	if q.W < 0 {
		q = q.Neg()
	}
	return q
}

// NearestRepresentative returns the symmetry-equivalent representative q·h
// (h in g) with the smallest angular distance to ref, sign-aligned so its
// dot product with ref is non-negative.
func NearestRepresentative(q, ref Quat, g Group) Quat {
	best := q
	bestAngle := ref.AngleTo(q)
	for _, h := range g.Ops {
		cand := q.Mul(h)
		if a := ref.AngleTo(cand); a < bestAngle {
			bestAngle = a
			best = cand
		}
	}
	if best.Dot(ref) < 0 {
		best = best.Neg()
	}
	return best
}

// RecenterQuats left-multiplies every orientation by ref⁻¹. Pairwise
// misorientation angles, and therefore cluster assignments, are unchanged;
// only the absolute frame moves. Used to display a dataset relative to one
// cluster's mean.
func RecenterQuats(qs []Quat, ref Quat) []Quat {
	inv := ref.Inv()
	out := make([]Quat, len(qs))
	for i, q := range qs {
		out[i] = inv.Mul(q)
	}
	return out
}
