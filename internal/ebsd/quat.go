package ebsd

import (
	"fmt"
	"math"
)

// UnitNormTolerance is the allowed deviation from unit norm for quaternions
// entering the pipeline. Loaders normalize on ingest; this bound is only used
// for validation of externally supplied data.
const UnitNormTolerance = 1e-9

// Quat is a rotation expressed as a unit quaternion (W scalar part first).
// A Quat maps the reference crystal frame onto the observed crystal frame at
// one sample point. Values are immutable: every method returns a new Quat.
//
// q and -q describe the same physical rotation; functions that compare
// rotations account for this double cover.
type Quat struct {
	W, X, Y, Z float64
}

// Identity is the null rotation.
var Identity = Quat{W: 1}

// Mul returns the composition q·r (apply r first, then q).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Conj returns the conjugate (-x,-y,-z).
func (q Quat) Conj() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Inv returns the inverse rotation. For unit quaternions this is the
// conjugate.
func (q Quat) Inv() Quat {
	return q.Conj()
}

// Norm returns the Euclidean norm of the quaternion.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize returns q scaled to unit norm. The zero quaternion normalizes to
// the identity rotation.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n == 0 {
		return Identity
	}
	return Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Neg returns -q, the other representative of the same rotation.
func (q Quat) Neg() Quat {
	return Quat{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Dot returns the 4-component dot product with r.
func (q Quat) Dot(r Quat) float64 {
	return q.W*r.W + q.X*r.X + q.Y*r.Y + q.Z*r.Z
}

// Angle returns the rotation angle in radians, in [0, π].
//
// The scalar part is taken as an absolute value so the smaller of the two
// equivalent representations (q, -q) is always used. The acos argument is
// clamped so floating round-off never produces NaN.
func (q Quat) Angle() float64 {
	w := math.Abs(q.W)
	if w > 1 {
		w = 1
	}
	return 2 * math.Acos(w)
}

// AngleTo returns the rotation angle between q and r, i.e. the angle of the
// misorientation q⁻¹·r. Only the scalar part of the product is needed.
func (q Quat) AngleTo(r Quat) float64 {
	// Scalar part of q⁻¹·r equals the 4-component dot product.
	d := math.Abs(q.Dot(r))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Axis returns the unit rotation axis. The identity rotation has no
// well-defined axis; (0,0,1) is returned by convention.
func (q Quat) Axis() (x, y, z float64) {
	s := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if s == 0 {
		return 0, 0, 1
	}
	// Keep the axis paired with a non-negative scalar part.
	if q.W < 0 {
		s = -s
	}
	return q.X / s, q.Y / s, q.Z / s
}

// Misorientation returns the relative rotation a⁻¹·b between two
// orientations.
func Misorientation(a, b Quat) Quat {
	return a.Inv().Mul(b)
}

// FromAxisAngle builds the rotation of the given angle (radians) about the
// axis (x,y,z). The axis need not be normalized.
func FromAxisAngle(x, y, z, angle float64) Quat {
	n := math.Sqrt(x*x + y*y + z*z)
	if n == 0 {
		return Identity
	}
	s := math.Sin(angle/2) / n
	return Quat{
		W: math.Cos(angle / 2),
		X: x * s,
		Y: y * s,
		Z: z * s,
	}
}

// FromEuler builds an orientation from Bunge Euler angles (phi1, Phi, phi2)
// in radians, the Z-X-Z convention used by EBSD acquisition software.
func FromEuler(phi1, bigPhi, phi2 float64) Quat {
	sigma := (phi1 + phi2) / 2
	delta := (phi1 - phi2) / 2
	c := math.Cos(bigPhi / 2)
	s := math.Sin(bigPhi / 2)
	return Quat{
		W: c * math.Cos(sigma),
		X: s * math.Cos(delta),
		Y: s * math.Sin(delta),
		Z: c * math.Sin(sigma),
	}
}

// Euler returns Bunge Euler angles (phi1, Phi, phi2) in radians, with phi1
// and phi2 in [0, 2π) and Phi in [0, π]. The gimbal-locked cases (Phi = 0 or
// π) put the full in-plane rotation into phi1 and set phi2 to zero.
func (q Quat) Euler() (phi1, bigPhi, phi2 float64) {
	q03 := q.W*q.W + q.Z*q.Z
	q12 := q.X*q.X + q.Y*q.Y

	switch {
	case q12 < UnitNormTolerance:
		// Phi = 0: pure rotation about Z.
		return wrapTwoPi(2 * math.Atan2(q.Z, q.W)), 0, 0
	case q03 < UnitNormTolerance:
		// Phi = π.
		return wrapTwoPi(2 * math.Atan2(q.Y, q.X)), math.Pi, 0
	}

	bigPhi = 2 * math.Atan2(math.Sqrt(q12), math.Sqrt(q03))
	sum := math.Atan2(q.Z, q.W)  // (phi1+phi2)/2
	diff := math.Atan2(q.Y, q.X) // (phi1-phi2)/2
	return wrapTwoPi(sum + diff), bigPhi, wrapTwoPi(sum - diff)
}

// RotationMatrix returns the equivalent 3×3 rotation matrix in row-major
// order.
func (q Quat) RotationMatrix() [9]float64 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

// FromRotationMatrix builds the quaternion of a 3×3 rotation matrix in
// row-major order, using Shepperd's method: branch on the largest of the
// four squared components so the divisor is always well away from zero.
func FromRotationMatrix(m [9]float64) Quat {
	tr := m[0] + m[4] + m[8]
	var q Quat
	switch {
	case tr > m[0] && tr > m[4] && tr > m[8]:
		s := math.Sqrt(tr+1) * 2
		q = Quat{
			W: s / 4,
			X: (m[7] - m[5]) / s,
			Y: (m[2] - m[6]) / s,
			Z: (m[3] - m[1]) / s,
		}
	case m[0] > m[4] && m[0] > m[8]:
		s := math.Sqrt(1+m[0]-m[4]-m[8]) * 2
		q = Quat{
			W: (m[7] - m[5]) / s,
			X: s / 4,
			Y: (m[1] + m[3]) / s,
			Z: (m[2] + m[6]) / s,
		}
	case m[4] > m[8]:
		s := math.Sqrt(1+m[4]-m[0]-m[8]) * 2
		q = Quat{
			W: (m[2] - m[6]) / s,
			X: (m[1] + m[3]) / s,
			Y: s / 4,
			Z: (m[5] + m[7]) / s,
		}
	default:
		s := math.Sqrt(1+m[8]-m[0]-m[4]) * 2
		q = Quat{
			W: (m[3] - m[1]) / s,
			X: (m[2] + m[6]) / s,
			Y: (m[5] + m[7]) / s,
			Z: s / 4,
		}
	}
	q = q.Normalize()
	if q.W < 0 {
		q = q.Neg()
	}
	return q
}

// CheckUnit reports whether q is a unit quaternion within tolerance.
func (q Quat) CheckUnit() error {
	if math.Abs(q.Norm()-1) > UnitNormTolerance {
		return fmt.Errorf("quaternion norm %g is not unit", q.Norm())
	}
	return nil
}

// wrapTwoPi maps an angle into [0, 2π).
func wrapTwoPi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
