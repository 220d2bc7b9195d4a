package ebsd

import (
	"math"
	"testing"
)

const angleTol = 1e-9

// nearZeroTol absorbs the acos round-off blowup near zero angle: a dot
// product within 1e-16 of 1 still reports an angle of a few 1e-8.
const nearZeroTol = 1e-6

func TestFromAxisAngleAngle(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  float64
	}{
		{"zero", 0, 0},
		{"small", 0.05, 0.05},
		{"quarter turn", math.Pi / 2, math.Pi / 2},
		{"half turn", math.Pi, math.Pi},
		{"past half turn wraps", 3 * math.Pi / 2, math.Pi / 2},
		{"full turn", 2 * math.Pi, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := FromAxisAngle(0, 0, 1, tt.angle)
			if got := q.Angle(); math.Abs(got-tt.want) > angleTol {
				t.Errorf("Angle() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestMulInverse(t *testing.T) {
	q := FromEuler(0.7, 1.1, 2.3)
	id := q.Mul(q.Inv())
	if got := id.AngleTo(Identity); got > nearZeroTol {
		t.Errorf("q·q⁻¹ is %g rad from identity", got)
	}
}

func TestMulComposition(t *testing.T) {
	// Two successive z rotations compose by angle addition.
	a := FromAxisAngle(0, 0, 1, 0.4)
	b := FromAxisAngle(0, 0, 1, 0.9)
	want := FromAxisAngle(0, 0, 1, 1.3)
	if got := a.Mul(b).AngleTo(want); got > nearZeroTol {
		t.Errorf("composition off by %g rad", got)
	}
}

func TestAngleToSymmetric(t *testing.T) {
	a := FromEuler(0.3, 0.8, 1.9)
	b := FromEuler(2.1, 1.4, 0.2)
	if d1, d2 := a.AngleTo(b), b.AngleTo(a); math.Abs(d1-d2) > angleTol {
		t.Errorf("AngleTo not symmetric: %g vs %g", d1, d2)
	}
}

func TestAngleToDoubleCover(t *testing.T) {
	q := FromEuler(1.2, 0.6, 0.1)
	if d := q.AngleTo(q.Neg()); d > nearZeroTol {
		t.Errorf("q and -q should be the same rotation, got distance %g", d)
	}
}

func TestAngleToSelf(t *testing.T) {
	q := FromEuler(0.5, 0.5, 0.5)
	if d := q.AngleTo(q); d > nearZeroTol {
		t.Errorf("AngleTo(q, q) = %g, want ~0", d)
	}
}

func TestFromEulerRoundTrip(t *testing.T) {
	tests := []struct {
		name               string
		phi1, bigPhi, phi2 float64
	}{
		{"generic", 0.7, 1.1, 2.3},
		{"small angles", 0.1, 0.2, 0.3},
		{"large phi1", 5.9, 0.8, 0.4},
		{"phi near pi", 1.0, 3.0, 2.0},
		{"phi2 dominant", 0.2, 1.5, 5.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := FromEuler(tt.phi1, tt.bigPhi, tt.phi2)
			p1, p, p2 := q.Euler()
			back := FromEuler(p1, p, p2)
			if d := q.AngleTo(back); d > nearZeroTol {
				t.Errorf("round trip moved rotation by %g rad (got %g, %g, %g)", d, p1, p, p2)
			}
		})
	}
}

func TestEulerGimbalCases(t *testing.T) {
	// Phi = 0: the two in-plane angles collapse into phi1.
	q := FromEuler(1.0, 0, 0.5)
	p1, p, p2 := q.Euler()
	if math.Abs(p1-1.5) > angleTol || p != 0 || p2 != 0 {
		t.Errorf("Phi=0 case: got (%g, %g, %g), want (1.5, 0, 0)", p1, p, p2)
	}

	// Phi = pi.
	q = FromEuler(0.8, math.Pi, 0.3)
	p1, p, p2 = q.Euler()
	if math.Abs(p-math.Pi) > angleTol || p2 != 0 {
		t.Errorf("Phi=pi case: got (%g, %g, %g)", p1, p, p2)
	}
	back := FromEuler(p1, p, p2)
	if d := q.AngleTo(back); d > nearZeroTol {
		t.Errorf("Phi=pi round trip moved rotation by %g rad", d)
	}
}

func TestNormalize(t *testing.T) {
	q := Quat{W: 2, X: 0, Y: 0, Z: 0}.Normalize()
	if q != Identity {
		t.Errorf("normalized (2,0,0,0) = %+v, want identity", q)
	}

	q = Quat{W: 1, X: 1, Y: 1, Z: 1}.Normalize()
	if err := q.CheckUnit(); err != nil {
		t.Errorf("normalized quaternion fails unit check: %v", err)
	}

	if got := (Quat{}).Normalize(); got != Identity {
		t.Errorf("zero quaternion normalizes to %+v, want identity", got)
	}
}

func TestCheckUnit(t *testing.T) {
	if err := Identity.CheckUnit(); err != nil {
		t.Errorf("identity fails unit check: %v", err)
	}
	if err := (Quat{W: 1.1}).CheckUnit(); err == nil {
		t.Error("expected unit check failure for norm 1.1")
	}
}

func TestAxis(t *testing.T) {
	q := FromAxisAngle(0, 0, 1, 0.5)
	x, y, z := q.Axis()
	if math.Abs(x) > angleTol || math.Abs(y) > angleTol || math.Abs(z-1) > angleTol {
		t.Errorf("axis = (%g, %g, %g), want (0, 0, 1)", x, y, z)
	}

	// The negated representative reports the same physical axis.
	x, y, z = q.Neg().Axis()
	if math.Abs(z-1) > angleTol {
		t.Errorf("negated representative axis z = %g, want 1", z)
	}

	// Identity has no axis; the convention is +z.
	x, y, z = Identity.Axis()
	if x != 0 || y != 0 || z != 1 {
		t.Errorf("identity axis = (%g, %g, %g), want (0, 0, 1)", x, y, z)
	}
}

func TestMisorientation(t *testing.T) {
	a := FromEuler(0.4, 0.9, 1.7)
	b := FromEuler(1.3, 0.2, 0.6)
	m := Misorientation(a, b)
	if d := math.Abs(m.Angle() - a.AngleTo(b)); d > angleTol {
		t.Errorf("misorientation angle differs from AngleTo by %g", d)
	}
	// Applying the misorientation to a recovers b.
	if d := a.Mul(m).AngleTo(b); d > nearZeroTol {
		t.Errorf("a·m is %g rad from b", d)
	}
}

func TestFromRotationMatrixRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		q    Quat
	}{
		{"identity", Identity},
		{"generic", FromEuler(0.7, 1.1, 2.3)},
		{"near half turn x", FromAxisAngle(1, 0, 0, 3.1)},
		{"near half turn y", FromAxisAngle(0, 1, 0, 3.1)},
		{"near half turn z", FromAxisAngle(0, 0, 1, 3.1)},
		{"negative scalar part", FromEuler(5.9, 0.2, 0.1).Neg()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back := FromRotationMatrix(tt.q.RotationMatrix())
			if d := tt.q.AngleTo(back); d > nearZeroTol {
				t.Errorf("round trip moved rotation by %g rad", d)
			}
			if back.W < 0 {
				t.Errorf("scalar part %g, want canonical non-negative sign", back.W)
			}
		})
	}
}

func TestRotationMatrix(t *testing.T) {
	// 90° about z maps x to y.
	m := FromAxisAngle(0, 0, 1, math.Pi/2).RotationMatrix()
	// Column of the image of (1,0,0): entries m[0], m[3], m[6].
	got := [3]float64{m[0], m[3], m[6]}
	want := [3]float64{0, 1, 0}
	for i := range got {
		if math.Abs(got[i]-want[i]) > angleTol {
			t.Errorf("R·x component %d = %g, want %g", i, got[i], want[i])
		}
	}
}
