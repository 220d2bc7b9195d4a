package ebsd

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Group is a finite crystallographic point group of proper rotations. All
// operators in a group are physically indistinguishable transformations of
// the crystal lattice. Groups are fixed at package init and never mutated.
type Group struct {
	Name string
	Ops  []Quat
}

// Order returns the number of rotation operators in the group.
func (g Group) Order() int {
	return len(g.Ops)
}

// Built-in proper rotation groups. The names follow Schoenflies notation;
// GroupByName also accepts the international (Hermann-Mauguin) symbol.
var (
	// GroupC1 is the triclinic group: identity only.
	GroupC1 = Group{Name: "C1", Ops: []Quat{Identity}}

	// GroupD2 is the orthorhombic 222 group: three orthogonal two-folds.
	GroupD2 = Group{Name: "D2", Ops: buildD2()}

	// GroupD4 is the tetragonal 422 group.
	GroupD4 = Group{Name: "D4", Ops: buildD4()}

	// GroupD6 is the hexagonal 622 group, e.g. alpha-titanium.
	GroupD6 = Group{Name: "D6", Ops: buildD6()}

	// GroupO is the cubic 432 group.
	GroupO = Group{Name: "O", Ops: buildO()}
)

var groupsByName = map[string]Group{
	"c1":           GroupC1,
	"1":            GroupC1,
	"triclinic":    GroupC1,
	"d2":           GroupD2,
	"222":          GroupD2,
	"orthorhombic": GroupD2,
	"d4":           GroupD4,
	"422":          GroupD4,
	"tetragonal":   GroupD4,
	"d6":           GroupD6,
	"622":          GroupD6,
	"hexagonal":    GroupD6,
	"o":            GroupO,
	"432":          GroupO,
	"cubic":        GroupO,
}

// GroupByName resolves a symmetry group identifier. Unknown identifiers are
// a configuration error and are rejected before any computation begins.
func GroupByName(name string) (Group, error) {
	g, ok := groupsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Group{}, fmt.Errorf("%w: unknown symmetry group %q (valid: %s)",
			ErrInvalidConfig, name, ValidGroupNames())
	}
	return g, nil
}

// ValidGroupNames returns a comma-separated list of accepted group
// identifiers for error messages and CLI usage text.
func ValidGroupNames() string {
	names := make([]string, 0, len(groupsByName))
	for n := range groupsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func buildD2() []Quat {
	return []Quat{
		Identity,
		FromAxisAngle(1, 0, 0, math.Pi),
		FromAxisAngle(0, 1, 0, math.Pi),
		FromAxisAngle(0, 0, 1, math.Pi),
	}
}

func buildD4() []Quat {
	ops := make([]Quat, 0, 8)
	// Four-fold about Z.
	for k := 0; k < 4; k++ {
		ops = append(ops, FromAxisAngle(0, 0, 1, float64(k)*math.Pi/2))
	}
	// Two-folds about X, Y and the two in-plane diagonals.
	ops = append(ops,
		FromAxisAngle(1, 0, 0, math.Pi),
		FromAxisAngle(0, 1, 0, math.Pi),
		FromAxisAngle(1, 1, 0, math.Pi),
		FromAxisAngle(1, -1, 0, math.Pi),
	)
	return ops
}

func buildD6() []Quat {
	ops := make([]Quat, 0, 12)
	// Six-fold about Z (the hexagonal c axis).
	for k := 0; k < 6; k++ {
		ops = append(ops, FromAxisAngle(0, 0, 1, float64(k)*math.Pi/3))
	}
	// Six two-folds in the basal plane at 30° increments.
	for k := 0; k < 6; k++ {
		a := float64(k) * math.Pi / 6
		ops = append(ops, FromAxisAngle(math.Cos(a), math.Sin(a), 0, math.Pi))
	}
	return ops
}

func buildO() []Quat {
	ops := make([]Quat, 0, 24)
	ops = append(ops, Identity)
	// 90/180/270 about the three cube axes.
	axes := [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, ax := range axes {
		for k := 1; k <= 3; k++ {
			ops = append(ops, FromAxisAngle(ax[0], ax[1], ax[2], float64(k)*math.Pi/2))
		}
	}
	// 120/240 about the four body diagonals.
	diag := [][3]float64{{1, 1, 1}, {1, 1, -1}, {1, -1, 1}, {-1, 1, 1}}
	for _, ax := range diag {
		for _, a := range []float64{2 * math.Pi / 3, 4 * math.Pi / 3} {
			ops = append(ops, FromAxisAngle(ax[0], ax[1], ax[2], a))
		}
	}
	// 180 about the six face diagonals.
	face := [][3]float64{{1, 1, 0}, {1, -1, 0}, {1, 0, 1}, {1, 0, -1}, {0, 1, 1}, {0, 1, -1}}
	for _, ax := range face {
		ops = append(ops, FromAxisAngle(ax[0], ax[1], ax[2], math.Pi))
	}
	return ops
}
