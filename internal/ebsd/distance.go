package ebsd

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Strategy selects how the symmetry-reduced distance matrix is materialized.
// All computing strategies produce numerically identical matrices (within
// SymmetryTolerance); they trade memory for constant-factor speed. The
// costly full-tensor path must be opted into explicitly; there are no
// interactive confirmations.
type Strategy int

const (
	// StrategyRowAtATime expands one side's symmetry variants once and
	// processes output rows independently. Memory is bounded by the
	// expanded side plus one row per worker. This is the default.
	StrategyRowAtATime Strategy = iota

	// StrategyFullTensor materializes the complete angle tensor before
	// reducing over the symmetry axis. Simplest and fastest for small
	// inputs; the working set grows as n·m·|G| and is checked against the
	// memory budget before any allocation.
	StrategyFullTensor

	// StrategyPairwise evaluates each unordered pair on the fly, writing
	// (i,j) and (j,i) from one evaluation. Lowest memory, highest
	// per-pair overhead; only valid for self-distance matrices.
	StrategyPairwise

	// StrategyPrecomputed skips computation entirely: the caller supplies
	// a matrix produced earlier by an equivalent procedure. The matrix is
	// validated but its values are trusted.
	StrategyPrecomputed
)

// String returns the CLI name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyFullTensor:
		return "full-tensor"
	case StrategyRowAtATime:
		return "row-at-a-time"
	case StrategyPairwise:
		return "pairwise"
	case StrategyPrecomputed:
		return "precomputed"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy resolves a strategy name from configuration or flags.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "row-at-a-time", "row", "rows":
		return StrategyRowAtATime, nil
	case "full-tensor", "full", "tensor":
		return StrategyFullTensor, nil
	case "pairwise", "pairs":
		return StrategyPairwise, nil
	case "precomputed", "matrix":
		return StrategyPrecomputed, nil
	}
	return 0, fmt.Errorf("%w: unknown strategy %q (valid: full-tensor, row-at-a-time, pairwise, precomputed)",
		ErrInvalidConfig, name)
}

// DefaultMemoryBudgetBytes bounds the full-tensor working set unless the
// caller configures a budget explicitly.
const DefaultMemoryBudgetBytes = 2 << 30 // 2 GiB

const (
	quatBytes  = 32 // four float64 components
	floatBytes = 8
)

// MemoryEstimate returns the approximate working-set size in bytes for
// computing an n×m matrix with symCount symmetry variants per pair. Callers
// use the estimate to pick a feasible strategy before committing.
//
//	full-tensor:   8·n·m·symCount (angle tensor) + 32·m·symCount + 8·n·m
//	row-at-a-time: 32·m·symCount (expanded side) + 8·symCount·workers + 8·n·m
//	pairwise:      8·n·m (output only)
//	precomputed:   8·n·m (loaded matrix)
func MemoryEstimate(s Strategy, n, m, symCount, workers int) uint64 {
	out := uint64(floatBytes) * uint64(n) * uint64(m)
	switch s {
	case StrategyFullTensor:
		return uint64(floatBytes)*uint64(n)*uint64(m)*uint64(symCount) +
			uint64(quatBytes)*uint64(m)*uint64(symCount) + out
	case StrategyRowAtATime:
		if workers < 1 {
			workers = 1
		}
		return uint64(quatBytes)*uint64(m)*uint64(symCount) +
			uint64(floatBytes)*uint64(symCount)*uint64(workers) + out
	default:
		return out
	}
}

// DistanceParams configures a DistanceComputer.
type DistanceParams struct {
	Strategy Strategy

	// Workers bounds the row-at-a-time worker pool. Zero means one worker
	// per CPU. Other strategies are single-threaded.
	Workers int

	// MemoryBudgetBytes caps the strategy working set. Zero applies
	// DefaultMemoryBudgetBytes.
	MemoryBudgetBytes uint64
}

// DistanceComputer produces symmetry-reduced angular distance matrices over
// orientation or misorientation sets.
type DistanceComputer struct {
	params DistanceParams
}

// NewDistanceComputer validates the parameters and returns a computer.
func NewDistanceComputer(p DistanceParams) (*DistanceComputer, error) {
	if p.Strategy < StrategyRowAtATime || p.Strategy > StrategyPrecomputed {
		return nil, fmt.Errorf("%w: strategy %d", ErrInvalidConfig, int(p.Strategy))
	}
	if p.Workers < 0 {
		return nil, fmt.Errorf("%w: workers %d", ErrInvalidConfig, p.Workers)
	}
	if p.Workers == 0 {
		p.Workers = runtime.NumCPU()
	}
	if p.MemoryBudgetBytes == 0 {
		p.MemoryBudgetBytes = DefaultMemoryBudgetBytes
	}
	return &DistanceComputer{params: p}, nil
}

// Params returns the effective parameters after defaulting.
func (dc *DistanceComputer) Params() DistanceParams {
	return dc.params
}

// OrientationMatrix computes the symmetric self-distance matrix over a set
// of orientations sharing one symmetry group g. Entry (i,j) is
//
//	min over h in G of angle(qᵢ⁻¹ · qⱼ · h)
//
// Symmetry acting on the crystal frame of both orientations expands to a
// two-sided search u·(qᵢ⁻¹qⱼ)·v, but the rotation angle is invariant under
// cyclic permutation of a quaternion product, so u·m·v and m·(v·u) have the
// same angle and the closed group absorbs the pair into a single operator.
// This also makes the metric exactly invariant under recentering: a common
// left factor cancels inside qᵢ⁻¹·qⱼ.
func (dc *DistanceComputer) OrientationMatrix(qs []Quat, g Group) (*Matrix, error) {
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: empty orientation set", ErrInvalidConfig)
	}
	if g.Order() == 0 {
		return nil, fmt.Errorf("%w: empty symmetry group", ErrInvalidConfig)
	}
	return dc.selfMatrix(qs, g.Ops)
}

// MisorientationMatrix computes the symmetric self-distance matrix over a
// set of misorientations. Symmetry acts on both crystal frames, so each
// candidate is g1·mᵢ·g2 for g1 in left and g2 in right, and entry (i,j) is
// the minimum angle between any candidate of mᵢ and mⱼ. One side expanded
// over both groups covers the search because the metric is invariant under
// a common symmetry action on both arguments.
func (dc *DistanceComputer) MisorientationMatrix(ms []Quat, left, right Group) (*Matrix, error) {
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: empty misorientation set", ErrInvalidConfig)
	}
	if left.Order() == 0 || right.Order() == 0 {
		return nil, fmt.Errorf("%w: empty symmetry group", ErrInvalidConfig)
	}
	// Candidates are applied per element during expansion: both groups on
	// the expanded side, |left|·|right| variants per misorientation.
	return dc.selfMatrixTwoSided(ms, left.Ops, right.Ops)
}

// selfMatrix runs the configured strategy for the single-group case, where
// the variant set of element q is {q·h : h in ops}.
func (dc *DistanceComputer) selfMatrix(qs []Quat, ops []Quat) (*Matrix, error) {
	expand := func(q Quat, dst []Quat) {
		for k, h := range ops {
			dst[k] = q.Mul(h)
		}
	}
	return dc.run(qs, len(ops), expand)
}

// selfMatrixTwoSided runs the configured strategy for the two-group case,
// where the variant set of element m is {g1·m·g2}.
func (dc *DistanceComputer) selfMatrixTwoSided(ms []Quat, left, right []Quat) (*Matrix, error) {
	expand := func(m Quat, dst []Quat) {
		k := 0
		for _, g1 := range left {
			gm := g1.Mul(m)
			for _, g2 := range right {
				dst[k] = gm.Mul(g2)
				k++
			}
		}
	}
	return dc.run(ms, len(left)*len(right), expand)
}

// run dispatches on strategy. expand writes the symCount symmetry variants
// of one element into dst.
func (dc *DistanceComputer) run(qs []Quat, symCount int, expand func(Quat, []Quat)) (*Matrix, error) {
	n := len(qs)

	if dc.params.Strategy == StrategyPrecomputed {
		return nil, fmt.Errorf("%w: precomputed strategy requires a supplied matrix; load it and call Matrix.Validate",
			ErrInvalidConfig)
	}

	est := MemoryEstimate(dc.params.Strategy, n, n, symCount, dc.params.Workers)
	if est > dc.params.MemoryBudgetBytes {
		return nil, fmt.Errorf("%w: %s needs ~%d bytes for n=%d |G|=%d, budget %d",
			ErrMemoryBudget, dc.params.Strategy, est, n, symCount, dc.params.MemoryBudgetBytes)
	}

	switch dc.params.Strategy {
	case StrategyFullTensor:
		return dc.fullTensor(qs, symCount, expand), nil
	case StrategyRowAtATime:
		return dc.rowAtATime(qs, symCount, expand), nil
	case StrategyPairwise:
		return dc.pairwise(qs, symCount, expand), nil
	}
	return nil, fmt.Errorf("%w: strategy %d", ErrInvalidConfig, int(dc.params.Strategy))
}

// expandAll materializes the symmetry variants of every element:
// exp[j*symCount+k] is variant k of element j.
func expandAll(qs []Quat, symCount int, expand func(Quat, []Quat)) []Quat {
	exp := make([]Quat, len(qs)*symCount)
	for j, q := range qs {
		expand(q, exp[j*symCount:(j+1)*symCount])
	}
	return exp
}

// fullTensor materializes every angle before reducing over the symmetry
// axis. The budget check in run guarantees the tensor fits.
func (dc *DistanceComputer) fullTensor(qs []Quat, symCount int, expand func(Quat, []Quat)) *Matrix {
	n := len(qs)
	exp := expandAll(qs, symCount, expand)

	tensor := make([]float64, n*n*symCount)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			base := (i*n + j) * symCount
			for k := 0; k < symCount; k++ {
				tensor[base+k] = qs[i].AngleTo(exp[j*symCount+k])
			}
		}
	}

	out := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j == i {
				// Round-off through the identity variant would leave a
				// near-zero residue here; the diagonal is zero by contract.
				continue
			}
			base := (i*n + j) * symCount
			out.Set(i, j, floats.Min(tensor[base:base+symCount]))
		}
	}
	return out
}

// rowAtATime expands the right side once, then fills output rows in
// parallel. Each worker owns disjoint rows of the output, so no locking is
// needed.
func (dc *DistanceComputer) rowAtATime(qs []Quat, symCount int, expand func(Quat, []Quat)) *Matrix {
	n := len(qs)
	exp := expandAll(qs, symCount, expand)
	out := NewMatrix(n, n)

	workers := dc.params.Workers
	if workers > n {
		workers = n
	}

	rowCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]float64, symCount)
			for i := range rowCh {
				row := out.Row(i)
				for j := 0; j < n; j++ {
					if j == i {
						row[j] = 0
						continue
					}
					for k := 0; k < symCount; k++ {
						buf[k] = qs[i].AngleTo(exp[j*symCount+k])
					}
					row[j] = floats.Min(buf)
				}
			}
		}()
	}
	for i := 0; i < n; i++ {
		rowCh <- i
	}
	close(rowCh)
	wg.Wait()
	return out
}

// pairwise walks unordered pairs i ≤ j, expanding only the single element
// under comparison and writing both mirror entries. Note the independent i
// and j indices: each pair is addressed by its own row and column, never by
// one shared counter.
func (dc *DistanceComputer) pairwise(qs []Quat, symCount int, expand func(Quat, []Quat)) *Matrix {
	n := len(qs)
	out := NewMatrix(n, n)
	variants := make([]Quat, symCount)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			expand(qs[j], variants)
			min := qs[i].AngleTo(variants[0])
			for k := 1; k < symCount; k++ {
				if d := qs[i].AngleTo(variants[k]); d < min {
					min = d
				}
			}
			out.Set(i, j, min)
			out.Set(j, i, min)
		}
	}
	return out
}
