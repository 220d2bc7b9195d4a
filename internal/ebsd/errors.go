package ebsd

import "errors"

// Error categories. Configuration errors mean the caller supplied invalid
// parameters or ill-formed input and are always raised before any
// computation begins. Resource errors mean a strategy was selected that
// cannot run within the configured memory budget; the caller should pick a
// cheaper strategy rather than retry.
var (
	// ErrInvalidConfig marks invalid parameters, mismatched shapes, unknown
	// symmetry groups and ill-formed distance matrices.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMemoryBudget marks a strategy whose working-set estimate exceeds
	// the configured budget.
	ErrMemoryBudget = errors.New("memory budget exceeded")
)
