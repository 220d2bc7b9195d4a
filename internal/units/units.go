// Package units provides shared angle unit handling for the pipeline.
// Internal computation is in radians everywhere; degrees only appear at the
// I/O boundary (CLI flags, .ang headers, plot labels).
package units

import (
	"fmt"
	"math"
)

// Unit constants
const (
	Rad = "rad"
	Deg = "deg"
)

// ValidUnits contains all valid angle unit values
var ValidUnits = []string{Rad, Deg}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "rad, deg"
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// ConvertAngle converts an angle held in radians to the target units.
// The pipeline stores all angles in radians; this converts them for display.
func ConvertAngle(rad float64, targetUnits string) (float64, error) {
	switch targetUnits {
	case Deg:
		return Degrees(rad), nil
	case Rad:
		return rad, nil
	default:
		return 0, fmt.Errorf("invalid angle units %q (valid: %s)", targetUnits, GetValidUnitsString())
	}
}

// FormatDegrees renders an angle held in radians as a degree string for
// labels and log lines.
func FormatDegrees(rad float64) string {
	return fmt.Sprintf("%.2f°", Degrees(rad))
}
