// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/operato/eoq-planner/internal/eoq"
)

// HighDefectRateThreshold flags defect rates that are legal but usually
// indicate a data-entry mistake (rates are fractions, not percentages).
const HighDefectRateThreshold = 0.5

// ValidateEchelons checks the echelon list for configurations that will fail
// in the optimizer or that look like unit mistakes, returning human-readable
// warnings.
func ValidateEchelons(echelons []eoq.EchelonParameters) []string {
	var warnings []string

	if len(echelons) == 0 {
		warnings = append(warnings, "No echelons configured - optimization will fail")
		return warnings
	}

	seen := make(map[string]bool, len(echelons))
	for _, echelon := range echelons {
		name := echelon.Name
		if name == "" {
			warnings = append(warnings, "Echelon with empty name - results will be hard to attribute")
			name = "(unnamed)"
		} else if seen[name] {
			warnings = append(warnings, fmt.Sprintf("Duplicate echelon name '%s' - history and curves will collide", name))
		}
		seen[name] = true

		if echelon.SetupCost <= 0 {
			warnings = append(warnings, fmt.Sprintf("Echelon '%s' has non-positive setup cost (%v) - optimization will fail", name, echelon.SetupCost))
		}
		if echelon.HoldingCost <= 0 {
			warnings = append(warnings, fmt.Sprintf("Echelon '%s' has non-positive holding cost (%v) - optimization will fail", name, echelon.HoldingCost))
		}
		if echelon.DefectRate < 0 || echelon.DefectRate >= 1 {
			warnings = append(warnings, fmt.Sprintf("Echelon '%s' has defect rate %v outside [0, 1) - optimization will fail", name, echelon.DefectRate))
		} else if echelon.DefectRate > HighDefectRateThreshold {
			warnings = append(warnings, fmt.Sprintf("Echelon '%s' has defect rate %v - did you mean a fraction rather than a percentage?", name, echelon.DefectRate))
		}
	}

	return warnings
}

// ValidateCurve checks curve-sampling settings for ranges the sampler will
// reject.
func ValidateCurve(enabled bool, rangeLow, rangeHigh float64, points int) []string {
	if !enabled {
		return nil
	}

	var warnings []string
	if rangeLow < 0 || (rangeHigh != 0 && rangeLow != 0 && rangeHigh <= rangeLow) {
		warnings = append(warnings, fmt.Sprintf("Curve range [%v, %v] is not a valid window around Q*", rangeLow, rangeHigh))
	}
	if points < 0 || points == 1 {
		warnings = append(warnings, fmt.Sprintf("Curve sampling needs at least two points, got %d", points))
	}
	return warnings
}

// ValidateOutputFormat checks that the requested output format is supported.
func ValidateOutputFormat(format string) error {
	switch format {
	case "pretty", "csv":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (expected pretty or csv)", format)
	}
}
