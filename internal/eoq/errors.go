package eoq

import "fmt"

// InvalidParameterError reports a violated precondition on optimizer inputs.
// No computation is performed for the offending echelon once raised.
type InvalidParameterError struct {
	Echelon   string
	Parameter string
	Value     float64
	Reason    string
}

func (e *InvalidParameterError) Error() string {
	if e.Echelon != "" {
		return fmt.Sprintf("invalid parameter %s=%v for echelon %s: %s", e.Parameter, e.Value, e.Echelon, e.Reason)
	}
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Parameter, e.Value, e.Reason)
}

// UnconvergedSolutionError reports that a computed quantity failed its
// second-derivative certification. Unreachable under the documented input
// guards; overflow on extreme inputs can still trip it.
type UnconvergedSolutionError struct {
	Echelon          string
	Quantity         float64
	SecondDerivative float64
}

func (e *UnconvergedSolutionError) Error() string {
	return fmt.Sprintf("solution for echelon %s did not certify as a minimum: Q=%v, second derivative=%v",
		e.Echelon, e.Quantity, e.SecondDerivative)
}
