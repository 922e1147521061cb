package eoq

import (
	"github.com/operato/eoq-planner/pkg/constants"
)

// CurvePoint is one sampled (order quantity, annual cost) pair.
type CurvePoint struct {
	Quantity float64 `json:"quantity"`
	Cost     float64 `json:"cost"`
}

// CurveOptions controls the sampled window around Q*. Zero values take the
// defaults (50%–200% of Q*, 100 points).
type CurveOptions struct {
	RangeLow  float64 `json:"rangeLow,omitempty" yaml:"rangeLow"`
	RangeHigh float64 `json:"rangeHigh,omitempty" yaml:"rangeHigh"`
	Points    int     `json:"points,omitempty" yaml:"points"`
}

func (o CurveOptions) withDefaults() CurveOptions {
	if o.RangeLow == 0 {
		o.RangeLow = constants.DefaultCurveRangeLow
	}
	if o.RangeHigh == 0 {
		o.RangeHigh = constants.DefaultCurveRangeHigh
	}
	if o.Points == 0 {
		o.Points = constants.DefaultCurvePoints
	}
	return o
}

// SampleCostCurve evaluates the annual cost function at linearly spaced
// quantities across [Q*·RangeLow, Q*·RangeHigh]. The samples let callers plot
// the cost curve and cross-check convexity empirically against the analytic
// second derivative.
func SampleCostCurve(setupCost, effectiveHolding, demand, optimalQuantity float64, opts CurveOptions) ([]CurvePoint, error) {
	opts = opts.withDefaults()

	if optimalQuantity <= 0 {
		return nil, &InvalidParameterError{
			Parameter: "optimalQuantity", Value: optimalQuantity,
			Reason: "curve sampling requires a positive optimal quantity; the range collapses to a point",
		}
	}
	if opts.RangeLow <= 0 || opts.RangeHigh <= opts.RangeLow {
		return nil, &InvalidParameterError{
			Parameter: "rangeLow", Value: opts.RangeLow,
			Reason: "range factors must satisfy 0 < rangeLow < rangeHigh",
		}
	}
	if opts.Points < 2 {
		return nil, &InvalidParameterError{
			Parameter: "points", Value: float64(opts.Points),
			Reason: "at least two sample points are required",
		}
	}
	if setupCost <= 0 {
		return nil, &InvalidParameterError{
			Parameter: "setupCost", Value: setupCost,
			Reason: "setup cost must be strictly positive",
		}
	}
	if effectiveHolding <= 0 {
		return nil, &InvalidParameterError{
			Parameter: "holdingCost", Value: effectiveHolding,
			Reason: "effective holding cost must be strictly positive",
		}
	}
	if demand < 0 {
		return nil, &InvalidParameterError{
			Parameter: "demand", Value: demand,
			Reason: "annual demand cannot be negative",
		}
	}

	low := optimalQuantity * opts.RangeLow
	high := optimalQuantity * opts.RangeHigh
	step := (high - low) / float64(opts.Points-1)

	points := make([]CurvePoint, opts.Points)
	for i := range points {
		quantity := low + float64(i)*step
		points[i] = CurvePoint{
			Quantity: quantity,
			Cost:     TotalCost(setupCost, effectiveHolding, demand, quantity),
		}
	}
	return points, nil
}

// SampleResultCurves samples one cost curve per solved echelon, keyed by
// echelon name. Zero-demand solutions are skipped since they have no window
// to sample.
func SampleResultCurves(echelons []EchelonParameters, result Result, opts CurveOptions) (map[string][]CurvePoint, error) {
	curves := make(map[string][]CurvePoint, len(result.Echelons))
	for i, solution := range result.Echelons {
		if solution.OptimalQuantity == 0 {
			continue
		}
		points, err := SampleCostCurve(echelons[i].SetupCost, solution.EffectiveHoldingCost, result.Demand, solution.OptimalQuantity, opts)
		if err != nil {
			return nil, err
		}
		curves[solution.Name] = points
	}
	return curves, nil
}
