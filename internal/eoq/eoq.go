// Package eoq solves the two-echelon Alkahtani-Davizon lot-sizing model: for
// each echelon it finds the order quantity minimizing
//
//	TotalCost(Q) = S·D/Q + h_eff·Q/2
//
// where h_eff is the defect-adjusted holding cost. The cost function is
// strictly convex on (0, ∞) for S > 0 and h_eff > 0, so the unique minimizer
// has the closed form Q* = sqrt(2·S·D/h_eff). Derivative diagnostics at Q*
// are computed explicitly and returned so callers can display and verify the
// minimum certification.
package eoq

import (
	"math"

	"github.com/operato/eoq-planner/pkg/mathutil"
	"go.uber.org/zap"
)

// AdjustmentPolicy selects how an echelon's defect rate adjusts its holding
// cost. The model literature uses both conventions; neither is defaulted.
type AdjustmentPolicy string

const (
	// PolicyDiscount applies h_eff = h·(1-α): scrapped units avoid carrying cost.
	PolicyDiscount AdjustmentPolicy = "discount"
	// PolicySurcharge applies h_eff = h·(1+α): defects add rework/replacement burden.
	PolicySurcharge AdjustmentPolicy = "surcharge"
)

// ParsePolicy converts a configuration string into an AdjustmentPolicy.
func ParsePolicy(value string) (AdjustmentPolicy, error) {
	switch AdjustmentPolicy(value) {
	case PolicyDiscount:
		return PolicyDiscount, nil
	case PolicySurcharge:
		return PolicySurcharge, nil
	default:
		return "", &InvalidParameterError{Parameter: "policy", Reason: "must be \"discount\" or \"surcharge\", got \"" + value + "\""}
	}
}

// EchelonParameters holds the cost structure of one supply-chain stage.
type EchelonParameters struct {
	Name        string  `json:"name,omitempty" yaml:"name"`
	SetupCost   float64 `json:"setupCost" yaml:"setupCost"`
	HoldingCost float64 `json:"holdingCost" yaml:"holdingCost"`
	DefectRate  float64 `json:"defectRate" yaml:"defectRate"`
}

// EffectiveHoldingCost returns the defect-adjusted per-unit-per-year carrying
// cost under the given policy. It does not validate inputs.
func (p EchelonParameters) EffectiveHoldingCost(policy AdjustmentPolicy) float64 {
	if policy == PolicySurcharge {
		return p.HoldingCost * (1 + p.DefectRate)
	}
	return p.HoldingCost * (1 - p.DefectRate)
}

// EchelonSolution is the solved lot size for one echelon together with the
// derivative diagnostics certifying it as a minimum. Quantities are in units,
// costs in the caller's currency per year.
type EchelonSolution struct {
	Name                 string  `json:"name,omitempty"`
	OptimalQuantity      float64 `json:"optimalQuantity"`
	EffectiveHoldingCost float64 `json:"effectiveHoldingCost"`
	AnnualCost           float64 `json:"annualCost"`
	FirstDerivative      float64 `json:"firstDerivative"`
	SecondDerivative     float64 `json:"secondDerivative"`
	// DerivativesDefined is false for the zero-demand solution, where the
	// derivative expressions would divide by zero.
	DerivativesDefined bool `json:"derivativesDefined"`
}

// Result aggregates the independently solved echelons of one optimization
// run. It is constructed once per Optimize call and never mutated.
type Result struct {
	Policy             AdjustmentPolicy  `json:"policy"`
	Demand             float64           `json:"demand"`
	Echelons           []EchelonSolution `json:"echelons"`
	TotalCost          float64           `json:"totalCost"`
	SetupCostTotal     float64           `json:"setupCostTotal"`
	HoldingCostAverage float64           `json:"holdingCostAverage"`
}

// SolveEchelon computes the cost-minimizing order quantity for a single
// echelon. demand is annualized units; it is the only input the optimizer
// does not own, and how it was derived is the caller's concern.
func SolveEchelon(params EchelonParameters, demand float64, policy AdjustmentPolicy) (EchelonSolution, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return EchelonSolution{}, err
	}
	if params.SetupCost <= 0 {
		return EchelonSolution{}, &InvalidParameterError{
			Echelon: params.Name, Parameter: "setupCost", Value: params.SetupCost,
			Reason: "setup cost must be strictly positive",
		}
	}
	if params.DefectRate < 0 || params.DefectRate >= 1 {
		return EchelonSolution{}, &InvalidParameterError{
			Echelon: params.Name, Parameter: "defectRate", Value: params.DefectRate,
			Reason: "defect rate must be in [0, 1)",
		}
	}
	if params.HoldingCost <= 0 {
		return EchelonSolution{}, &InvalidParameterError{
			Echelon: params.Name, Parameter: "holdingCost", Value: params.HoldingCost,
			Reason: "holding cost must be strictly positive, otherwise no finite optimum exists",
		}
	}
	if demand < 0 {
		return EchelonSolution{}, &InvalidParameterError{
			Echelon: params.Name, Parameter: "demand", Value: demand,
			Reason: "annual demand cannot be negative",
		}
	}

	effectiveHolding := params.EffectiveHoldingCost(policy)
	if effectiveHolding <= 0 {
		return EchelonSolution{}, &InvalidParameterError{
			Echelon: params.Name, Parameter: "holdingCost", Value: effectiveHolding,
			Reason: "defect-adjusted holding cost must be strictly positive, otherwise no finite optimum exists",
		}
	}

	// No demand means no ordering; the derivative expressions would divide
	// by zero, so they are reported as undefined instead.
	if demand == 0 {
		return EchelonSolution{
			Name:                 params.Name,
			EffectiveHoldingCost: effectiveHolding,
		}, nil
	}

	quantity := math.Sqrt(2 * params.SetupCost * demand / effectiveHolding)
	if !mathutil.IsFinite(quantity) || quantity <= 0 {
		return EchelonSolution{}, &UnconvergedSolutionError{Echelon: params.Name, Quantity: quantity}
	}

	solution := EchelonSolution{
		Name:                 params.Name,
		OptimalQuantity:      quantity,
		EffectiveHoldingCost: effectiveHolding,
		AnnualCost:           TotalCost(params.SetupCost, effectiveHolding, demand, quantity),
		FirstDerivative:      -params.SetupCost*demand/(quantity*quantity) + effectiveHolding/2,
		SecondDerivative:     2 * params.SetupCost * demand / (quantity * quantity * quantity),
		DerivativesDefined:   true,
	}

	// Certify the minimum. Algebraically guaranteed given the guards above;
	// reachable only through overflow on extreme inputs.
	if !(solution.SecondDerivative > 0) || !mathutil.IsFinite(solution.SecondDerivative) {
		return EchelonSolution{}, &UnconvergedSolutionError{
			Echelon:          params.Name,
			Quantity:         quantity,
			SecondDerivative: solution.SecondDerivative,
		}
	}

	return solution, nil
}

// TotalCost evaluates the annual cost function S·D/Q + h_eff·Q/2 at an
// arbitrary order quantity Q > 0.
func TotalCost(setupCost, effectiveHolding, demand, quantity float64) float64 {
	return setupCost*demand/quantity + effectiveHolding*quantity/2
}

// Optimize solves every echelon independently and sums their annual costs.
// The call is atomic: if any echelon fails validation, no partial result is
// returned, since a cost comparison over a partially solved system is
// meaningless.
func Optimize(logger *zap.Logger, echelons []EchelonParameters, demand float64, policy AdjustmentPolicy) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(echelons) == 0 {
		return Result{}, &InvalidParameterError{Parameter: "echelons", Reason: "at least one echelon is required"}
	}

	result := Result{
		Policy:   policy,
		Demand:   demand,
		Echelons: make([]EchelonSolution, 0, len(echelons)),
	}

	for _, params := range echelons {
		solution, err := SolveEchelon(params, demand, policy)
		if err != nil {
			return Result{}, err
		}
		result.Echelons = append(result.Echelons, solution)
		result.TotalCost += solution.AnnualCost
		result.SetupCostTotal += params.SetupCost
		result.HoldingCostAverage += params.HoldingCost

		logger.Debug("solved echelon",
			zap.String("op", "eoq.Optimize"),
			zap.String("echelon", params.Name),
			zap.Float64("optimalQuantity", solution.OptimalQuantity),
			zap.Float64("effectiveHoldingCost", solution.EffectiveHoldingCost),
			zap.Float64("annualCost", solution.AnnualCost),
		)
	}
	result.HoldingCostAverage /= float64(len(echelons))

	return result, nil
}
