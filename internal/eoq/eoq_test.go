package eoq

import (
	"errors"
	"math"
	"testing"

	"github.com/operato/eoq-planner/pkg/constants"
	"github.com/operato/eoq-planner/pkg/mathutil"
	"go.uber.org/zap"
)

func solveOrFatal(t *testing.T, params EchelonParameters, demand float64, policy AdjustmentPolicy) EchelonSolution {
	t.Helper()
	solution, err := SolveEchelon(params, demand, policy)
	if err != nil {
		t.Fatalf("SolveEchelon(%+v, D=%v, %s) failed: %v", params, demand, policy, err)
	}
	return solution
}

func TestSolveEchelonClosedForm(t *testing.T) {
	cases := []struct {
		name   string
		params EchelonParameters
		demand float64
		policy AdjustmentPolicy
	}{
		{"metal discount", EchelonParameters{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05}, 2000, PolicyDiscount},
		{"glass discount", EchelonParameters{Name: "glass", SetupCost: 180, HoldingCost: 1.8, DefectRate: 0.04}, 2000, PolicyDiscount},
		{"metal surcharge", EchelonParameters{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05}, 1000, PolicySurcharge},
		{"zero defect", EchelonParameters{Name: "plain", SetupCost: 50, HoldingCost: 5, DefectRate: 0}, 365, PolicyDiscount},
		{"large demand", EchelonParameters{Name: "bulk", SetupCost: 1000, HoldingCost: 0.25, DefectRate: 0.1}, 1e7, PolicySurcharge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			solution := solveOrFatal(t, tc.params, tc.demand, tc.policy)

			wantHolding := tc.params.HoldingCost * (1 - tc.params.DefectRate)
			if tc.policy == PolicySurcharge {
				wantHolding = tc.params.HoldingCost * (1 + tc.params.DefectRate)
			}
			if math.Abs(solution.EffectiveHoldingCost-wantHolding) > 1e-12 {
				t.Errorf("effective holding cost = %v, want %v", solution.EffectiveHoldingCost, wantHolding)
			}

			wantQuantity := math.Sqrt(2 * tc.params.SetupCost * tc.demand / wantHolding)
			if !mathutil.WithinRelativeTolerance(solution.OptimalQuantity, wantQuantity, constants.RelativeTolerance) {
				t.Errorf("optimal quantity = %v, want %v", solution.OptimalQuantity, wantQuantity)
			}

			wantCost := tc.params.SetupCost*tc.demand/wantQuantity + wantHolding*wantQuantity/2
			if !mathutil.WithinRelativeTolerance(solution.AnnualCost, wantCost, constants.RelativeTolerance) {
				t.Errorf("annual cost = %v, want %v", solution.AnnualCost, wantCost)
			}
		})
	}
}

func TestSolveEchelonDerivativeDiagnostics(t *testing.T) {
	params := EchelonParameters{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05}
	for _, policy := range []AdjustmentPolicy{PolicyDiscount, PolicySurcharge} {
		for _, demand := range []float64{1, 250, 2000, 1e6} {
			solution := solveOrFatal(t, params, demand, policy)
			if !solution.DerivativesDefined {
				t.Fatalf("derivatives should be defined for D=%v", demand)
			}
			if math.Abs(solution.FirstDerivative) >= constants.DerivativeTolerance {
				t.Errorf("first derivative at Q* = %v, want ~0 (policy=%s, D=%v)", solution.FirstDerivative, policy, demand)
			}
			if solution.SecondDerivative <= 0 {
				t.Errorf("second derivative at Q* = %v, want > 0 (policy=%s, D=%v)", solution.SecondDerivative, policy, demand)
			}
		}
	}
}

func TestSolveEchelonMonotonicity(t *testing.T) {
	base := EchelonParameters{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05}
	baseline := solveOrFatal(t, base, 2000, PolicyDiscount)

	higherSetup := base
	higherSetup.SetupCost = 400
	if got := solveOrFatal(t, higherSetup, 2000, PolicyDiscount); got.OptimalQuantity <= baseline.OptimalQuantity {
		t.Errorf("raising setup cost should raise Q*: got %v <= %v", got.OptimalQuantity, baseline.OptimalQuantity)
	}

	if got := solveOrFatal(t, base, 4000, PolicyDiscount); got.OptimalQuantity <= baseline.OptimalQuantity {
		t.Errorf("raising demand should raise Q*: got %v <= %v", got.OptimalQuantity, baseline.OptimalQuantity)
	}

	higherHolding := base
	higherHolding.HoldingCost = 4.0
	if got := solveOrFatal(t, higherHolding, 2000, PolicyDiscount); got.OptimalQuantity >= baseline.OptimalQuantity {
		t.Errorf("raising holding cost should lower Q*: got %v >= %v", got.OptimalQuantity, baseline.OptimalQuantity)
	}
}

func TestSolveEchelonGuards(t *testing.T) {
	valid := EchelonParameters{Name: "metal", SetupCost: 10, HoldingCost: 2, DefectRate: 0}

	cases := []struct {
		name      string
		mutate    func(*EchelonParameters)
		demand    float64
		parameter string
	}{
		{"zero holding cost", func(p *EchelonParameters) { p.HoldingCost = 0 }, 100, "holdingCost"},
		{"negative holding cost", func(p *EchelonParameters) { p.HoldingCost = -1 }, 100, "holdingCost"},
		{"zero setup cost", func(p *EchelonParameters) { p.SetupCost = 0 }, 100, "setupCost"},
		{"negative setup cost", func(p *EchelonParameters) { p.SetupCost = -5 }, 100, "setupCost"},
		{"defect rate of one", func(p *EchelonParameters) { p.DefectRate = 1 }, 100, "defectRate"},
		{"negative defect rate", func(p *EchelonParameters) { p.DefectRate = -0.1 }, 100, "defectRate"},
		{"negative demand", func(p *EchelonParameters) {}, -1, "demand"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := valid
			tc.mutate(&params)
			_, err := SolveEchelon(params, tc.demand, PolicyDiscount)
			var invalid *InvalidParameterError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidParameterError, got %v", err)
			}
			if invalid.Parameter != tc.parameter {
				t.Errorf("offending parameter = %q, want %q", invalid.Parameter, tc.parameter)
			}
		})
	}
}

func TestSolveEchelonNearUnityDefectRate(t *testing.T) {
	// α just under 1 keeps h·(1-α) positive, so a finite optimum still
	// exists; it is just very large.
	params := EchelonParameters{Name: "metal", SetupCost: 10, HoldingCost: 2, DefectRate: 0.999999}
	solution := solveOrFatal(t, params, 100, PolicyDiscount)
	if solution.EffectiveHoldingCost <= 0 {
		t.Fatalf("effective holding cost should remain positive, got %v", solution.EffectiveHoldingCost)
	}
	if solution.SecondDerivative <= 0 {
		t.Fatalf("second derivative = %v, want > 0", solution.SecondDerivative)
	}
}

func TestSolveEchelonOverflowFailsCertification(t *testing.T) {
	// 2·S·D overflows float64, so the closed form yields +Inf and the
	// certification step must reject it rather than return a solution.
	params := EchelonParameters{Name: "metal", SetupCost: 1e308, HoldingCost: 2, DefectRate: 0.05}
	_, err := SolveEchelon(params, 1e308, PolicyDiscount)
	var unconverged *UnconvergedSolutionError
	if !errors.As(err, &unconverged) {
		t.Fatalf("expected UnconvergedSolutionError, got %v", err)
	}
	if unconverged.Echelon != "metal" {
		t.Errorf("offending echelon = %q, want %q", unconverged.Echelon, "metal")
	}

	result, err := Optimize(zap.NewNop(), []EchelonParameters{params}, 1e308, PolicyDiscount)
	if !errors.As(err, &unconverged) {
		t.Fatalf("Optimize should surface UnconvergedSolutionError, got %v", err)
	}
	if len(result.Echelons) != 0 || result.TotalCost != 0 {
		t.Errorf("expected zero-value result on failure, got %+v", result)
	}
}

func TestSolveEchelonPolicyDivergence(t *testing.T) {
	params := EchelonParameters{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05}

	discount := solveOrFatal(t, params, 1000, PolicyDiscount)
	surcharge := solveOrFatal(t, params, 1000, PolicySurcharge)

	if math.Abs(discount.EffectiveHoldingCost-1.9) > 1e-12 {
		t.Errorf("discount effective holding = %v, want 1.9", discount.EffectiveHoldingCost)
	}
	if math.Abs(surcharge.EffectiveHoldingCost-2.1) > 1e-12 {
		t.Errorf("surcharge effective holding = %v, want 2.1", surcharge.EffectiveHoldingCost)
	}
	if discount.OptimalQuantity <= surcharge.OptimalQuantity {
		t.Errorf("discount Q* (%v) should exceed surcharge Q* (%v)", discount.OptimalQuantity, surcharge.OptimalQuantity)
	}
}

func TestSolveEchelonZeroDemand(t *testing.T) {
	params := EchelonParameters{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05}
	solution := solveOrFatal(t, params, 0, PolicyDiscount)

	if solution.OptimalQuantity != 0 {
		t.Errorf("Q* = %v, want 0 for zero demand", solution.OptimalQuantity)
	}
	if solution.AnnualCost != 0 {
		t.Errorf("annual cost = %v, want 0 for zero demand", solution.AnnualCost)
	}
	if solution.DerivativesDefined {
		t.Error("derivatives should be reported as undefined for zero demand")
	}
}

func TestOptimizeAggregateReference(t *testing.T) {
	// Reference values computed independently from the closed form:
	// Q*₁ = sqrt(2·200·2000/1.9), Q*₂ = sqrt(2·180·2000/1.728).
	echelons := []EchelonParameters{
		{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05},
		{Name: "glass", SetupCost: 180, HoldingCost: 1.8, DefectRate: 0.04},
	}

	result, err := Optimize(zap.NewNop(), echelons, 2000, PolicyDiscount)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(result.Echelons) != 2 {
		t.Fatalf("expected 2 echelon solutions, got %d", len(result.Echelons))
	}

	metal := result.Echelons[0]
	glass := result.Echelons[1]

	if math.Abs(metal.OptimalQuantity-648.8856845230501) > 1e-6 {
		t.Errorf("metal Q* = %v, want 648.8856845230501", metal.OptimalQuantity)
	}
	if math.Abs(glass.OptimalQuantity-645.4972243679028) > 1e-6 {
		t.Errorf("glass Q* = %v, want 645.4972243679028", glass.OptimalQuantity)
	}
	if math.Abs(metal.AnnualCost-1232.8828005937953) > 1e-6 {
		t.Errorf("metal annual cost = %v, want 1232.8828005937953", metal.AnnualCost)
	}
	if math.Abs(glass.AnnualCost-1115.419203707736) > 1e-6 {
		t.Errorf("glass annual cost = %v, want 1115.419203707736", glass.AnnualCost)
	}
	if math.Abs(result.TotalCost-2348.3020043015313) > 1e-6 {
		t.Errorf("total cost = %v, want 2348.3020043015313", result.TotalCost)
	}
	if math.Abs(result.SetupCostTotal-380) > 1e-9 {
		t.Errorf("setup cost total = %v, want 380", result.SetupCostTotal)
	}
	if math.Abs(result.HoldingCostAverage-1.9) > 1e-9 {
		t.Errorf("holding cost average = %v, want 1.9", result.HoldingCostAverage)
	}
}

func TestOptimizeAtomicFailure(t *testing.T) {
	echelons := []EchelonParameters{
		{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05},
		{Name: "glass", SetupCost: 180, HoldingCost: 0, DefectRate: 0.04},
	}

	result, err := Optimize(zap.NewNop(), echelons, 2000, PolicyDiscount)
	var invalid *InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
	if invalid.Echelon != "glass" {
		t.Errorf("offending echelon = %q, want %q", invalid.Echelon, "glass")
	}
	if len(result.Echelons) != 0 || result.TotalCost != 0 {
		t.Errorf("expected zero-value result on failure, got %+v", result)
	}
}

func TestOptimizeRejectsEmptyEchelonList(t *testing.T) {
	_, err := Optimize(zap.NewNop(), nil, 2000, PolicyDiscount)
	var invalid *InvalidParameterError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidParameterError, got %v", err)
	}
}

func TestParsePolicy(t *testing.T) {
	if _, err := ParsePolicy("discount"); err != nil {
		t.Errorf("ParsePolicy(discount) failed: %v", err)
	}
	if _, err := ParsePolicy("surcharge"); err != nil {
		t.Errorf("ParsePolicy(surcharge) failed: %v", err)
	}
	if _, err := ParsePolicy("rebate"); err == nil {
		t.Error("ParsePolicy(rebate) should fail")
	}
	if _, err := ParsePolicy(""); err == nil {
		t.Error("ParsePolicy(empty) should fail")
	}
}
