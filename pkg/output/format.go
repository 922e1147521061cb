// Package output provides utilities for formatting and displaying
// optimization results.
package output

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/operato/eoq-planner/internal/eoq"
	"github.com/operato/eoq-planner/pkg/format"
)

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(result eoq.Result, curves map[string][]eoq.CurvePoint) {
	p := message.NewPrinter(language.English)

	_, _ = p.Printf("--- Optimization (policy %s, annual demand %.2f) ---\n", result.Policy, result.Demand)
	fmt.Printf("Echelon      | Q* (units)    | Annual cost   | h_eff   | d1 at Q*     | d2 at Q*\n")
	fmt.Printf("_______      | __________    | ___________   | _____   | ________     | ________\n")
	for _, echelon := range result.Echelons {
		name := echelon.Name
		if name == "" {
			name = "(unnamed)"
		}
		if !echelon.DerivativesDefined {
			fmt.Printf("%-12s | %13s | %13s | %7.4f | %12s | %s\n",
				name, format.Quantity(echelon.OptimalQuantity), format.Currency(echelon.AnnualCost),
				echelon.EffectiveHoldingCost, "undefined", "undefined")
			continue
		}
		fmt.Printf("%-12s | %13s | %13s | %7.4f | %12.3e | %.3e\n",
			name, format.Quantity(echelon.OptimalQuantity), format.Currency(echelon.AnnualCost),
			echelon.EffectiveHoldingCost, echelon.FirstDerivative, echelon.SecondDerivative)
	}
	fmt.Printf("Total annual cost: %s\n", format.Currency(result.TotalCost))

	if len(curves) == 0 {
		return
	}
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		points := curves[name]
		if len(points) == 0 {
			continue
		}
		fmt.Printf("\nCost curve for %s (%d samples, Q in [%.2f, %.2f]):\n",
			name, len(points), points[0].Quantity, points[len(points)-1].Quantity)
		for _, point := range points {
			fmt.Printf("  Q=%10.2f  cost=%s\n", point.Quantity, format.Currency(point.Cost))
		}
	}
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(result eoq.Result, curves map[string][]eoq.CurvePoint) {
	fmt.Printf(`"echelon","optimal quantity","annual cost","effective holding cost","first derivative","second derivative"`)
	fmt.Printf("\n")
	for _, echelon := range result.Echelons {
		if !echelon.DerivativesDefined {
			fmt.Printf(`"%s","%.6f","%.6f","%.6f","",""`, echelon.Name, echelon.OptimalQuantity, echelon.AnnualCost, echelon.EffectiveHoldingCost)
			fmt.Printf("\n")
			continue
		}
		fmt.Printf(`"%s","%.6f","%.6f","%.6f","%.9e","%.9e"`,
			echelon.Name, echelon.OptimalQuantity, echelon.AnnualCost,
			echelon.EffectiveHoldingCost, echelon.FirstDerivative, echelon.SecondDerivative)
		fmt.Printf("\n")
	}
	fmt.Printf(`"total","","%.6f","","",""`, result.TotalCost)
	fmt.Printf("\n")

	if len(curves) == 0 {
		return
	}
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf(`"echelon","quantity","cost"`)
	fmt.Printf("\n")
	for _, name := range names {
		for _, point := range curves[name] {
			fmt.Printf(`"%s","%.6f","%.6f"`, name, point.Quantity, point.Cost)
			fmt.Printf("\n")
		}
	}
}
