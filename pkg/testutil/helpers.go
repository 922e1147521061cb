// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/operato/eoq-planner/internal/eoq"
)

// FindEchelon finds an echelon solution by name in the result.
// Returns a pointer to the solution if found, nil otherwise.
func FindEchelon(result eoq.Result, name string) *eoq.EchelonSolution {
	for i := range result.Echelons {
		if result.Echelons[i].Name == name {
			return &result.Echelons[i]
		}
	}
	return nil
}

// TwoEchelonFixture returns the metal/glass parameter set used throughout
// the test suite, mirroring the shipped example configuration.
func TwoEchelonFixture() []eoq.EchelonParameters {
	return []eoq.EchelonParameters{
		{Name: "metal", SetupCost: 200, HoldingCost: 2.0, DefectRate: 0.05},
		{Name: "glass", SetupCost: 180, HoldingCost: 1.8, DefectRate: 0.04},
	}
}
