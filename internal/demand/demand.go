// Package demand turns historical sales records into the single annualized
// demand scalar the optimizer consumes. The optimizer never sees anything
// but that scalar; everything in this package is a collaborator concern.
package demand

import (
	"fmt"
	"sort"
	"time"

	"github.com/operato/eoq-planner/pkg/constants"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Record is one row of daily sales history.
type Record struct {
	Date            time.Time
	StoreID         string
	Price           float64
	Promotions      string
	Seasonality     string
	ExternalFactors string
	CustomerSegment string
	SalesQuantity   float64
}

// Estimator selects how annual demand is derived from history.
type Estimator string

const (
	// EstimatorRegression fits a linear model over the categorical factors
	// and price, then annualizes the mean predicted daily demand.
	EstimatorRegression Estimator = "regression"
	// EstimatorMean annualizes the raw mean daily sales quantity.
	EstimatorMean Estimator = "mean"
	// EstimatorManual uses a caller-supplied annual figure untouched.
	EstimatorManual Estimator = "manual"
)

// ParseEstimator converts a configuration string into an Estimator.
func ParseEstimator(value string) (Estimator, error) {
	switch Estimator(value) {
	case EstimatorRegression, EstimatorMean, EstimatorManual:
		return Estimator(value), nil
	case "":
		return EstimatorRegression, nil
	default:
		return "", fmt.Errorf("unknown demand estimator %q (expected regression, mean, or manual)", value)
	}
}

// EstimateAnnualDemand produces the annual demand scalar from sales history
// using the selected estimator. The regression estimator falls back to the
// raw mean when the design matrix is degenerate (too few rows, or perfectly
// collinear factors), matching the behavior of estimating from incomplete
// uploads.
func EstimateAnnualDemand(logger *zap.Logger, records []Record, method Estimator) (float64, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("cannot estimate demand from empty sales history")
	}

	switch method {
	case EstimatorMean:
		return meanDailySales(records) * constants.DaysPerYear, nil
	case EstimatorRegression:
		estimate, err := regressionDailySales(records)
		if err != nil {
			logger.Warn("regression estimate unavailable, falling back to raw mean",
				zap.String("op", "demand.EstimateAnnualDemand"),
				zap.Error(err),
			)
			return meanDailySales(records) * constants.DaysPerYear, nil
		}
		return estimate * constants.DaysPerYear, nil
	default:
		return 0, fmt.Errorf("estimator %q cannot derive demand from history", method)
	}
}

func meanDailySales(records []Record) float64 {
	var sum float64
	for _, record := range records {
		sum += record.SalesQuantity
	}
	return sum / float64(len(records))
}

// regressionDailySales fits ordinary least squares over one-hot encoded
// categorical factors plus price and returns the mean predicted daily
// quantity.
func regressionDailySales(records []Record) (float64, error) {
	columns := [][]string{
		categoryColumn(records, func(r Record) string { return r.StoreID }),
		categoryColumn(records, func(r Record) string { return r.Promotions }),
		categoryColumn(records, func(r Record) string { return r.Seasonality }),
		categoryColumn(records, func(r Record) string { return r.ExternalFactors }),
		categoryColumn(records, func(r Record) string { return r.CustomerSegment }),
	}
	accessors := []func(Record) string{
		func(r Record) string { return r.StoreID },
		func(r Record) string { return r.Promotions },
		func(r Record) string { return r.Seasonality },
		func(r Record) string { return r.ExternalFactors },
		func(r Record) string { return r.CustomerSegment },
	}

	// Intercept, one dummy per non-reference level, then price. Dropping the
	// first level of each factor keeps the matrix clear of the dummy trap.
	featureCount := 2
	for _, levels := range columns {
		featureCount += len(levels) - 1
	}
	if len(records) < featureCount {
		return 0, fmt.Errorf("sales history has %d rows but the model needs at least %d", len(records), featureCount)
	}

	design := mat.NewDense(len(records), featureCount, nil)
	response := mat.NewDense(len(records), 1, nil)
	for i, record := range records {
		design.Set(i, 0, 1)
		offset := 1
		for c, levels := range columns {
			value := accessors[c](record)
			for l, level := range levels[1:] {
				if value == level {
					design.Set(i, offset+l, 1)
				}
			}
			offset += len(levels) - 1
		}
		design.Set(i, offset, record.Price)
		response.Set(i, 0, record.SalesQuantity)
	}

	var coefficients mat.Dense
	if err := coefficients.Solve(design, response); err != nil {
		return 0, fmt.Errorf("least squares solve failed: %w", err)
	}

	var predictions mat.Dense
	predictions.Mul(design, &coefficients)

	var sum float64
	for i := 0; i < len(records); i++ {
		sum += predictions.At(i, 0)
	}
	return sum / float64(len(records)), nil
}

func categoryColumn(records []Record, accessor func(Record) string) []string {
	seen := make(map[string]struct{})
	for _, record := range records {
		seen[accessor(record)] = struct{}{}
	}
	levels := make([]string, 0, len(seen))
	for level := range seen {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	return levels
}
