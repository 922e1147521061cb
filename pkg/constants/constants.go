// Package constants provides shared constants for the eoq-planner application.
package constants

// DateTimeLayout is the format expected for dates in demand history CSV files.
const DateTimeLayout = "2006-01-02"

// Optimization constants
const (
	// DaysPerYear annualizes a mean daily demand estimate
	DaysPerYear = 365

	// DefaultCurveRangeLow is the lower bound of the cost curve as a fraction of Q*
	DefaultCurveRangeLow = 0.5

	// DefaultCurveRangeHigh is the upper bound of the cost curve as a fraction of Q*
	DefaultCurveRangeHigh = 2.0

	// DefaultCurvePoints is the number of samples taken across the curve range
	DefaultCurvePoints = 100

	// DerivativeTolerance is the absolute tolerance for the first derivative at Q*
	DerivativeTolerance = 1e-6

	// RelativeTolerance is the relative tolerance for closed-form comparisons
	RelativeTolerance = 1e-9
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024
)

// History persistence defaults
const (
	// DefaultHistoryLimit is the default number of runs returned by history queries
	DefaultHistoryLimit = 50
)
