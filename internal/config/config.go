// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/operato/eoq-planner/internal/demand"
	"github.com/operato/eoq-planner/internal/eoq"
	"github.com/operato/eoq-planner/pkg/validation"
)

// Configuration holds all configuration for eoq-planner.
type Configuration struct {
	Policy   string                  `yaml:"policy"`
	Echelons []eoq.EchelonParameters `yaml:"echelons"`
	Demand   DemandConfig            `yaml:"demand"`
	Curve    CurveConfig             `yaml:"curve,omitempty"`
	History  HistoryConfig           `yaml:"history,omitempty"`
	Logging  LoggingConfig           `yaml:"logging,omitempty"`
	Output   OutputConfig            `yaml:"output,omitempty"`
}

// DemandConfig selects where the annual demand scalar comes from.
type DemandConfig struct {
	Estimator string  `yaml:"estimator,omitempty"` // regression, mean, manual
	Annual    float64 `yaml:"annual,omitempty"`    // used by the manual estimator
	CSVPath   string  `yaml:"csvPath,omitempty"`   // sales history for regression/mean
}

// CurveConfig controls cost-curve sampling for visualization.
type CurveConfig struct {
	Enabled   bool    `yaml:"enabled,omitempty"`
	RangeLow  float64 `yaml:"rangeLow,omitempty"`
	RangeHigh float64 `yaml:"rangeHigh,omitempty"`
	Points    int     `yaml:"points,omitempty"`
}

// Options converts the curve section into sampler options.
func (c CurveConfig) Options() eoq.CurveOptions {
	return eoq.CurveOptions{RangeLow: c.RangeLow, RangeHigh: c.RangeHigh, Points: c.Points}
}

// HistoryConfig controls run persistence. An empty path disables it.
type HistoryConfig struct {
	Path  string `yaml:"path,omitempty"`
	Limit int    `yaml:"limit,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// ParsePolicy resolves the configured adjustment policy.
func (conf *Configuration) ParsePolicy() (eoq.AdjustmentPolicy, error) {
	return eoq.ParsePolicy(conf.Policy)
}

// ParseEstimator resolves the configured demand estimator.
func (conf *Configuration) ParseEstimator() (demand.Estimator, error) {
	return demand.ParseEstimator(conf.Demand.Estimator)
}

// ValidateConfiguration performs advisory validation and returns warnings.
// Hard preconditions (positive costs, defect rates in range) stay with the
// optimizer so they cannot be bypassed; these warnings catch configurations
// that are legal but probably not what the user meant.
func (conf *Configuration) ValidateConfiguration() []string {
	var warnings []string

	warnings = append(warnings, validation.ValidateEchelons(conf.Echelons)...)

	if _, err := conf.ParsePolicy(); err != nil {
		warnings = append(warnings, fmt.Sprintf("Policy: %v", err))
	}

	estimator, err := conf.ParseEstimator()
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Demand estimator: %v", err))
	} else {
		switch estimator {
		case demand.EstimatorManual:
			if conf.Demand.Annual <= 0 {
				warnings = append(warnings, "Manual demand estimator requires a positive demand.annual value")
			}
		default:
			if conf.Demand.CSVPath == "" && conf.History.Path == "" {
				warnings = append(warnings, fmt.Sprintf("Demand estimator %q needs demand.csvPath or an imported history database", estimator))
			}
		}
	}

	warnings = append(warnings, validation.ValidateCurve(conf.Curve.Enabled, conf.Curve.RangeLow, conf.Curve.RangeHigh, conf.Curve.Points)...)

	return warnings
}
