package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/operato/eoq-planner/internal/config"
	"github.com/operato/eoq-planner/internal/demand"
	"github.com/operato/eoq-planner/internal/eoq"
	"github.com/operato/eoq-planner/internal/history"
	"github.com/operato/eoq-planner/internal/server"
	"github.com/operato/eoq-planner/pkg/constants"
	"github.com/operato/eoq-planner/pkg/output"
	"github.com/operato/eoq-planner/pkg/validation"
)

var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	importCSV := flag.String("import-csv", "", "import a sales history CSV into the history database and exit")
	serve := flag.Bool("serve", false, "run the HTTP server instead of a one-shot optimization")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	var store *history.Store
	if conf.History.Path != "" {
		store, err = history.Open(conf.History.Path)
		if err != nil {
			logger.Fatal("failed to open history database",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		defer func() {
			_ = store.Close()
		}()
	}

	if *importCSV != "" {
		runImport(logger, store, *importCSV)
		return
	}

	if *serve {
		runServer(logger, store, *serverConfigLocation)
		return
	}

	runOptimization(logger, conf, store, *outputFormatFlag)
}

// runImport loads a sales history CSV into the history database, replacing
// any previous import.
func runImport(logger *zap.Logger, store *history.Store, csvPath string) {
	if store == nil {
		logger.Fatal("importing sales history requires history.path in the configuration",
			zap.String("op", "main"),
		)
	}

	records, err := demand.LoadCSV(csvPath)
	if err != nil {
		logger.Fatal("failed to load sales history CSV",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if err := store.ImportSalesHistory(context.Background(), records, true); err != nil {
		logger.Fatal("failed to import sales history",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	logger.Info("imported sales history",
		zap.String("op", "main"),
		zap.String("path", csvPath),
		zap.Int("records", len(records)),
	)
}

func runServer(logger *zap.Logger, store *history.Store, configLocation string) {
	serverConf, err := server.LoadConfig(configLocation)
	if err != nil {
		logger.Fatal("failed to load server configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	handler := server.NewHandler(logger, store, serverConf.BodySizeBytes(), version)
	logger.Info("starting HTTP server",
		zap.String("op", "main"),
		zap.String("address", serverConf.Address),
	)
	if err := http.ListenAndServe(serverConf.Address, handler); err != nil {
		logger.Fatal("HTTP server failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

func runOptimization(logger *zap.Logger, conf *config.Configuration, store *history.Store, outputFormatFlag string) {
	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if outputFormatFlag != "" {
		outputFormat = outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	policy, err := conf.ParsePolicy()
	if err != nil {
		logger.Fatal("failed to parse adjustment policy",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	annualDemand, err := resolveDemand(logger, conf, store)
	if err != nil {
		logger.Fatal("failed to determine annual demand",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	logger.Info("annual demand determined",
		zap.String("op", "main"),
		zap.Float64("demand", annualDemand),
		zap.String("estimator", conf.Demand.Estimator),
	)

	result, err := eoq.Optimize(logger, conf.Echelons, annualDemand, policy)
	if err != nil {
		logger.Fatal("optimization failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	var curves map[string][]eoq.CurvePoint
	if conf.Curve.Enabled {
		curves, err = eoq.SampleResultCurves(conf.Echelons, result, conf.Curve.Options())
		if err != nil {
			logger.Fatal("failed to sample cost curves",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	if store != nil {
		run, err := store.RecordRun(context.Background(), result)
		if err != nil {
			logger.Fatal("failed to record run",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		logger.Info("recorded run",
			zap.String("op", "main"),
			zap.String("runId", run.ID),
		)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(result, curves)
	case constants.OutputFormatCSV:
		output.CsvFormat(result, curves)
	}
}

// resolveDemand produces the annual demand scalar from the configured source:
// a manual figure, a sales history CSV, or a previously imported history
// database.
func resolveDemand(logger *zap.Logger, conf *config.Configuration, store *history.Store) (float64, error) {
	estimator, err := conf.ParseEstimator()
	if err != nil {
		return 0, err
	}

	if estimator == demand.EstimatorManual {
		if conf.Demand.Annual <= 0 {
			return 0, fmt.Errorf("manual demand estimator requires a positive demand.annual value")
		}
		return conf.Demand.Annual, nil
	}

	var records []demand.Record
	switch {
	case conf.Demand.CSVPath != "":
		records, err = demand.LoadCSV(conf.Demand.CSVPath)
	case store != nil:
		records, err = store.LoadSalesHistory(context.Background())
	default:
		return 0, fmt.Errorf("estimator %q requires demand.csvPath or an imported history database", estimator)
	}
	if err != nil {
		return 0, err
	}

	return demand.EstimateAnnualDemand(logger, records, estimator)
}
