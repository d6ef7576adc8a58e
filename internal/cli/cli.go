package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/rosettago/internal/app"
)

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("rosettago", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
RosettaGo - budget-constrained search over typed operator graphs.

Usage:
  rosettago [options] [CATALOG_PATH]

Arguments:
  CATALOG_PATH
    Path to a single .hcl catalog file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	catalogFlag := flagSet.String("catalog", "", "Path to the catalog file or directory.")
	inputFlag := flagSet.String("input", "path[64]/euclidean", "Input type, e.g. path[64]/euclidean.")
	outputFlag := flagSet.String("output", "feature[16]/l2", "Requested output type.")
	depthFlag := flagSet.Int("depth", 3, "Maximum operator chain depth.")
	seedFlag := flagSet.Int64("seed", 1, "Seed for the deterministic search schedule.")
	budgetFlag := flagSet.String("budget", "", "Budget as metric=limit pairs, e.g. cost=20.")
	samplesFlag := flagSet.Int("samples", 16, "Number of synthetic training examples.")
	stepsFlag := flagSet.Int("steps", 0, "Optimization steps. 0 uses the default.")
	workersFlag := flagSet.Int("workers", 0, "Concurrent candidate evaluations per step. 0 uses the default.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := *catalogFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		slog.Debug("No catalog path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		CatalogPath:     path,
		Input:           *inputFlag,
		Output:          *outputFlag,
		Depth:           *depthFlag,
		Seed:            *seedFlag,
		Budget:          *budgetFlag,
		Samples:         *samplesFlag,
		Steps:           *stepsFlag,
		Workers:         *workersFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
