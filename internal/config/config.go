package config

import (
	"fmt"
)

// Config holds the parsed command-line configuration.
type Config struct {
	// Input is the path to the recorder binary capture (psf) to read.
	Input string
	// OptionsFile is an optional YAML file with converter options.
	OptionsFile string
	// TraceName overrides the trace name from the options file.
	TraceName string
	// ClockName overrides the clock name from the options file.
	ClockName string
}

// ParseArgs parses command-line arguments and returns a Config.
// Expected format: program_name [--options <file>] [--trace-name <name>] [--clock-name <name>] <input.psf>
func ParseArgs(args []string) (*Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no arguments provided")
	}

	programName := args[0]
	cfg := &Config{}

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--options":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--options requires a value")
			}
			cfg.OptionsFile = args[i+1]
			i++
		case "--trace-name":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--trace-name requires a value")
			}
			cfg.TraceName = args[i+1]
			i++
		case "--clock-name":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--clock-name requires a value")
			}
			cfg.ClockName = args[i+1]
			i++
		default:
			if cfg.Input != "" {
				return nil, usageError(programName)
			}
			cfg.Input = args[i]
		}
	}

	if cfg.Input == "" {
		return nil, usageError(programName)
	}

	return cfg, nil
}

func usageError(programName string) error {
	return fmt.Errorf("usage: %s [--options <file>] [--trace-name <name>] [--clock-name <name>] <input.psf>\nexample: %s --trace-name freertos capture.psf",
		programName, programName)
}
