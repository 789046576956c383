package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// CustomAttribute defines one user-supplied attribute attached to exported
// records. Expression is evaluated against each record (see internal/attributes).
type CustomAttribute struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// Options are converter options loaded from a YAML file.
type Options struct {
	// TraceName names the exported trace stream.
	TraceName string `yaml:"trace_name"`
	// ClockName names the reconstructed clock.
	ClockName string `yaml:"clock_name"`
	// DefaultChannel names user-event channels that the target left unset.
	DefaultChannel string `yaml:"default_channel"`
	// Attributes are custom attribute expressions attached to records.
	Attributes []CustomAttribute `yaml:"attributes"`
}

// DefaultOptions returns the options used when no file is given.
func DefaultOptions() *Options {
	return &Options{
		TraceName:      "freertos",
		ClockName:      "monotonic",
		DefaultChannel: "default",
	}
}

// LoadOptions reads options from a YAML file, filling unset fields with
// defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options file: %w", err)
	}

	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parsing options file: %w", err)
	}
	if opts.TraceName == "" {
		opts.TraceName = "freertos"
	}
	if opts.ClockName == "" {
		opts.ClockName = "monotonic"
	}
	if opts.DefaultChannel == "" {
		opts.DefaultChannel = "default"
	}
	return opts, nil
}
