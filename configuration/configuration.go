package configuration

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-automake/automake"
)

// Configuration is a versioned automake configuration, intended to be provided
// by a yaml file, and optionally modified by environment variables.
//
// Settings here are defaults: command line flags override them, and options
// given in configure.ac or Makefile.am override both.
type Configuration struct {
	// Version is the version which defines the format of the rest of the configuration
	Version Version `yaml:"version"`

	// Log supports setting various parameters related to the logging
	// subsystem.
	Log struct {
		// Level is the granularity at which automake operations are logged.
		Level Loglevel `yaml:"level,omitempty"`

		// Formatter overrides the default formatter with another. Options
		// include "text", "json" and "logstash".
		Formatter string `yaml:"formatter,omitempty"`

		// Fields allows users to specify static string fields to include in
		// the logger context.
		Fields map[string]interface{} `yaml:"fields,omitempty"`
	} `yaml:"log"`

	// Generate holds the defaults for Makefile.in generation.
	Generate Generate `yaml:"generate,omitempty"`

	// Metrics configures export of generation metrics.
	Metrics Metrics `yaml:"metrics,omitempty"`
}

// Generate configures how Makefile.in files are produced.
type Generate struct {
	// Strictness is the default strictness: foreign, gnu or gnits.
	Strictness string `yaml:"strictness,omitempty"`

	// Options are default automake options, written the way they would be
	// in AUTOMAKE_OPTIONS.
	Options []string `yaml:"options,omitempty"`

	// Warnings are warning category settings such as "all", "no-portability"
	// or "error".
	Warnings []string `yaml:"warnings,omitempty"`

	// AddMissing installs missing standard files.
	AddMissing bool `yaml:"addmissing,omitempty"`

	// Copy copies missing files instead of symlinking them.
	Copy bool `yaml:"copy,omitempty"`

	// ForceMissing replaces standard files that already exist.
	ForceMissing bool `yaml:"forcemissing,omitempty"`

	// LibDir is the directory holding auxiliary files to install.
	LibDir string `yaml:"libdir,omitempty"`

	// Jobs limits how many Makefile.in files are generated concurrently. Zero
	// means one per CPU.
	Jobs int `yaml:"jobs,omitempty"`
}

// Metrics configures the export of generation metrics.
type Metrics struct {
	// Textfile, when set, is the path of a prometheus text exposition file
	// written after every run, suitable for the node exporter textfile
	// collector.
	Textfile string `yaml:"textfile,omitempty"`
}

// v0_1Configuration is a Version 0.1 Configuration struct
// This is currently aliased to Configuration, as it is the current version
type v0_1Configuration Configuration

// CurrentVersion is the most recent Version that can be parsed
var CurrentVersion = MajorMinorVersion(0, 1)

// Loglevel is the level at which operations are logged
// This can be error, warn, info, or debug
type Loglevel string

// UnmarshalYAML implements the yaml.Umarshaler interface
// Unmarshals a string into a Loglevel, lowercasing the string and validating that it represents a
// valid loglevel
func (loglevel *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var loglevelString string
	err := unmarshal(&loglevelString)
	if err != nil {
		return err
	}

	loglevelString = strings.ToLower(loglevelString)
	switch loglevelString {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid loglevel %s Must be one of [error, warn, info, debug]", loglevelString)
	}

	*loglevel = Loglevel(loglevelString)
	return nil
}

// Default returns the configuration used when no configuration file is
// given.
func Default() *Configuration {
	config := &Configuration{Version: CurrentVersion}
	config.Log.Level = "warn"
	config.Log.Formatter = "text"
	config.Generate.Strictness = automake.GNU.String()
	return config
}

// Parse parses an input configuration yaml document into a Configuration struct
// This should generally be capable of handling old configuration format versions
//
// Environment variables may be used to override configuration parameters other than version,
// following the scheme below:
// Configuration.Abc may be replaced by the value of AUTOMAKE_ABC,
// Configuration.Abc.Xyz may be replaced by the value of AUTOMAKE_ABC_XYZ, and so forth
func Parse(rd io.Reader) (*Configuration, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	p := NewParser("automake", []VersionedParseInfo{
		{
			Version: MajorMinorVersion(0, 1),
			ParseAs: reflect.TypeOf(v0_1Configuration{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				if v0_1, ok := c.(*v0_1Configuration); ok {
					if v0_1.Log.Level == Loglevel("") {
						v0_1.Log.Level = Loglevel("warn")
					}
					if v0_1.Generate.Strictness == "" {
						v0_1.Generate.Strictness = automake.GNU.String()
					}
					if _, err := automake.ParseStrictness(v0_1.Generate.Strictness); err != nil {
						return nil, fmt.Errorf("generate.strictness: %w", err)
					}
					if v0_1.Generate.Jobs < 0 {
						return nil, fmt.Errorf("generate.jobs must not be negative, got %d", v0_1.Generate.Jobs)
					}
					return (*Configuration)(v0_1), nil
				}
				return nil, fmt.Errorf("expected *v0_1Configuration, received %#v", c)
			},
		},
	})

	config := new(Configuration)
	err = p.Parse(in, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// StrictnessLevel returns the configured strictness. Parse has already
// validated the name.
func (g Generate) StrictnessLevel() automake.Strictness {
	s, err := automake.ParseStrictness(g.Strictness)
	if err != nil {
		return automake.GNU
	}
	return s
}
