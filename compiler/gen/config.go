package gen

import (
	"os"
	"path"
	"path/filepath"

	"github.com/syssam/prax/dialect"
)

// Config configures a generation run.
type Config struct {
	// Package is the import path of the generated root package. Its last
	// element becomes the root package name.
	Package string

	// Target is the directory the generated tree is written into.
	Target string

	// Dialect selects the quoting and placeholder style of the prepared
	// statements registered by the generated runtime.
	Dialect string

	// Features lists the enabled optional surfaces.
	Features []Feature

	// Workers caps concurrent file emission. Zero means GOMAXPROCS.
	Workers int
}

// FeatureEnabled reports whether the named feature is enabled.
func (c *Config) FeatureEnabled(name string) bool {
	for _, f := range c.Features {
		if f.Name == name {
			return true
		}
	}
	return false
}

// pkgName returns the root package name derived from the import path.
func (c *Config) pkgName() string {
	return path.Base(c.Package)
}

func (c *Config) validate() error {
	if c.Package == "" {
		return &ConfigError{Option: "Package", Message: "import path is required"}
	}
	if c.Target == "" {
		return &ConfigError{Option: "Target", Message: "output directory is required"}
	}
	if err := dialect.Validate(c.Dialect); err != nil {
		return &ConfigError{Option: "Dialect", Value: c.Dialect, Message: "unsupported dialect"}
	}
	if c.Dialect == dialect.Mongo {
		return &ConfigError{Option: "Dialect", Value: c.Dialect, Message: "mongo has no generated statement surface"}
	}
	if c.Workers < 0 {
		return &ConfigError{Option: "Workers", Value: c.Workers, Message: "must not be negative"}
	}
	return nil
}

// cleanup removes the stale output of every disabled feature.
func (c *Config) cleanup() error {
	for _, f := range AllFeatures {
		if f.cleanup == nil || c.FeatureEnabled(f.Name) {
			continue
		}
		if err := f.cleanup(c); err != nil {
			return err
		}
	}
	return nil
}

// Stage describes the maturity of a generator feature.
type Stage int

// Feature stages.
const (
	Alpha Stage = iota
	Experimental
	Stable
)

// Feature is an opt-in generated surface.
type Feature struct {
	// Name is the flag the feature is enabled under.
	Name string

	// Stage of the feature.
	Stage Stage

	// Default is the feature state when no flags are given.
	Default bool

	// Description is a short human readable summary.
	Description string

	// cleanup removes the feature output when it is disabled.
	cleanup func(*Config) error
}

var (
	// FeatureDataloader emits per-model batch load functions built on the
	// contrib/dataloader package, for request-scoped loaders.
	FeatureDataloader = Feature{
		Name:        "dataloader",
		Stage:       Stable,
		Default:     false,
		Description: "Dataloader generates batch load functions that group per-key lookups into IN queries",
		cleanup: func(c *Config) error {
			err := os.Remove(filepath.Join(c.Target, "loaders.go"))
			if os.IsNotExist(err) {
				return nil
			}
			return err
		},
	}
)

// AllFeatures holds all feature-flags.
var AllFeatures = []Feature{
	FeatureDataloader,
}
