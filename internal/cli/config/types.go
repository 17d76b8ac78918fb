// Package config provides configuration management for the leapsource CLI.
//
// This package extends the shared project configuration from internal/config
// with CLI-specific fields (state database, output mode, verbosity).
package config

import (
	sharedcfg "github.com/leapstack-labs/leapsource/internal/config"
	"github.com/leapstack-labs/leapsource/pkg/core"
)

// WarehouseConfig is an alias for the shared warehouse configuration.
type WarehouseConfig = sharedcfg.WarehouseConfig

// Config holds all CLI configuration options.
type Config struct {
	Variant        string             `koanf:"variant"`
	DefinitionsDir string             `koanf:"definitions_dir"`
	StatePath      string             `koanf:"state_path"`
	Verbose        bool               `koanf:"verbose"`
	OutputFormat   string             `koanf:"output"`
	Vars           core.ProjectConfig `koanf:"vars"`
	Warehouse      *WarehouseConfig   `koanf:"warehouse"`

	// Resolved at load time, never read from config sources.
	ProjectRoot string `koanf:"-"`
	ConfigFile  string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultVariant        = sharedcfg.DefaultVariant
	DefaultDefinitionsDir = sharedcfg.DefaultDefinitionsDir
	DefaultStateFile      = ".leapsource/state.db"
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown

	// EnvPrefix is the prefix for CLI settings read from the environment.
	EnvPrefix = "LEAPSOURCE_"
)
