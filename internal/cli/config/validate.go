package config

import (
	"fmt"
	"os"

	sharedcfg "github.com/leapstack-labs/leapsource/internal/config"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := sharedcfg.ValidateVariant(c.Variant); err != nil {
		return err
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (expected auto, text, markdown or json)", c.OutputFormat)
	}
	if c.Vars.SourceProject == "" || c.Vars.SourceDataset == "" {
		return fmt.Errorf("vars.source_project and vars.source_dataset must not be empty")
	}
	return nil
}

// DefinitionsDirExists reports whether the project definitions directory exists.
// A missing directory is not an error: the built-in variant still loads.
func (c *Config) DefinitionsDirExists() bool {
	if c.DefinitionsDir == "" {
		return false
	}
	info, err := os.Stat(c.DefinitionsDir)
	return err == nil && info.IsDir()
}
