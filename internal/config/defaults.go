package config

import "github.com/leapstack-labs/leapsource/pkg/core"

// Default configuration values.
const (
	DefaultVariant        = string(core.VariantFull)
	DefaultDefinitionsDir = "definitions"

	// Quick-start literal project/dataset pair.
	DefaultSourceProject = "dna-team-day-2025-20251003"
	DefaultSourceDataset = "team_day_2025_adventure_works_oltp"
)

// DefaultVars returns the literal quick-start variables.
func DefaultVars() core.ProjectConfig {
	return core.ProjectConfig{
		SourceProject: DefaultSourceProject,
		SourceDataset: DefaultSourceDataset,
	}
}

// ApplyWarehouseDefaults applies default values to a WarehouseConfig.
// A BigQuery warehouse without an explicit project uses the source project.
func ApplyWarehouseDefaults(w *WarehouseConfig, vars core.ProjectConfig) {
	if w == nil {
		return
	}
	if w.Type == "" {
		w.Type = "bigquery"
	}
	if w.Type == "bigquery" && w.Project == "" {
		w.Project = vars.SourceProject
	}
}
