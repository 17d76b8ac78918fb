package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapsource/internal/testutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlags mirrors the persistent flags registered by the root command.
func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("project-dir", "", "")
	fs.String("variant", "", "")
	fs.String("definitions-dir", "", "")
	fs.String("state", "", "")
	fs.String("source-project", "", "")
	fs.String("source-dataset", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "leapsource.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", newFlags())
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Variant)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "dna-team-day-2025-20251003", cfg.Vars.SourceProject)
	assert.Equal(t, "team_day_2025_adventure_works_oltp", cfg.Vars.SourceDataset)
	assert.True(t, filepath.IsAbs(cfg.StatePath))
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, ".leapsource", "state.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "definitions"), cfg.DefinitionsDir)
	assert.Empty(t, cfg.ConfigFile)
	assert.Nil(t, cfg.Warehouse)
	assert.False(t, cfg.DefinitionsDirExists())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
variant: minimal
definitions_dir: defs
output: json
vars:
  source_project: file-project
warehouse:
  type: duckdb
  dsn: local.duckdb
`)

	cfg, err := LoadConfig(path, newFlags())
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "minimal", cfg.Variant)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, filepath.Join(dir, "defs"), cfg.DefinitionsDir)
	assert.Equal(t, "file-project", cfg.Vars.SourceProject)
	// unset vars fall back to the literal pair
	assert.Equal(t, "team_day_2025_adventure_works_oltp", cfg.Vars.SourceDataset)

	require.NotNil(t, cfg.Warehouse)
	assert.Equal(t, "duckdb", cfg.Warehouse.Type)
	assert.Equal(t, filepath.Join(dir, "local.duckdb"), cfg.Warehouse.DSN)
}

func TestLoadConfig_UpwardSearch(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "variant: minimal\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", newFlags())
	require.NoError(t, err)

	assert.Equal(t, "minimal", cfg.Variant)
	assert.Equal(t, filepath.Join(root, "definitions"), cfg.DefinitionsDir)
}

func TestLoadConfig_ProjectDirFlag(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "output: markdown\n")
	t.Chdir(t.TempDir())

	flags := newFlags()
	require.NoError(t, flags.Set("project-dir", root))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, filepath.Join(root, "leapsource.yaml"), cfg.ConfigFile)
}

func TestLoadConfig_AltConfigName(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "leapsource.yml")
	require.NoError(t, os.WriteFile(path, []byte("variant: minimal\n"), 0o600))
	t.Chdir(root)

	cfg, err := LoadConfig("", newFlags())
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "minimal", cfg.Variant)
}

func TestLoadConfig_EmptyVarEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "vars:\n  source_dataset: file_dataset\n")
	t.Chdir(dir)
	t.Setenv("LEAPSOURCE_VAR_SOURCE_PROJECT", "")
	t.Setenv("LEAPSOURCE_VAR_SOURCE_DATASET", "")

	cfg, err := LoadConfig("", newFlags())
	require.NoError(t, err)

	assert.Equal(t, "dna-team-day-2025-20251003", cfg.Vars.SourceProject)
	assert.Equal(t, "file_dataset", cfg.Vars.SourceDataset)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
variant: full
output: text
vars:
  source_project: from-file
  source_dataset: from-file
`)

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("LEAPSOURCE_OUTPUT", "json")
		t.Setenv("LEAPSOURCE_VAR_SOURCE_PROJECT", "from-env")

		cfg, err := LoadConfig(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, "from-env", cfg.Vars.SourceProject)
		assert.Equal(t, "from-file", cfg.Vars.SourceDataset)
	})

	t.Run("flags override env", func(t *testing.T) {
		t.Setenv("LEAPSOURCE_OUTPUT", "json")
		t.Setenv("LEAPSOURCE_VAR_SOURCE_PROJECT", "from-env")

		flags := newFlags()
		require.NoError(t, flags.Set("output", "markdown"))
		require.NoError(t, flags.Set("source-project", "from-flag"))
		require.NoError(t, flags.Set("variant", "minimal"))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "markdown", cfg.OutputFormat)
		assert.Equal(t, "minimal", cfg.Variant)
		assert.Equal(t, "from-flag", cfg.Vars.SourceProject)
	})

	t.Run("unset flags do not override", func(t *testing.T) {
		cfg, err := LoadConfig(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.OutputFormat)
		assert.Equal(t, "full", cfg.Variant)
	})
}

func TestLoadConfig_WarehouseEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
vars:
  source_project: proj
warehouse:
  dsn: postgres://${TEST_PG_USER}@localhost/db
`)
	t.Setenv("TEST_PG_USER", "reader")
	t.Setenv("LEAPSOURCE_WAREHOUSE_TYPE", "postgres")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.Warehouse)
	assert.Equal(t, "postgres", cfg.Warehouse.Type)
	assert.Equal(t, "postgres://reader@localhost/db", cfg.Warehouse.DSN)
}

func TestLoadConfig_BigQueryProjectDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
vars:
  source_project: bq-proj
warehouse:
  location: EU
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.Warehouse)
	assert.Equal(t, "bigquery", cfg.Warehouse.Type)
	assert.Equal(t, "bq-proj", cfg.Warehouse.Project)
	assert.Equal(t, "EU", cfg.Warehouse.Location)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"unknown variant", "variant: huge\n", `unknown variant "huge"`},
		{"unknown output", "output: xml\n", `unknown output format "xml"`},
		{"bad yaml", "variant: [\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"LEAPSOURCE_OUTPUT":             "output",
		"LEAPSOURCE_STATE_PATH":         "state_path",
		"LEAPSOURCE_DEFINITIONS_DIR":    "definitions_dir",
		"LEAPSOURCE_WAREHOUSE_DSN":      "warehouse.dsn",
		"LEAPSOURCE_VAR_SOURCE_PROJECT": "",
		"LEAPSOURCE_WAREHOUSE_PROJECT":  "warehouse.project",
		"LEAPSOURCE_VAR_SOURCE_DATASET": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")

	assert.Equal(t, "value_one", expandEnvVars("${TEST_VAR_ONE}"))
	assert.Equal(t, "a-value_one-b", expandEnvVars("a-${TEST_VAR_ONE}-b"))
	assert.Equal(t, "${TEST_VAR_MISSING}", expandEnvVars("${TEST_VAR_MISSING}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetConfig(ctx))
	assert.NotNil(t, GetLogger(ctx))

	cfg := &Config{Variant: "minimal"}
	logger := testutil.NewTestLogger(t)
	ctx = WithLogger(WithConfig(ctx, cfg), logger)

	assert.Same(t, cfg, GetConfig(ctx))
	assert.Same(t, logger, GetLogger(ctx))
}
