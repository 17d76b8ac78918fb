package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapsource/internal/cli/config"
	"github.com/leapstack-labs/leapsource/internal/cli/output"
	"github.com/leapstack-labs/leapsource/internal/declare"
	"github.com/leapstack-labs/leapsource/internal/loader"
	"github.com/leapstack-labs/leapsource/internal/state"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Builder  *declare.Builder
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
		Builder:  declare.NewBuilder(cfg.Vars),
	}, nil
}

// LoadCatalog evaluates the configured variant and definitions directory.
func (c *CommandContext) LoadCatalog(ctx context.Context) (*loader.Result, error) {
	opts := loader.Options{Variant: core.Variant(c.Cfg.Variant)}
	if c.Cfg.DefinitionsDirExists() {
		opts.Dir = c.Cfg.DefinitionsDir
	}

	result, err := loader.New(c.Builder, c.Logger).Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load declarations: %w", err)
	}
	return result, nil
}

// OpenState opens the compile history database. Callers must Close it.
func (c *CommandContext) OpenState() (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore()
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	c.Logger.Debug("state database opened", "path", c.Cfg.StatePath)
	return store, nil
}

// getConfig returns the config stored by the root command, loading it from
// the working directory when a command runs on its own.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.GetConfig(cmd.Context()); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

func sourceInfo(ref core.TableRef, file string) output.SourceInfo {
	return output.SourceInfo{
		Database: ref.Database,
		Schema:   ref.Schema,
		Name:     ref.Name,
		SQL:      ref.SQL(),
		File:     file,
	}
}
