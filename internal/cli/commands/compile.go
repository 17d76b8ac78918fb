package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leapstack-labs/leapsource/internal/cli/output"
	"github.com/leapstack-labs/leapsource/internal/loader"
	"github.com/leapstack-labs/leapsource/internal/manifest"
	"github.com/spf13/cobra"
)

// DefaultManifestPath is where compile writes the manifest, relative to the project root.
const DefaultManifestPath = ".leapsource/manifest.json"

type compileOptions struct {
	out     string
	format  string
	noState bool
	watch   bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Write the source manifest and record the compile",
		Long: `Load every declaration, write a manifest of the resulting source catalog
and record the compile in the state database so later compiles can be diffed.

Use --out - to write the manifest to stdout.`,
		Example: `  # Compile to .leapsource/manifest.json
  leapsource compile

  # Write YAML to a custom path without touching history
  leapsource compile --out sources.yaml --no-state

  # Recompile whenever a declaration file changes
  leapsource compile --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompile(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.out, "out", "", "Manifest path (default: .leapsource/manifest.json, - for stdout)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Manifest format: json or yaml (default: from --out extension)")
	cmd.Flags().BoolVar(&opts.noState, "no-state", false, "Do not record the compile in the state database")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Recompile when declaration files change")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runCompile(cmd *cobra.Command, opts *compileOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	if opts.format != "" {
		if _, err := manifest.ParseFormat(opts.format); err != nil {
			return err
		}
	}
	if opts.out == "" {
		opts.out = filepath.Join(cmdCtx.Cfg.ProjectRoot, DefaultManifestPath)
	}

	if _, err := compileOnce(cmd.Context(), cmdCtx, opts); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	if !cmdCtx.Cfg.DefinitionsDirExists() {
		return fmt.Errorf("cannot watch: definitions directory does not exist: %s", cmdCtx.Cfg.DefinitionsDir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", cmdCtx.Cfg.DefinitionsDir))
	return loader.Watch(ctx, cmdCtx.Cfg.DefinitionsDir, loader.DefaultDebounce, cmdCtx.Logger, func(file string) {
		cmdCtx.Logger.Info("recompiling", "changed", file)
		if _, err := compileOnce(ctx, cmdCtx, opts); err != nil {
			cmdCtx.Renderer.Error(err.Error())
		}
	})
}

// compileOnce loads the catalog, records it and writes the manifest.
func compileOnce(ctx context.Context, cmdCtx *CommandContext, opts *compileOptions) (*manifest.Manifest, error) {
	result, err := cmdCtx.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	cfg := cmdCtx.Cfg
	m := manifest.Build(cfg.Variant, cfg.Vars, result.Registry)

	if !opts.noState {
		store, err := cmdCtx.OpenState()
		if err != nil {
			return nil, err
		}
		c, err := store.RecordCompile(ctx, cfg.Variant, cfg.Vars, result.Registry)
		_ = store.Close()
		if err != nil {
			return nil, err
		}
		m.CompileID = c.ID
		m.GeneratedAt = c.CreatedAt
	}

	if err := writeManifest(cmdCtx.Renderer, m, opts); err != nil {
		return nil, err
	}

	if opts.out != "-" {
		r := cmdCtx.Renderer
		msg := fmt.Sprintf("Compiled %d sources (%s) to %s", len(m.Sources), cfg.Variant, opts.out)
		if r.EffectiveMode() == output.ModeJSON {
			return m, r.JSON(map[string]any{
				"compile_id": m.CompileID,
				"sources":    len(m.Sources),
				"duplicates": len(m.Duplicates),
				"manifest":   opts.out,
			})
		}
		r.Success(msg)
		if len(m.Duplicates) > 0 {
			r.Muted(fmt.Sprintf("%d duplicate declaration(s) ignored", len(m.Duplicates)))
		}
	}
	return m, nil
}

func writeManifest(r *output.Renderer, m *manifest.Manifest, opts *compileOptions) error {
	format := manifest.FormatForPath(opts.out)
	if opts.format != "" {
		format, _ = manifest.ParseFormat(opts.format)
	}

	if opts.out == "-" {
		return m.Encode(r.Writer(), format)
	}
	if opts.format == "" {
		return m.WriteFile(opts.out)
	}

	if err := os.MkdirAll(filepath.Dir(opts.out), 0o750); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	f, err := os.Create(opts.out) //nolint:gosec // G304: path comes from the --out flag
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if err := m.Encode(f, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
