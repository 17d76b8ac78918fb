package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapsource/internal/cli/output"
	"github.com/leapstack-labs/leapsource/internal/manifest"
	"github.com/leapstack-labs/leapsource/internal/warehouse"
	"github.com/leapstack-labs/leapsource/pkg/core"
	"github.com/spf13/cobra"
)

type verifyOptions struct {
	concurrency  int
	manifestPath string
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that declared sources exist in the warehouse",
		Long: `Look up every declared source in the warehouse configured under
warehouse: in leapsource.yaml (bigquery, duckdb or postgres).

With --manifest the sources listed in a compiled manifest are checked instead
of loading the declaration files.

Verification only reports; the declaration set is never changed. The command
fails when any source is missing or cannot be checked.`,
		Example: `  leapsource verify
  leapsource verify --variant minimal --output json
  leapsource verify --manifest .leapsource/manifest.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.concurrency, "concurrency", warehouse.DefaultConcurrency, "Maximum concurrent lookups")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "Verify the sources of a compiled manifest (json or yaml)")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *verifyOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if cmdCtx.Cfg.Warehouse == nil {
		return fmt.Errorf("no warehouse configured\nHint: add a warehouse: section to leapsource.yaml (type: bigquery, duckdb or postgres)")
	}

	ctx := cmd.Context()
	refs, err := verifyRefs(cmd, cmdCtx, opts.manifestPath)
	if err != nil {
		return err
	}

	checker, err := warehouse.NewChecker(ctx, *cmdCtx.Cfg.Warehouse, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = checker.Close() }()

	results, err := warehouse.Verify(ctx, checker, refs, opts.concurrency, cmdCtx.Logger)
	if err != nil {
		return err
	}
	summary := warehouse.Summarize(results)

	out := output.VerifyOutput{
		Warehouse: cmdCtx.Cfg.Warehouse.Type,
		Results:   make([]output.VerifyResult, len(results)),
		Total:     summary.Total,
		Found:     summary.Found,
		Missing:   summary.Missing,
		Errored:   summary.Errored,
	}
	for i, res := range results {
		out.Results[i] = output.VerifyResult{Source: res.Ref.Key(), Exists: res.Exists, Error: res.Message()}
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		r.Header(1, fmt.Sprintf("Verify (%s)", out.Warehouse))
		rows := make([][]string, len(out.Results))
		for i, res := range out.Results {
			status := "ok"
			switch {
			case res.Error != "":
				status = "error: " + res.Error
			case !res.Exists:
				status = "missing"
			}
			rows[i] = []string{res.Source, status}
		}
		r.Table([]string{"Source", "Status"}, rows)
		r.Println("")
		r.Println(fmt.Sprintf("%d found, %d missing, %d errors", out.Found, out.Missing, out.Errored))
	}

	if !summary.OK() {
		return fmt.Errorf("%d of %d sources could not be verified", summary.Missing+summary.Errored, summary.Total)
	}
	return nil
}

// verifyRefs returns the sources to check: those of the manifest at path, or
// the loaded declaration set when path is empty.
func verifyRefs(cmd *cobra.Command, cmdCtx *CommandContext, path string) ([]core.TableRef, error) {
	if path == "" {
		result, err := cmdCtx.LoadCatalog(cmd.Context())
		if err != nil {
			return nil, err
		}
		return result.Registry.Refs(), nil
	}

	m, err := manifest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cmdCtx.Logger.Debug("verifying manifest", "path", path, "compile_id", m.CompileID, "sources", len(m.Sources))
	return m.Refs(), nil
}
