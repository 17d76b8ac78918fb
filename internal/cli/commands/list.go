package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapsource/internal/cli/output"
	"github.com/leapstack-labs/leapsource/internal/loader"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all declared source tables",
		Long: `List every source table declared by the selected variant and the
project's definitions directory, in declaration order.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List the full Adventure Works declaration set
  leapsource list

  # List the minimal set as JSON
  leapsource list --variant minimal --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	result, err := cmdCtx.LoadCatalog(cmd.Context())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return listJSON(cmdCtx.Cfg.Variant, result, r)
	default:
		return listTable(cmdCtx.Cfg.Variant, result, r)
	}
}

func listTable(variant string, result *loader.Result, r *output.Renderer) error {
	reg := result.Registry
	r.Header(1, fmt.Sprintf("Sources (%d total, variant %s)", reg.Count(), variant))

	rows := make([][]string, 0, reg.Count())
	for i, d := range reg.All() {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			d.Ref.Name,
			d.Ref.Schema,
			d.Ref.Database,
			d.File,
		})
	}
	r.Table([]string{"#", "Name", "Schema", "Database", "File"}, rows)

	if dups := reg.Duplicates(); len(dups) > 0 {
		r.Println("")
		r.Muted(fmt.Sprintf("%d duplicate declaration(s) ignored", len(dups)))
	}
	return nil
}

func listJSON(variant string, result *loader.Result, r *output.Renderer) error {
	reg := result.Registry
	out := output.ListOutput{
		Variant: variant,
		Sources: make([]output.SourceInfo, 0, reg.Count()),
		Total:   reg.Count(),
	}
	for _, d := range reg.All() {
		out.Sources = append(out.Sources, sourceInfo(d.Ref, d.File))
	}
	for _, d := range reg.Duplicates() {
		out.Duplicates = append(out.Duplicates, sourceInfo(d.Ref, d.File))
	}
	return r.JSON(out)
}
