package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapsource/internal/cli/output"
	"github.com/leapstack-labs/leapsource/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded compiles",
		Long:  `List compiles recorded in the state database, newest first.`,
		Example: `  leapsource history
  leapsource history --limit 5 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of compiles to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, err := cmdCtx.OpenState()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	compiles, err := store.ListCompiles(cmd.Context(), limit)
	if err != nil {
		return err
	}

	infos := make([]output.CompileInfo, len(compiles))
	for i, c := range compiles {
		infos[i] = compileInfo(c)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, fmt.Sprintf("Compiles (%d shown)", len(infos)))
	if len(infos) == 0 {
		r.Muted("No compiles recorded yet. Run 'leapsource compile' first.")
		return nil
	}

	rows := make([][]string, len(infos))
	for i, c := range infos {
		rows[i] = []string{
			c.ID[:8],
			c.CreatedAt,
			c.Variant,
			fmt.Sprintf("%d", c.SourceCount),
			fmt.Sprintf("%s.%s", c.SourceProject, c.SourceDataset),
		}
	}
	r.Table([]string{"ID", "Created", "Variant", "Sources", "Dataset"}, rows)
	return nil
}

func compileInfo(c *state.Compile) output.CompileInfo {
	return output.CompileInfo{
		ID:             c.ID,
		Variant:        c.Variant,
		SourceProject:  c.Config.SourceProject,
		SourceDataset:  c.Config.SourceDataset,
		SourceCount:    c.SourceCount,
		DuplicateCount: c.DuplicateCount,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}
