package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapsource/internal/cli/output"
	"github.com/leapstack-labs/leapsource/internal/state"
	"github.com/spf13/cobra"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [from-id to-id]",
		Short: "Show sources added or removed between compiles",
		Long: `Compare the declared sources of two recorded compiles. With no arguments
the two most recent compiles are compared.`,
		Example: `  leapsource diff
  leapsource diff 1b2c3d4e-... 5f6a7b8c-...`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("diff takes no arguments or exactly two compile IDs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args)
		},
	}

	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, err := cmdCtx.OpenState()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	var diff *state.SourceDiff
	if len(args) == 2 {
		for _, id := range args {
			c, err := store.GetCompile(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("compile %s not found\nHint: run 'leapsource history' to list compile IDs", id)
			}
		}
		diff, err = store.Diff(ctx, args[0], args[1])
	} else {
		diff, err = store.DiffLatest(ctx)
	}
	if err != nil {
		return err
	}
	if diff == nil {
		return fmt.Errorf("need at least two recorded compiles to diff\nHint: run 'leapsource compile' again after changing declarations")
	}

	out := output.DiffOutput{
		From:    diff.From,
		To:      diff.To,
		Added:   make([]string, 0, len(diff.Added)),
		Removed: make([]string, 0, len(diff.Removed)),
	}
	for _, ref := range diff.Added {
		out.Added = append(out.Added, ref.Key())
	}
	for _, ref := range diff.Removed {
		out.Removed = append(out.Removed, ref.Key())
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Source diff"))
		r.Println("")
		r.Println(output.FormatKeyValue("From", out.From))
		r.Println(output.FormatKeyValue("To", out.To))
		for _, k := range out.Added {
			r.Println("- added `" + k + "`")
		}
		for _, k := range out.Removed {
			r.Println("- removed `" + k + "`")
		}
	default:
		styles := r.Styles()
		r.Println(styles.Muted.Render(fmt.Sprintf("%s -> %s", out.From, out.To)))
		for _, k := range out.Added {
			r.Println(styles.Success.Render("+ " + k))
		}
		for _, k := range out.Removed {
			r.Println(styles.Error.Render("- " + k))
		}
	}
	if diff.IsEmpty() && r.EffectiveMode() != output.ModeJSON {
		r.Muted("No source changes.")
	}
	return nil
}
