package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsource/internal/cli/output"
	"github.com/leapstack-labs/leapsource/internal/declare"
	"github.com/spf13/cobra"
)

// NewAssertionsCommand creates the assertions command.
func NewAssertionsCommand() *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "assertions <key-column> <name-column>",
		Short: "Show the standard dimension assertions",
		Long: `Show the unique-key / non-null assertion descriptor for a dimension
table keyed by <key-column> with display column <name-column>.

With --source, also render the queries that find violating rows in that
source table.`,
		Example: `  leapsource assertions ProductID Name
  leapsource assertions ProductID Name --source Production_Product`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssertions(cmd, args[0], args[1], sourceName)
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "Source table to render violation queries for")

	return cmd
}

func runAssertions(cmd *cobra.Command, key, name, sourceName string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	a := declare.DimAssertions(key, name)
	out := output.AssertionsOutput{
		UniqueKey: a.UniqueKey,
		NonNull:   a.NonNull,
	}

	if sourceName != "" {
		ref := cmdCtx.Builder.SourceRef(sourceName)
		info := sourceInfo(ref, "")
		out.Source = &info
		for _, q := range a.Queries(ref) {
			out.Queries = append(out.Queries, output.QueryInfo{Kind: q.Kind, SQL: q.SQL})
		}
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Assertions"))
		r.Println("")
		r.Println(output.FormatKeyValue("Unique key", strings.Join(out.UniqueKey, ", ")))
		r.Println(output.FormatKeyValue("Non-null", strings.Join(out.NonNull, ", ")))
		for _, q := range out.Queries {
			r.Println("")
			r.Println(output.FormatHeader(2, q.Kind))
			r.Println("")
			r.Println(output.FormatCode("sql", q.SQL))
		}
	default:
		styles := r.Styles()
		r.Println(fmt.Sprintf("%s %s", styles.Bold.Render("unique key:"), strings.Join(out.UniqueKey, ", ")))
		r.Println(fmt.Sprintf("%s %s", styles.Bold.Render("non-null:  "), strings.Join(out.NonNull, ", ")))
		for _, q := range out.Queries {
			r.Println("")
			r.Println(styles.Header.Render(q.Kind))
			r.Println(q.SQL)
		}
	}
	return nil
}
