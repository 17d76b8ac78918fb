package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapsource/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewRefCommand creates the ref command.
func NewRefCommand() *cobra.Command {
	var checkDeclared bool

	cmd := &cobra.Command{
		Use:   "ref <table>",
		Short: "Build a source reference for a table name",
		Long: `Build the source reference for a table name using the configured
source_project and source_dataset. Any name is accepted.

With --declared the name is looked up in the loaded declaration set instead
(full key, schema.name or bare name) and the declared reference is shown,
including sources declared under their own database or schema.`,
		Example: `  leapsource ref Production_Product
  leapsource ref Sales_Store --declared --output json
  leapsource ref people.Person_Person --declared`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRef(cmd, args[0], checkDeclared)
		},
	}

	cmd.Flags().BoolVar(&checkDeclared, "declared", false, "Fail if the table is not declared")

	return cmd
}

func runRef(cmd *cobra.Command, name string, checkDeclared bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	ref := cmdCtx.Builder.SourceRef(name)
	file := ""

	if checkDeclared {
		result, err := cmdCtx.LoadCatalog(cmd.Context())
		if err != nil {
			return err
		}
		decl, ok := result.Registry.Resolve(name)
		if !ok {
			return fmt.Errorf("source %s is not declared\nHint: run 'leapsource list' to see declared sources", name)
		}
		ref, file = decl.Ref, decl.File
	}

	r := cmdCtx.Renderer
	info := sourceInfo(ref, file)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(info)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, ref.Name))
		r.Println("")
		r.Println(output.FormatKeyValue("Database", ref.Database))
		r.Println(output.FormatKeyValue("Schema", ref.Schema))
		r.Println(output.FormatKeyValue("SQL", "`"+ref.SQL()+"`"))
		if file != "" {
			r.Println(output.FormatKeyValue("File", file))
		}
	default:
		styles := r.Styles()
		r.Println(styles.Source.Render(ref.SQL()))
		r.Println(styles.Muted.Render(fmt.Sprintf("database=%s schema=%s name=%s", ref.Database, ref.Schema, ref.Name)))
	}
	return nil
}
