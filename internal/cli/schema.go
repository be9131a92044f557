package cli

import (
	"github.com/spf13/cobra"

	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/schemaconf"
)

// SchemaShowOptions holds flags for the schema show command.
type SchemaShowOptions struct {
	*RootOptions
	Live    bool // print the live schema without scanning
	Inspect bool // scan without updating the live schema
}

// NewSchemaCommand creates the schema command and its subcommands.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show or change a table schema",
	}

	cmd.AddCommand(newSchemaShowCommand(rootOpts))
	cmd.AddCommand(newSchemaChangeCommand(rootOpts, "set",
		"Replace a table schema",
		`Discard every learned type, flag and accepted unique value of a table and
apply a schema file (.yaml, .yml, .json or .cue) as the new baseline.`))
	cmd.AddCommand(newSchemaChangeCommand(rootOpts, "update",
		"Merge a schema file into a table schema",
		`Merge a schema file (.yaml, .yml, .json or .cue) into the live schema of a
table, keeping learned types and accepted unique values.`))

	return cmd
}

func newSchemaShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <table>",
		Short: "Print the schema of a table",
		Long: `Scan a table and print the types observed per field, with the not-null and
unique fields. A field holding values of several types is printed as a list.

--live prints the live schema without scanning. --inspect scans without
learning types or recording unique values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaShow(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Live, "live", false, "print the live schema without scanning")
	cmd.Flags().BoolVar(&opts.Inspect, "inspect", false, "scan without updating the live schema")
	cmd.MarkFlagsMutuallyExclusive("live", "inspect")

	return cmd
}

func runSchemaShow(opts *SchemaShowOptions, cmd *cobra.Command, table string) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	s, err := openSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	t, _, err := s.openTable(ctx, table)
	if err != nil {
		return err
	}

	var snap schema.Snapshot
	switch {
	case opts.Live:
		snap, err = t.GetSchema(ctx, false)
	case opts.Inspect:
		snap, err = t.Inspect(ctx)
	default:
		snap, err = t.Schema(ctx)
	}
	if err != nil {
		return formatter.Violation("schema scan failed", err)
	}
	return formatter.Success(snap)
}

func newSchemaChangeCommand(rootOpts *RootOptions, verb, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <table> <schema-file>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaChange(rootOpts, cmd, verb, args[0], args[1])
		},
	}
}

func runSchemaChange(opts *RootOptions, cmd *cobra.Command, verb, table, path string) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	cfg, err := schemaconf.Load(path)
	if err != nil {
		return badInput(formatter, err)
	}

	s, err := openSession(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	t, st, err := s.openTable(ctx, table)
	if err != nil {
		return err
	}

	if verb == "set" {
		t.SetSchema(cfg)
	} else {
		t.UpdateSchema(cfg)
	}
	if err := s.saveSchema(ctx, t, st); err != nil {
		return err
	}

	snap, err := t.GetSchema(ctx, false)
	if err != nil {
		return formatter.Violation("schema read failed", err)
	}
	formatter.VerboseLog("schema %s for %s: %d field(s)", verb, table, len(cfg))
	return formatter.Success(snap)
}
