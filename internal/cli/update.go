package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Match []string // payload fields that select documents
	IDs   []int    // restrict to these document IDs
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <table> [json | @file | -]",
		Short: "Merge fields into matching documents",
		Long: `Merge a JSON object into every matching document of a table.

Each --match field selects documents whose field equals the value given for
it in the payload; that field is not rewritten. Several --match fields
combine with AND. --id restricts the update to the given documents.

Examples:
  tinydbc update people '{"email": "ann@example.com", "age": 31}' --match email
  tinydbc update people '{"age": 32}' --id 1`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd, args[0], args[1:])
		},
	}

	cmd.Flags().StringSliceVar(&opts.Match, "match", nil, "payload fields that select documents")
	cmd.Flags().IntSliceVar(&opts.IDs, "id", nil, "document IDs to update")

	return cmd
}

func runUpdate(opts *UpdateOptions, cmd *cobra.Command, table string, args []string) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	ids, err := parseIDs(opts.IDs)
	if err != nil {
		return badInput(formatter, err)
	}
	data, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return badInput(formatter, err)
	}
	docs, single, err := parseDocuments(data)
	if err != nil {
		return badInput(formatter, err)
	}
	if !single {
		return badInput(formatter, fmt.Errorf("update takes a single JSON object"))
	}

	s, err := openSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	t, st, err := s.openTable(ctx, table)
	if err != nil {
		return err
	}

	updated, err := t.Update(ctx, docs[0], opts.Match, ids...)
	if err != nil && updated == nil {
		return formatter.Violation("update failed", err)
	}
	if saveErr := s.saveSchema(ctx, t, st); saveErr != nil {
		return saveErr
	}
	if err != nil {
		return formatter.Violation("table failed validation after update", err)
	}

	formatter.VerboseLog("updated %d document(s) in %s", len(updated), table)
	if updated == nil {
		updated = []docstore.DocID{}
	}
	return formatter.Success(WriteResult{Table: table, IDs: updated})
}
