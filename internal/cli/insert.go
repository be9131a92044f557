package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
)

// WriteResult is the output of a write command.
type WriteResult struct {
	Table string           `json:"table" yaml:"table"`
	IDs   []docstore.DocID `json:"ids" yaml:"ids"`
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <table> [json | @file | -]",
		Short: "Insert documents",
		Long: `Insert one JSON object or an array of objects into a table.

Every document is sanitized against the table's schema. An array is one
batch: when any document violates a constraint, nothing is written.

Exit codes:
  0 - Documents written
  1 - Constraint violation
  2 - Command error (bad JSON, database errors, etc.)

Examples:
  tinydbc insert people '{"name": "Ann", "age": "30"}'
  tinydbc insert people @people.json
  cat people.json | tinydbc insert people`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(rootOpts, cmd, args[0], args[1:])
		},
	}
	return cmd
}

func runInsert(opts *RootOptions, cmd *cobra.Command, table string, args []string) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	data, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return badInput(formatter, err)
	}
	docs, single, err := parseDocuments(data)
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

	var ids []docstore.DocID
	if single {
		var id docstore.DocID
		id, err = t.Insert(ctx, docs[0])
		if err == nil {
			ids = []docstore.DocID{id}
		}
	} else {
		ids, err = t.InsertMultiple(ctx, docs)
	}
	if err != nil && len(ids) == 0 {
		return formatter.Violation("insert failed", err)
	}
	if saveErr := s.saveSchema(ctx, t, st); saveErr != nil {
		return saveErr
	}
	if err != nil {
		// Written, but the table failed its follow-up scan.
		return formatter.Violation("table failed validation after insert", err)
	}

	formatter.VerboseLog("inserted %d document(s) into %s", len(ids), table)
	return formatter.Success(WriteResult{Table: table, IDs: ids})
}

// badInput reports unusable command input.
func badInput(formatter *OutputFormatter, err error) error {
	if outErr := formatter.Error(ErrCodeBadInput, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "bad input", err)
}

// parseIDs converts --id flag values.
func parseIDs(raw []int) ([]docstore.DocID, error) {
	ids := make([]docstore.DocID, len(raw))
	for i, id := range raw {
		if id <= 0 {
			return nil, fmt.Errorf("invalid document id %d", id)
		}
		ids[i] = docstore.DocID(id)
	}
	return ids, nil
}
