package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patarapolw/tinydb-constraint/internal/constraint"
)

// TableValidation is the validation outcome of one table.
type TableValidation struct {
	Table   string `json:"table" yaml:"table"`
	Valid   bool   `json:"valid" yaml:"valid"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid" yaml:"valid"`
	Tables []TableValidation `json:"tables" yaml:"tables"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [table...]",
		Short: "Check stored documents against their schema",
		Long: `Scan tables and check every stored document against the table schema:
field types, not-null fields and unique fields. Without arguments every
table in the database is checked.

Exit codes:
  0 - Every table is valid
  1 - At least one table violates its schema
  2 - Command error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, tables []string) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	s, err := openSession(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	if len(tables) == 0 {
		tables, err = s.db.Tables(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list tables", err)
		}
	}
	formatter.VerboseLog("validating %d table(s)", len(tables))

	result := ValidationResult{Valid: true, Tables: make([]TableValidation, 0, len(tables))}
	for _, name := range tables {
		t, _, err := s.openTable(ctx, name)
		if err != nil {
			return err
		}

		tv := TableValidation{Table: name, Valid: true}
		if err := t.Refresh(ctx); err != nil {
			code := constraint.ErrorCodeOf(err)
			if code == "" {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to scan table %s", name), err)
			}
			tv.Valid = false
			tv.Code = string(code)
			tv.Message = err.Error()
			result.Valid = false
		}
		result.Tables = append(result.Tables, tv)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
