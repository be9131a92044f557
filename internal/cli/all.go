package cli

import (
	"github.com/spf13/cobra"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
)

// DocumentView is one stored document as printed by the all command.
type DocumentView struct {
	ID  docstore.DocID    `json:"id" yaml:"id"`
	Doc docstore.Document `json:"doc" yaml:"doc"`
}

// NewAllCommand creates the all command.
func NewAllCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all <table>",
		Short: "Print every document of a table",
		Long: `Print every document of a table in ID order. Dates and times are
printed as ISO-8601 strings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runAll(opts *RootOptions, cmd *cobra.Command, table string) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	s, err := openSession(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	t, _, err := s.openTable(ctx, table)
	if err != nil {
		return err
	}

	entries, err := t.Documents(ctx)
	if err != nil {
		return formatter.Violation("failed to read documents", err)
	}

	views := make([]DocumentView, len(entries))
	for i, e := range entries {
		views[i] = DocumentView{ID: e.ID, Doc: e.Doc}
	}
	return formatter.Success(views)
}
