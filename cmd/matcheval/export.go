package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ricesearch/matcheval/internal/dataset"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <table> [file.csv]",
		Short: "Write a SQLite table as CSV",
		Long: `Dump a table from the SQLite database as CSV with a header row, to a file
or to stdout. This is the reverse of import.

Example:
  matcheval export --sqlite eval.db predictions preds.csv`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			dbPath, _ := cmd.Flags().GetString("sqlite")
			if dbPath == "" {
				return fmt.Errorf("--sqlite is required")
			}

			db, err := dataset.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			tbl, err := db.ReadTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if len(args) == 2 {
				f, ferr := os.Create(args[1])
				if ferr != nil {
					return fmt.Errorf("creating %s: %w", args[1], ferr)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = fmt.Errorf("closing %s: %w", args[1], cerr)
					}
				}()
				w = f
			}

			return dataset.WriteCSV(w, tbl)
		},
	}

	cmd.Flags().String("sqlite", "", "SQLite database path")

	return cmd
}
