package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ricesearch/matcheval/internal/dataset"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <table> <file.csv>",
		Short: "Load a CSV file into a SQLite table",
		Long: `Create (or replace) a table in the SQLite database from a CSV file, so that
prauc and group can read it with --sqlite.

Example:
  matcheval import --sqlite eval.db targets truth.csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("sqlite")
			if dbPath == "" {
				return fmt.Errorf("--sqlite is required")
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[1], err)
			}
			defer f.Close()

			tbl, err := dataset.ReadCSV(f)
			if err != nil {
				return err
			}

			db, err := dataset.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.WriteTable(cmd.Context(), args[0], tbl); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", len(tbl.Records), args[0])
			return nil
		},
	}

	cmd.Flags().String("sqlite", "", "SQLite database path (created if missing)")

	return cmd
}
