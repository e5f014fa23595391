package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ricesearch/matcheval/internal/dataset"
)

// tableSource describes where one input table comes from: a CSV file, or
// a table in the SQLite database given by --sqlite.
type tableSource struct {
	csvFlag   string
	tableFlag string
}

func (ts tableSource) register(cmd *cobra.Command, what, defaultTable string) {
	cmd.Flags().String(ts.csvFlag, "", what+" CSV file")
	cmd.Flags().String(ts.tableFlag, defaultTable, what+" table name when reading from --sqlite")
}

func (ts tableSource) load(ctx context.Context, cmd *cobra.Command, db *dataset.SQLiteSource) (*dataset.Table, error) {
	csvPath, _ := cmd.Flags().GetString(ts.csvFlag)
	table, _ := cmd.Flags().GetString(ts.tableFlag)

	switch {
	case csvPath != "":
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", csvPath, err)
		}
		defer f.Close()
		return dataset.ReadCSV(f)
	case db != nil:
		return db.ReadTable(ctx, table)
	default:
		return nil, fmt.Errorf("either --%s or --sqlite is required", ts.csvFlag)
	}
}

// openSQLite opens --sqlite when it is set.
func openSQLite(cmd *cobra.Command) (*dataset.SQLiteSource, error) {
	path, _ := cmd.Flags().GetString("sqlite")
	if path == "" {
		return nil, nil
	}
	return dataset.OpenSQLite(path)
}
