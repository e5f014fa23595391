package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ricesearch/matcheval/internal/dataset"
	"github.com/ricesearch/matcheval/internal/grouping"
)

var observationsSource = tableSource{csvFlag: "input", tableFlag: "table"}

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Group identifiers from same/different pair judgments",
		Long: `Read pairs (variantid1, variantid2, target) and build two partitions:
groups of variants judged the same product (target 1) and groups connected
by "different" judgments (target 0). Relations are transitive within each
partition and the partitions never interact.

Examples:
  matcheval group --input pairs.csv
  matcheval group --sqlite eval.db --table targets --format yaml -o groups.yaml`,
		RunE: runGroup,
	}

	observationsSource.register(cmd, "pair judgments", "targets")
	cmd.Flags().String("sqlite", "", "SQLite database holding the pair table")
	cmd.Flags().String("strategy", "", "grouper: "+grouping.StrategyNames()+" (default from config)")
	cmd.Flags().StringP("output", "o", "", "write groups to this file instead of stdout")

	return cmd
}

func runGroup(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	strategyName := cfg.Grouping.Strategy
	if cmd.Flags().Changed("strategy") {
		strategyName, _ = cmd.Flags().GetString("strategy")
	}
	strategy, err := grouping.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := openSQLite(cmd)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	tbl, err := observationsSource.load(ctx, cmd, db)
	if err != nil {
		return err
	}
	obs, err := dataset.Observations(tbl)
	if err != nil {
		return err
	}

	svc, err := newServices(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close(log)

	out, err := svc.evaluator.GroupPairs(ctx, obs, grouping.Options{
		Strategy:      strategy,
		ProgressEvery: cfg.Grouping.ProgressEvery,
	}, "cli")
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "text" {
		format = "json"
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return dataset.WriteGroups(cmd.OutOrStdout(), out.Result, format)
	}
	return writeGroupsFile(path, out.Result, format)
}

// writeGroupsFile writes groups to path. A failed close is reported, since
// buffered data may not have reached the disk.
func writeGroupsFile(path string, res grouping.Result[int64], format string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return dataset.WriteGroups(f, res, format)
}
