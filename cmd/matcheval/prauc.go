package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ricesearch/matcheval/internal/dataset"
	"github.com/ricesearch/matcheval/internal/evaluation"
)

var (
	targetsSource     = tableSource{csvFlag: "targets", tableFlag: "targets-table"}
	predictionsSource = tableSource{csvFlag: "predictions", tableFlag: "predictions-table"}
)

func praucCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prauc",
		Short: "Compute the category-weighted PR-AUC of matcher scores",
		Long: `Join ground truth with predictions on (variantid1, variantid2), score every
category with a precision-gated PR-AUC and report the weighted average.

Ground truth needs variantid1, variantid2, target and the category column.
Predictions need variantid1, variantid2 and scores (or score).

Examples:
  matcheval prauc --targets truth.csv --predictions preds.csv
  matcheval prauc --sqlite eval.db --precision-level 0.8 --format json`,
		RunE: runPRAUC,
	}

	targetsSource.register(cmd, "ground truth", "targets")
	predictionsSource.register(cmd, "predictions", "predictions")
	cmd.Flags().String("sqlite", "", "SQLite database holding the input tables")
	cmd.Flags().Float64("precision-level", 0, "precision floor (default from config)")
	cmd.Flags().String("category-column", "", "ground-truth category column (default from config)")
	cmd.Flags().Int("workers", 0, "categories scored in parallel (default from config)")
	cmd.Flags().String("nan-policy", "", "what a NaN category area becomes: zero or drop")
	cmd.Flags().Bool("symmetric", false, "match (a, b) with (b, a)")

	return cmd
}

func runPRAUC(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := evaluation.Options{
		PrecisionLevel: cfg.Evaluation.PrecisionLevel,
		CategoryColumn: cfg.Evaluation.CategoryColumn,
		Workers:        cfg.Evaluation.Workers,
		NaNPolicy:      evaluation.NaNPolicy(cfg.Evaluation.NaNPolicy),
		Symmetric:      cfg.Evaluation.SymmetricJoin,
	}
	if cmd.Flags().Changed("precision-level") {
		opts.PrecisionLevel, _ = cmd.Flags().GetFloat64("precision-level")
	}
	if cmd.Flags().Changed("category-column") {
		opts.CategoryColumn, _ = cmd.Flags().GetString("category-column")
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("nan-policy") {
		policy, _ := cmd.Flags().GetString("nan-policy")
		opts.NaNPolicy = evaluation.NaNPolicy(policy)
	}
	if cmd.Flags().Changed("symmetric") {
		opts.Symmetric, _ = cmd.Flags().GetBool("symmetric")
	}
	if err := opts.Validate(); err != nil {
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

	truthTable, err := targetsSource.load(ctx, cmd, db)
	if err != nil {
		return err
	}
	truth, err := dataset.LabeledPairs(truthTable, opts.CategoryColumn)
	if err != nil {
		return err
	}

	predTable, err := predictionsSource.load(ctx, cmd, db)
	if err != nil {
		return err
	}
	preds, err := dataset.Predictions(predTable)
	if err != nil {
		return err
	}

	svc, err := newServices(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close(log)

	out, err := svc.evaluator.EvaluatePRAUC(ctx, truth, preds, opts, "cli")
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	return printEvaluation(cmd.OutOrStdout(), out, format)
}

func printEvaluation(w io.Writer, out *evaluation.EvaluationRun, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		// yaml.v3 does not follow json tags, so go through a generic map
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		var generic map[string]any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
	default:
		return fmt.Errorf("unsupported output format %q (must be text, json, or yaml)", format)
	}

	fmt.Fprintf(w, "PR-AUC: %.6f\n", out.Score)
	fmt.Fprintf(w, "  precision level: %.2f\n", out.PrecisionLevel)
	fmt.Fprintf(w, "  rows:            %d\n", out.Rows)
	fmt.Fprintf(w, "  categories:      %d (%s)\n", len(out.Categories), out.CategoryColumn)
	if out.RunID != "" {
		fmt.Fprintf(w, "  run:             %s\n", out.RunID)
	}
	fmt.Fprintln(w)

	width := len("CATEGORY")
	for _, c := range out.Categories {
		width = max(width, len(c.Category))
	}
	fmt.Fprintf(w, "%-*s %8s %9s %8s %8s  %s\n", width, "CATEGORY", "ROWS", "POSITIVE", "WEIGHT", "PR-AUC", "STATUS")
	for _, c := range out.Categories {
		fmt.Fprintf(w, "%-*s %8d %9d %8.4f %8.4f  %s\n",
			width, c.Category, c.Count, c.Positives, c.Weight, c.PRAUC, c.Status)
	}
	return nil
}
