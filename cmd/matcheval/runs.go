package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ricesearch/matcheval/internal/history"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List stored runs, show one, or delete one",
		Long: `Read the run history configured under history (memory or redis). With the
default in-memory history only runs of the current process exist, so this is
mostly useful with a Redis history shared with 'matcheval serve'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			svc, err := newServices(cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close(log)

			format, _ := cmd.Flags().GetString("format")
			w := cmd.OutOrStdout()

			if del, _ := cmd.Flags().GetBool("delete"); del {
				if len(args) != 1 {
					return fmt.Errorf("--delete needs a run id")
				}
				if err := svc.evaluator.DeleteRun(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(w, "Deleted run %s\n", args[0])
				return nil
			}

			if len(args) == 1 {
				run, err := svc.evaluator.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := svc.evaluator.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %-8s  %s  %s\n", r.ID, r.Kind, r.CreatedAt.Format("2006-01-02 15:04:05"), summary(r))
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum number of runs to list")
	cmd.Flags().Bool("delete", false, "delete the given run")

	return cmd
}

func summary(r *history.Run) string {
	switch r.Kind {
	case history.KindPRAUC:
		return fmt.Sprintf("score=%.4f rows=%d categories=%d", r.Score, r.Rows, len(r.Categories))
	case history.KindGrouping:
		return fmt.Sprintf("observations=%d same=%d different=%d", r.Observations, r.SameGroups, r.DifferentGroups)
	default:
		return ""
	}
}
