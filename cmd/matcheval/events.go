package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/matcheval/internal/bus"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show events recorded in the event journal",
		Long: `Print run events written to the journal configured by bus.event_log
(MATCHEVAL_EVENT_LOG). With --replay the events are published again on the
configured bus, for example to feed a freshly started Kafka consumer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("log")
			if path == "" {
				path = cfg.Bus.EventLog
			}
			if path == "" {
				return fmt.Errorf("no event journal configured (set --log or bus.event_log)")
			}

			since, _ := cmd.Flags().GetDuration("since")
			limit, _ := cmd.Flags().GetInt("limit")

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}

			entries, err := bus.ReadJournal(path, from, limit)
			if err != nil {
				return err
			}

			if replay, _ := cmd.Flags().GetBool("replay"); replay {
				// Replaying into a journaled bus would append the events again
				busCfg := cfg.Bus
				busCfg.EventLog = ""
				b, err := bus.NewBus(busCfg, log)
				if err != nil {
					return err
				}
				defer b.Close()

				if err := bus.Replay(cmd.Context(), b, entries); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d events\n", len(entries))
				return nil
			}

			format, _ := cmd.Flags().GetString("format")
			w := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			for _, e := range entries {
				fmt.Fprintf(w, "%s  %-22s  %s  source=%s\n",
					e.Recorded.Format(time.RFC3339), e.Topic, e.Event.ID, e.Event.Source)
			}
			return nil
		},
	}

	cmd.Flags().String("log", "", "journal path (default from config)")
	cmd.Flags().Duration("since", 0, "only events recorded within this window (e.g. 24h)")
	cmd.Flags().Int("limit", 0, "maximum number of events (0 = all)")
	cmd.Flags().Bool("replay", false, "publish the events again on the configured bus")

	return cmd
}
