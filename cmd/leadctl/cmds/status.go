package cmds

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/state"
	"github.com/go-go-golems/leadctl/pkg/tui"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool
	var health bool
	var offline bool
	var events int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the pipeline status snapshot",
		Long: "Show the runner's current pipeline status. With --offline, or when the\n" +
			"runner cannot be reached, the last persisted snapshot is shown instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client := newClient(cfg)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if health {
				res := client.Health(ctx)
				if err := res.Err(); err != nil {
					return errors.Wrap(err, "health check")
				}
				_, _ = fmt.Fprintf(out, "%s %s\n", client.BaseURL(), res.Data.Status)
				return nil
			}

			var st pipeline.State
			source := client.BaseURL()
			if offline {
				st, source, err = lastKnown(cfg.State.Dir)
				if err != nil {
					return err
				}
			} else {
				res := client.Status(ctx)
				if res.OK() {
					st = *res.Data
				} else {
					log.Warn().Str("error", res.Error).Msg("runner unreachable, showing last-known state")
					st, source, err = lastKnown(cfg.State.Dir)
					if err != nil {
						return errors.Wrap(res.Err(), "pipeline status")
					}
				}
			}

			if asJSON {
				b, err := json.MarshalIndent(map[string]any{
					"source":  source,
					"state":   st,
					"derived": pipeline.Derive(st),
				}, "", "  ")
				if err != nil {
					return errors.Wrap(err, "marshal status")
				}
				_, _ = fmt.Fprintln(out, string(b))
				return nil
			}

			printState(out, source, st)
			if events > 0 {
				return printRecentEvents(out, cfg.State.Dir, events)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	cmd.Flags().BoolVar(&health, "health", false, "Only check the runner's /health endpoint")
	cmd.Flags().BoolVar(&offline, "offline", false, "Show the last persisted snapshot without contacting the runner")
	cmd.Flags().IntVar(&events, "events", 0, "Also print the last N journaled feed events")
	return cmd
}

func lastKnown(dir string) (pipeline.State, string, error) {
	snap, err := state.LoadOptional(dir)
	if err != nil {
		return pipeline.State{}, "", err
	}
	if snap == nil {
		return pipeline.State{}, "", errors.Errorf("no saved state in %s", dir)
	}
	return snap.State, fmt.Sprintf("%s (saved %s)", state.StatePath(dir), snap.SavedAt.Local().Format("2006-01-02 15:04:05")), nil
}

func printState(w io.Writer, source string, st pipeline.State) {
	d := pipeline.Derive(st)
	_, _ = fmt.Fprintf(w, "Source:   %s\n", source)
	_, _ = fmt.Fprintf(w, "Status:   %s\n", st.Status)
	if st.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:      %s\n", st.RunID)
	}
	_, _ = fmt.Fprintf(w, "Progress: %.1f%% (%d/%d steps)\n\n", d.OverallProgress, d.CompletedSteps, d.TotalSteps)

	for _, step := range protocol.Steps {
		ss := st.Step(step)
		line := fmt.Sprintf("  %-13s %-10s %3d%%", step.Title(), ss.Status, ss.Progress)
		var extra []string
		if ss.DurationMs != nil {
			extra = append(extra, tui.FormatDurationMs(*ss.DurationMs))
		}
		if ss.ItemsProcessed != nil {
			extra = append(extra, fmt.Sprintf("%d items", *ss.ItemsProcessed))
		}
		if ss.Error != "" {
			extra = append(extra, "error: "+ss.Error)
		} else if ss.Message != "" {
			extra = append(extra, ss.Message)
		}
		if len(extra) > 0 {
			line += "  " + strings.Join(extra, ", ")
		}
		_, _ = fmt.Fprintln(w, line)
	}

	if st.Summary != nil {
		s := st.Summary
		_, _ = fmt.Fprintf(w, "\nSummary: %d/%d steps, %d sites in %s\n",
			s.StepsCompleted, s.TotalSteps, s.SitesProcessed, tui.FormatDurationMs(s.TotalDuration))
	}
	if st.Error != "" {
		_, _ = fmt.Fprintf(w, "\nError: %s\n", st.Error)
	}
}

func printRecentEvents(w io.Writer, dir string, n int) error {
	entries, err := state.RecentEvents(dir, n)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "\nLast %d events:\n", len(entries))
	for _, e := range entries {
		ev, err := e.Event()
		if err != nil {
			continue
		}
		if _, text, ok := tui.DescribeEvent(ev); ok {
			_, _ = fmt.Fprintf(w, "  %s %s\n", e.At.Local().Format("15:04:05"), text)
		}
	}
	return nil
}
