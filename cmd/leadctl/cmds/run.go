package cmds

import (
	"fmt"
	"time"

	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var niche string
	var maxSites int
	var step string
	var follow bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a pipeline run (or a single step with --step)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client := newClient(cfg)
			ctx := cmd.Context()

			if step != "" {
				s, err := protocol.ValidateStep(step)
				if err != nil {
					return err
				}
				res := client.RunStep(ctx, s)
				if err := res.Err(); err != nil {
					return errors.Wrapf(err, "run %s", s)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s, res.Data.Message)
				return nil
			}

			if !cmd.Flags().Changed("niche") {
				niche = cfg.Run.Niche
			}
			if !cmd.Flags().Changed("max-sites") {
				maxSites = cfg.Run.MaxSites
			}
			if _, err := jobclient.NewRunRequest(niche, maxSites); err != nil {
				return err
			}

			res := client.Start(ctx, niche, maxSites)
			if err := res.Err(); err != nil {
				return errors.Wrap(err, "start pipeline")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Data.Message)

			if cfg.State.Persist {
				if err := rememberRun(cfg.State.Dir, cfg.Server.BaseURL, niche, maxSites); err != nil {
					log.Debug().Err(err).Msg("could not record last run")
				}
			}

			if !follow {
				return nil
			}
			return runWatch(ctx, cfg, watchOptions{Seed: true, ExitOnFinish: true, Journal: true}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&niche, "niche", "", "Market niche to search, 1-100 characters (defaults to run.niche)")
	cmd.Flags().IntVar(&maxSites, "max-sites", 0, "Sites to process, 1-100 (defaults to run.max_sites)")
	cmd.Flags().StringVar(&step, "step", "", "Run only this step: discovery, verification, audit or outreach")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Watch the run until it finishes")
	return cmd
}

// rememberRun stores the run parameters next to the last-known state so the
// dashboard form can offer them again.
func rememberRun(dir, serverURL, niche string, maxSites int) error {
	req, err := jobclient.NewRunRequest(niche, maxSites)
	if err != nil {
		return err
	}
	snap, err := state.LoadOptional(dir)
	if err != nil {
		return err
	}
	if snap == nil {
		snap = &state.Snapshot{State: pipeline.Initial()}
	}
	snap.SavedAt = time.Now().UTC()
	snap.ServerURL = serverURL
	snap.LastRun = &protocol.RunConfig{Niche: req.Niche, MaxSites: req.MaxSites}
	return state.Save(dir, snap)
}
