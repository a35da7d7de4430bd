package cmds

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-go-golems/leadctl/pkg/config"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/state"
	"github.com/go-go-golems/leadctl/pkg/transport"
	"github.com/go-go-golems/leadctl/pkg/tui"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type watchOptions struct {
	Seed         bool
	ExitOnFinish bool
	Journal      bool
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the pipeline event feed and print progress lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Seed, "seed", true, "Start from the runner's status snapshot instead of an idle state")
	cmd.Flags().BoolVar(&opts.ExitOnFinish, "exit-on-finish", false, "Exit once the run completes or fails")
	cmd.Flags().BoolVar(&opts.Journal, "journal", true, "Append every feed event to the events journal in the state dir")
	return cmd
}

func runWatch(ctx context.Context, cfg *config.Config, opts watchOptions, out io.Writer) error {
	topts, err := cfg.TransportOptions()
	if err != nil {
		return err
	}
	if !topts.Enabled {
		return errors.New("transport is disabled (transport.enabled=false)")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	initial := pipeline.Initial()
	if opts.Seed {
		res := newClient(cfg).Status(ctx)
		if res.OK() {
			initial = res.Data.Normalize()
		} else {
			log.Warn().Str("error", res.Error).Msg("status seed failed, starting idle")
		}
	}
	store := pipeline.NewStoreFrom(pipeline.Reducer{}, initial)

	var writer *state.Writer
	if cfg.State.Persist {
		writer = state.NewWriter(cfg.State.Dir, cfg.Server.BaseURL)
		snap, err := state.LoadOptional(cfg.State.Dir)
		if err != nil {
			log.Debug().Err(err).Msg("could not read last-known state")
		} else if snap != nil {
			writer.SetLastRun(snap.LastRun)
		}
		store.Subscribe(writer.Submit)
	}

	var journal *state.Journal
	if opts.Journal {
		journal, err = state.OpenJournal(cfg.State.Dir)
		if err != nil {
			return err
		}
		defer func() { _ = journal.Close() }()
	}

	var outMu sync.Mutex
	printf := func(format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		_, _ = fmt.Fprintf(out, format, args...)
	}

	feed := transport.New(topts)
	defer feed.Close()

	done := make(chan struct{})
	var doneOnce sync.Once

	feed.OnOpen(func() { printf("%s feed connected %s\n", stamp(time.Now()), topts.URL) })
	feed.OnClose(func(err error) {
		msg := "feed disconnected"
		if err != nil {
			msg += ": " + err.Error()
		}
		if n := feed.Attempts(); n > 0 {
			msg += fmt.Sprintf(" (reconnect attempt %d/%d)", n, topts.MaxReconnectAttempts)
		}
		printf("%s %s\n", stamp(time.Now()), msg)
	})
	feed.OnMessage(func(ev protocol.Event) {
		now := time.Now()
		if journal != nil {
			if err := journal.Append(ev, now); err != nil {
				log.Debug().Err(err).Msg("journal append failed")
			}
		}
		if started, ok := ev.(protocol.PipelineStarted); ok && started.Config != nil && writer != nil {
			writer.SetLastRun(started.Config)
		}
		st, changed := store.Apply(ev)
		if _, text, ok := tui.DescribeEvent(ev); ok && text != "" {
			line := fmt.Sprintf("%s %s", stamp(now), text)
			if changed {
				line += fmt.Sprintf("  [%5.1f%%]", pipeline.OverallProgress(st))
			}
			printf("%s\n", line)
		}
		if opts.ExitOnFinish && (st.Status == pipeline.StatusCompleted || st.Status == pipeline.StatusFailed) && changed {
			doneOnce.Do(func() { close(done) })
		}
	})

	printf("%s %s, %d/%d steps done\n", stamp(time.Now()), initial.Status, pipeline.CompletedSteps(initial), len(protocol.Steps))

	eg, egCtx := errgroup.WithContext(ctx)
	if writer != nil {
		eg.Go(func() error { return writer.Run(egCtx) })
	}
	eg.Go(func() error {
		feed.Connect()
		select {
		case <-egCtx.Done():
		case <-done:
		}
		feed.Close()
		cancel()
		return nil
	})
	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "watch")
	}

	final := store.Snapshot()
	if opts.ExitOnFinish && final.Status == pipeline.StatusFailed {
		return errors.Errorf("pipeline failed: %s", final.Error)
	}
	return nil
}

func stamp(t time.Time) string {
	return t.Format("15:04:05")
}
