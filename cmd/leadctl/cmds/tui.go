package cmds

import (
	"context"
	stderrors "errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/go-go-golems/leadctl/pkg/state"
	"github.com/go-go-golems/leadctl/pkg/transport"
	"github.com/go-go-golems/leadctl/pkg/tui"
	"github.com/go-go-golems/leadctl/pkg/tui/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newTuiCmd() *cobra.Command {
	var poll time.Duration
	var altScreen bool
	var journal bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive pipeline dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			topts, err := cfg.TransportOptions()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var snap *state.Snapshot
			if cfg.State.Persist {
				snap, err = state.LoadOptional(cfg.State.Dir)
				if err != nil {
					log.Warn().Err(err).Msg("ignoring unreadable state snapshot")
					snap = nil
				}
			}

			bus, err := tui.NewInMemoryBus(&log.Logger)
			if err != nil {
				return err
			}
			tui.RegisterDomainToUITransformer(bus)

			client := newClient(cfg)
			feed := transport.New(topts)
			defer feed.Close()

			tui.RegisterUIActionRunner(bus, &tui.ActionRunner{
				Client:  client,
				Feed:    feed,
				Timeout: cfg.Server.Timeout,
			})

			var rec tui.EventRecorder
			if journal {
				j, err := state.OpenJournal(cfg.State.Dir)
				if err != nil {
					return err
				}
				defer func() { _ = j.Close() }()
				rec = j
			}
			tui.AttachFeed(bus.Publisher, feed, rec)

			var writer *state.Writer
			opts := models.RootOptions{
				Publish: func(req tui.ActionRequest) error {
					return tui.PublishAction(bus.Publisher, req)
				},
				Niche:    cfg.Run.Niche,
				MaxSites: cfg.Run.MaxSites,
			}
			if cfg.State.Persist {
				writer = state.NewWriter(cfg.State.Dir, cfg.Server.BaseURL)
				opts.Persist = func(st pipeline.State, lastRun *protocol.RunConfig) {
					writer.SetLastRun(lastRun)
					writer.Submit(st)
				}
			}
			if snap != nil {
				opts.Initial = &snap.State
				opts.LastRun = snap.LastRun
			}

			model := models.NewRootModel(opts)
			programOptions := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			}
			if altScreen {
				programOptions = append(programOptions, tea.WithAltScreen())
			}
			program := tea.NewProgram(model, programOptions...)
			tui.RegisterUIForwarder(bus, program)

			poller := &tui.StatusPoller{
				Client:    client,
				Connected: feed.IsConnected,
				Interval:  poll,
				Pub:       bus.Publisher,
			}

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				err := bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				select {
				case <-bus.Running():
				case <-egCtx.Done():
					return nil
				}
				// handlers are subscribed; nothing published from here on is lost
				feed.Connect()
				return poller.Run(egCtx)
			})
			if writer != nil {
				eg.Go(func() error { return writer.Run(egCtx) })
			}
			eg.Go(func() error {
				_, err := program.Run()
				cancel()
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			if err := eg.Wait(); err != nil {
				return errors.Wrap(err, "tui")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&poll, "poll", 5*time.Second, "Status polling interval while the event feed is down")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	cmd.Flags().BoolVar(&journal, "journal", true, "Append every feed event to the events journal in the state dir")
	return cmd
}
