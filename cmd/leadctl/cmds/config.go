package cmds

import (
	"fmt"

	"github.com/go-go-golems/leadctl/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the leadctl configuration",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter " + config.DefaultConfigFilename,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFilename
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after files, env and flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			feedURL, err := cfg.FeedURL()
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(map[string]any{
				"server.base_url":                  cfg.Server.BaseURL,
				"server.timeout":                   cfg.Server.Timeout.String(),
				"transport.url":                    feedURL,
				"transport.enabled":                cfg.Transport.Enabled,
				"transport.reconnect_delay":        cfg.Transport.ReconnectDelay.String(),
				"transport.max_reconnect_attempts": cfg.Transport.MaxReconnectAttempts,
				"transport.ping_interval":          cfg.Transport.PingInterval.String(),
				"run.niche":                        cfg.Run.Niche,
				"run.max_sites":                    cfg.Run.MaxSites,
				"state.dir":                        cfg.State.Dir,
				"state.persist":                    cfg.State.Persist,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}
