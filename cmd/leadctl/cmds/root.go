package cmds

import (
	"github.com/go-go-golems/leadctl/pkg/config"
	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newTuiCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newArtifactsCmd())
	root.AddCommand(newDraftsCmd())
	root.AddCommand(newConfigCmd())
	return nil
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .leadctl.yaml in the working or home directory)")
	root.PersistentFlags().String("server", "", "Job runner base URL, e.g. http://localhost:8000")
	root.PersistentFlags().Duration("timeout", 0, "Per-request timeout for the job runner API")
	root.PersistentFlags().String("state-dir", "", "Directory for the persisted snapshot and event journal")
	root.PersistentFlags().Bool("no-persist", false, "Do not write the last-known state to disk")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}

func newClient(cfg *config.Config) *jobclient.Client {
	return jobclient.New(cfg.JobClientOptions())
}
