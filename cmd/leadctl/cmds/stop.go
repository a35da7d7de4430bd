package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the runner to cancel the current run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			res := newClient(cfg).Stop(cmd.Context())
			if err := res.Err(); err != nil {
				return errors.Wrap(err, "stop pipeline")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Data.Message)
			return nil
		},
	}
}
