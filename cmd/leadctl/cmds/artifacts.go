package cmds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newArtifactsCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "artifacts <step>",
		Short: "Print the latest persisted output of a pipeline step",
		Long:  "Steps with artifacts: " + strings.Join(artifactStepNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := protocol.ValidateStep(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			res := newClient(cfg).FetchStepArtifact(cmd.Context(), step)
			if err := res.Err(); err != nil {
				return errors.Wrapf(err, "fetch %s artifact", step)
			}

			out := cmd.OutOrStdout()
			if raw {
				var buf bytes.Buffer
				if err := json.Indent(&buf, *res.Data, "", "  "); err != nil {
					return errors.Wrap(err, "indent artifact")
				}
				_, _ = fmt.Fprintln(out, buf.String())
				return nil
			}
			lines, err := jobclient.SummarizeArtifact(step, *res.Data)
			if err != nil {
				return err
			}
			for _, l := range lines {
				_, _ = fmt.Fprintln(out, l)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "Print the artifact JSON as returned by the runner")
	return cmd
}

func artifactStepNames() []string {
	var out []string
	for _, s := range protocol.Steps {
		if jobclient.HasArtifact(s) {
			out = append(out, string(s))
		}
	}
	return out
}
