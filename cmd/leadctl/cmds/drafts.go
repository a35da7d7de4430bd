package cmds

import (
	"fmt"

	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect and edit outreach email drafts",
	}
	cmd.AddCommand(newDraftsListCmd(), newDraftsUpdateCmd())
	return cmd
}

func newDraftsListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outreach drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			res := newClient(cfg).Outreach(cmd.Context())
			if err := res.Err(); err != nil {
				return errors.Wrapf(err, "fetch %s artifact", protocol.StepOutreach)
			}
			out := cmd.OutOrStdout()
			for _, d := range res.Data.Drafts {
				if status != "" && d.Status != status {
					continue
				}
				_, _ = fmt.Fprintf(out, "%-8s %s\n         %s\n", d.Status, d.StoreURL, d.Subject)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show drafts with this status")
	return cmd
}

func newDraftsUpdateCmd() *cobra.Command {
	var subject, body, status string

	cmd := &cobra.Command{
		Use:   "update <store-url>",
		Short: "Edit the subject, body or status of one draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd jobclient.DraftUpdate
			if cmd.Flags().Changed("subject") {
				upd.Subject = &subject
			}
			if cmd.Flags().Changed("body") {
				upd.Body = &body
			}
			if cmd.Flags().Changed("status") {
				upd.Status = &status
			}
			if upd.Subject == nil && upd.Body == nil && upd.Status == nil {
				return errors.New("nothing to update: pass --subject, --body or --status")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			res := newClient(cfg).UpdateDraft(cmd.Context(), args[0], upd)
			if err := res.Err(); err != nil {
				return errors.Wrap(err, "update draft")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", res.Data.StoreURL, res.Data.Status, res.Data.Subject)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "New subject line")
	cmd.Flags().StringVar(&body, "body", "", "New email body")
	cmd.Flags().StringVar(&status, "status", "", "New status: draft, sent or replied")
	return cmd
}
