package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mrreminder/internal/application"
	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

func newRemindCommand(root *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "remind [config-file]",
		Short: "Send one reminder for stale blocked merge requests",
		Long: `Collect the open merge requests of the configured group, keep those that
are blocked on someone and stale, and post a single Slack message.

With --dry-run the message is printed instead of posted.

Examples:
  mrreminder remind                  # environment only
  mrreminder remind config.yaml      # file plus environment
  mrreminder remind --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(args)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !dryRun {
				if err := cfg.ValidateNotifier(); err != nil {
					return err
				}
			}

			result, err := newReminderService(cfg).Remind(cmd.Context(), dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Outcome == model.OutcomeDryRun {
				printMessage(out, result)
			}
			fmt.Fprintln(out, result.Outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the message instead of posting it")
	return cmd
}

// printMessage writes the rendered message in a plain-text form.
func printMessage(w io.Writer, result application.RemindResult) {
	fmt.Fprintln(w, result.Message.Text)
	for _, att := range result.Message.Attachments {
		if att.Title != "" {
			fmt.Fprintf(w, "- %s (%s)\n", att.Title, att.TitleLink)
			fmt.Fprintf(w, "  %s\n", att.Text)
			continue
		}
		fmt.Fprintf(w, "- %s\n", att.Text)
	}
}
