package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [config-file]",
		Short: "Validate configuration and GitLab access",
		Long: `Load the configuration, verify the access token against GitLab and list
the projects of the configured group. Nothing is posted to Slack.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(args)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			client := newGitLabClient(cfg)

			username, err := client.CurrentUser(ctx)
			if err != nil {
				return err
			}

			projects, err := client.FetchGroupProjects(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Authenticated as %s on %s\n", username, cfg.GitLab.ExternalURL)
			fmt.Fprintf(out, "Group %s has %d projects\n", cfg.GitLab.Group, len(projects))
			if cfg.ValidateNotifier() != nil {
				fmt.Fprintln(out, "Warning: no Slack webhook configured, only --dry-run will work")
			}
			return nil
		},
	}
}
