// Package cli implements the mrreminder command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mrreminder/internal/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	verbose    bool
	logFormat  string
	level      *slog.LevelVar
}

// Execute runs the root command with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{level: new(slog.LevelVar)}

	cmd := &cobra.Command{
		Use:   "mrreminder",
		Short: "Remind reviewers about merge requests waiting on them",
		Long: `mrreminder scans every project of a GitLab group, works out who each open
merge request is waiting on, and posts one Slack message listing the merge
requests that have been idle for too long.

Configuration comes from a YAML file, a .env file and environment variables,
in increasing order of precedence.

Example:
  mrreminder remind config.yaml
  mrreminder remind --dry-run --config config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setupLogging(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	cmd.AddCommand(
		newRemindCommand(opts),
		newCheckCommand(opts),
		newConfigCommand(opts),
	)

	return cmd
}

func (o *rootOptions) setupLogging(w io.Writer) error {
	if o.verbose {
		o.level.Set(slog.LevelDebug)
	}

	handlerOpts := &slog.HandlerOptions{Level: o.level}
	var handler slog.Handler
	switch strings.ToLower(o.logFormat) {
	case "text", "":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", o.logFormat)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// loadConfig resolves the config path from the positional argument or the
// --config flag and loads it. A debug setting in the config raises the log
// level for the rest of the run.
func (o *rootOptions) loadConfig(args []string) (*config.Config, error) {
	path := o.configFile
	if len(args) > 0 {
		path = args[0]
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Debug {
		o.level.Set(slog.LevelDebug)
	}

	slog.Debug("config loaded",
		"path", path,
		"gitlab_url", cfg.GitLab.ExternalURL,
		"group", cfg.GitLab.Group,
		"staleness_unit", string(cfg.MR.StalenessUnit),
		"blocker_policy", string(cfg.MR.BlockerPolicy),
		"allowed_reviewers", len(cfg.AllowedReviewers),
	)

	return cfg, nil
}
