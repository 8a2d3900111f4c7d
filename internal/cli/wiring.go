package cli

import (
	"log/slog"

	gitlabadapter "github.com/ericfisherdev/mrreminder/internal/adapter/driven/gitlab"
	slackadapter "github.com/ericfisherdev/mrreminder/internal/adapter/driven/slack"
	"github.com/ericfisherdev/mrreminder/internal/adapter/driven/trace"
	"github.com/ericfisherdev/mrreminder/internal/application"
	"github.com/ericfisherdev/mrreminder/internal/config"
)

func newGitLabClient(cfg *config.Config) *gitlabadapter.Client {
	return gitlabadapter.NewClient(gitlabadapter.Options{
		ExternalURL:      cfg.GitLab.ExternalURL,
		Token:            cfg.GitLab.AccessToken,
		Group:            cfg.GitLab.Group,
		IncludeSubgroups: cfg.GitLab.IncludeSubgroups,
		Timeout:          cfg.HTTP.Timeout,
		CacheDir:         cfg.HTTP.CacheDir,
	})
}

func newStalenessPolicy(cfg *config.Config) application.StalenessPolicy {
	return application.StalenessPolicy{
		Unit:            cfg.MR.StalenessUnit,
		NormalThreshold: cfg.NormalThreshold(),
		WIPThreshold:    cfg.WIPThreshold(),
		Location:        cfg.MR.Location,
	}
}

// newReminderService wires the adapters and services for one reminder run.
func newReminderService(cfg *config.Config) *application.ReminderService {
	client := newGitLabClient(cfg)
	tracer := trace.NewLogTracer(slog.Default(), slog.LevelDebug)

	aggregator := application.NewAggregator(client, tracer, application.AggregatorOptions{
		AllowedReviewers: cfg.AllowedReviewers,
		MinApprovals:     cfg.MR.MinApprovalsRequired,
		Policy:           cfg.MR.BlockerPolicy,
		Concurrency:      cfg.HTTP.MaxConcurrency,
	})

	staleness := newStalenessPolicy(cfg)
	formatter := application.NewFormatter(application.FormatterOptions{
		Header:    cfg.Slack.Message,
		Layout:    cfg.Slack.Layout,
		UserMap:   cfg.SlackUserMap,
		Staleness: staleness,
	})

	notifier := slackadapter.NewNotifier(slackadapter.Options{
		WebhookURL: cfg.Slack.WebhookURL,
		Channel:    cfg.Slack.Channel,
		Username:   cfg.Slack.Name,
		IconURL:    cfg.Slack.IconURL,
		Timeout:    cfg.HTTP.Timeout,
	})

	return application.NewReminderService(aggregator, notifier, formatter, staleness)
}
