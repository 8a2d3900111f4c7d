package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
	"github.com/ericfisherdev/mrreminder/internal/domain/port/driven"
)

// MergeRequestSource yields the blocked merge requests of the group.
// *Aggregator is the production implementation.
type MergeRequestSource interface {
	FilteredMergeRequests(ctx context.Context) ([]model.MergeRequest, error)
}

// RemindResult is what a reminder run produced.
type RemindResult struct {
	Outcome model.Outcome
	Message model.Message
	Stale   []model.MergeRequest
}

// ReminderService runs one reminder pass: aggregate, filter by staleness,
// render and send.
type ReminderService struct {
	source    MergeRequestSource
	notifier  driven.Notifier
	formatter *Formatter
	staleness StalenessPolicy
	now       func() time.Time
	logger    *slog.Logger
}

// NewReminderService creates a new ReminderService with all required dependencies.
func NewReminderService(
	source MergeRequestSource,
	notifier driven.Notifier,
	formatter *Formatter,
	staleness StalenessPolicy,
) *ReminderService {
	return &ReminderService{
		source:    source,
		notifier:  notifier,
		formatter: formatter,
		staleness: staleness,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// WithClock replaces the service clock. Intended for tests.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// Remind performs one reminder pass. When dryRun is set the message is rendered
// but not sent. A send failure is returned as the run's error.
func (s *ReminderService) Remind(ctx context.Context, dryRun bool) (RemindResult, error) {
	mrs, err := s.source.FilteredMergeRequests(ctx)
	if err != nil {
		return RemindResult{}, err
	}
	s.logger.Info("blocked merge requests found", "count", len(mrs))

	now := s.now()
	stale := make([]model.MergeRequest, 0, len(mrs))
	for _, mr := range mrs {
		if mr.Title == "" {
			continue
		}
		if s.staleness.IsStale(mr, now) {
			stale = append(stale, mr)
		} else {
			s.logger.Debug("merge request not stale yet",
				"mr", mr.Ref(),
				"elapsed", s.staleness.Elapsed(mr.UpdatedAt, now),
				"threshold", s.staleness.Threshold(mr),
				"unit", string(s.staleness.Unit),
			)
		}
	}

	msg := s.formatter.Render(stale, now)
	result := RemindResult{Message: msg, Stale: stale}

	if msg.Empty() {
		s.logger.Info("no reminders needed")
		result.Outcome = model.OutcomeNoReminders
		return result, nil
	}

	s.logger.Info("sending reminders", "count", len(msg.Attachments), "dry_run", dryRun)

	if dryRun {
		result.Outcome = model.OutcomeDryRun
		return result, nil
	}

	if err := s.notifier.Send(ctx, msg); err != nil {
		return result, fmt.Errorf("sending reminder: %w", err)
	}

	result.Outcome = model.OutcomeSent
	return result, nil
}
