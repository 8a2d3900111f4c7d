package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

var remindNow = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func staleMR(iid int, title string, daysSinceUpdate int) model.MergeRequest {
	return model.MergeRequest{
		IID:       iid,
		ProjectID: 1,
		Title:     title,
		Author:    "carol",
		WebURL:    "https://gitlab.example.com/mr",
		CreatedAt: remindNow.AddDate(0, 0, -30),
		UpdatedAt: remindNow.AddDate(0, 0, -daysSinceUpdate),
		Blockers:  []string{"alice"},
	}
}

func newTestReminderService(source MergeRequestSource, notifier *mockNotifier) *ReminderService {
	staleness := StalenessPolicy{Unit: model.StalenessDays, NormalThreshold: 5, WIPThreshold: 14}
	formatter := NewFormatter(FormatterOptions{Staleness: staleness})
	return NewReminderService(source, notifier, formatter, staleness).
		WithClock(func() time.Time { return remindNow })
}

func TestReminderService_SendsStaleOnly(t *testing.T) {
	notifier := &mockNotifier{}
	source := stubSource{mrs: []model.MergeRequest{
		staleMR(1, "Old change", 10),
		staleMR(2, "Fresh change", 2),
		staleMR(3, "[WIP] Old draft", 10),
		staleMR(4, "", 40),
	}}

	result, err := newTestReminderService(source, notifier).Remind(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSent, result.Outcome)
	require.Len(t, result.Stale, 1)
	assert.Equal(t, 1, result.Stale[0].IID)
	require.Len(t, notifier.sent, 1)
	require.Len(t, notifier.sent[0].Attachments, 1)
	assert.Contains(t, notifier.sent[0].Attachments[0].Text, "Old change")
}

func TestReminderService_NoReminders(t *testing.T) {
	notifier := &mockNotifier{}
	source := stubSource{mrs: []model.MergeRequest{staleMR(2, "Fresh change", 1)}}

	result, err := newTestReminderService(source, notifier).Remind(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoReminders, result.Outcome)
	assert.Empty(t, notifier.sent)
}

func TestReminderService_DryRunNeverSends(t *testing.T) {
	notifier := &mockNotifier{}
	source := stubSource{mrs: []model.MergeRequest{staleMR(1, "Old change", 10)}}

	result, err := newTestReminderService(source, notifier).Remind(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, model.OutcomeDryRun, result.Outcome)
	assert.Len(t, result.Message.Attachments, 1)
	assert.Empty(t, notifier.sent)
}

func TestReminderService_SendFailure(t *testing.T) {
	notifier := &mockNotifier{sendFn: func(context.Context, model.Message) error {
		return errors.New("webhook returned 500")
	}}
	source := stubSource{mrs: []model.MergeRequest{staleMR(1, "Old change", 10)}}

	_, err := newTestReminderService(source, notifier).Remind(context.Background(), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending reminder")
	assert.Contains(t, err.Error(), "webhook returned 500")
}

func TestReminderService_SourceFailure(t *testing.T) {
	notifier := &mockNotifier{}
	source := stubSource{err: errors.New("group not found")}

	_, err := newTestReminderService(source, notifier).Remind(context.Background(), false)

	require.Error(t, err)
	assert.Empty(t, notifier.sent)
}
