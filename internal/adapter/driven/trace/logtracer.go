// Package trace implements the DecisionTracer port.
package trace

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
	"github.com/ericfisherdev/mrreminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DecisionTracer = (*LogTracer)(nil)

// LogTracer writes one structured log record per resolver decision.
type LogTracer struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogTracer creates a LogTracer that logs at the given level.
func NewLogTracer(logger *slog.Logger, level slog.Level) *LogTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTracer{logger: logger, level: level}
}

// RecordDecisions logs every decision taken for mr.
func (t *LogTracer) RecordDecisions(ctx context.Context, mr model.MergeRequest, decisions []model.Decision) {
	if !t.logger.Enabled(ctx, t.level) {
		return
	}

	for i, d := range decisions {
		attrs := []slog.Attr{
			slog.String("mr", mr.Ref()),
			slog.String("project", mr.ProjectName),
			slog.Int("step", i+1),
			slog.String("decision", string(d.Kind)),
		}
		if d.DiscussionID != "" {
			attrs = append(attrs, slog.String("discussion", d.DiscussionID))
		}
		if len(d.Usernames) > 0 {
			attrs = append(attrs, slog.Any("users", d.Usernames))
		}
		if d.Kind == model.DecisionApprovalsCounted || d.Kind == model.DecisionApprovalsMet {
			attrs = append(attrs, slog.Int("approvals", d.Count))
		}
		if d.Reason != model.ExclusionNone {
			attrs = append(attrs, slog.String("reason", string(d.Reason)))
		}
		t.logger.LogAttrs(ctx, t.level, "resolver decision", attrs...)
	}
}
