package driven

import (
	"context"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// DecisionTracer receives the resolver's structured decision events for one merge request.
type DecisionTracer interface {
	RecordDecisions(ctx context.Context, mr model.MergeRequest, decisions []model.Decision)
}
