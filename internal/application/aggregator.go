// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
	"github.com/ericfisherdev/mrreminder/internal/domain/port/driven"
)

// defaultConcurrency bounds in-flight GitLab work units when none is configured.
const defaultConcurrency = 8

// AggregatorOptions carries the resolver settings shared by every merge request.
type AggregatorOptions struct {
	AllowedReviewers []string
	MinApprovals     int
	Policy           model.BlockerPolicy
	Concurrency      int
}

// Aggregator collects the open merge requests of every project in the group
// and keeps those with at least one blocker.
type Aggregator struct {
	client driven.GitLabClient
	tracer driven.DecisionTracer
	opts   AggregatorOptions
	logger *slog.Logger
}

// NewAggregator creates a new Aggregator with all required dependencies.
func NewAggregator(client driven.GitLabClient, tracer driven.DecisionTracer, opts AggregatorOptions) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Policy == "" {
		opts.Policy = model.BlockerPolicyReviewer
	}
	return &Aggregator{
		client: client,
		tracer: tracer,
		opts:   opts,
		logger: slog.Default(),
	}
}

// FilteredMergeRequests returns every open merge request of the group that has
// blockers, with Blockers populated. Failing to list the group's projects is
// fatal; a project whose merge requests cannot be listed is logged and skipped.
func (a *Aggregator) FilteredMergeRequests(ctx context.Context) ([]model.MergeRequest, error) {
	start := time.Now()

	projects, err := a.client.FetchGroupProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching group projects: %w", err)
	}

	sem := semaphore.NewWeighted(int64(a.opts.Concurrency))
	perProject := make([][]model.MergeRequest, len(projects))
	var failedProjects, scanned atomic.Int64

	var g errgroup.Group
	for i, project := range projects {
		g.Go(func() error {
			mrs, err := a.projectMergeRequests(ctx, sem, project)
			if err != nil {
				a.logger.Error("project merge requests failed", "project", project.Name, "project_id", project.ID, "error", err)
				failedProjects.Add(1)
				return nil
			}
			scanned.Add(int64(len(mrs)))
			perProject[i] = a.resolveAll(ctx, sem, mrs)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var blocked []model.MergeRequest
	for _, mrs := range perProject {
		blocked = append(blocked, mrs...)
	}

	a.logger.Info("merge requests aggregated",
		"projects", len(projects),
		"failed_projects", failedProjects.Load(),
		"merge_requests", scanned.Load(),
		"blocked", len(blocked),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return blocked, nil
}

// projectMergeRequests lists a project's open merge requests while holding one
// concurrency slot.
func (a *Aggregator) projectMergeRequests(ctx context.Context, sem *semaphore.Weighted, project model.Project) ([]model.MergeRequest, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)

	mrs, err := a.client.FetchOpenMergeRequests(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	for i := range mrs {
		mrs[i].ProjectID = project.ID
		mrs[i].ProjectName = project.Name
	}
	return mrs, nil
}

// resolveAll runs the resolver for each merge request concurrently and returns
// the blocked ones in their original order.
func (a *Aggregator) resolveAll(ctx context.Context, sem *semaphore.Weighted, mrs []model.MergeRequest) []model.MergeRequest {
	results := make([]*model.MergeRequest, len(mrs))

	var g errgroup.Group
	for i, mr := range mrs {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			if resolved, ok := a.resolveOne(ctx, mr); ok {
				results[i] = &resolved
			}
			return nil
		})
	}
	_ = g.Wait()

	blocked := make([]model.MergeRequest, 0, len(mrs))
	for _, mr := range results {
		if mr != nil {
			blocked = append(blocked, *mr)
		}
	}
	return blocked
}

// resolveOne fetches the detail, discussions and approvals of a merge request
// and runs the resolver. Each fetch is independent: a failure is logged and
// that source is treated as empty.
func (a *Aggregator) resolveOne(ctx context.Context, mr model.MergeRequest) (model.MergeRequest, bool) {
	var (
		detail      *model.MergeRequest
		discussions []model.Discussion
		approvals   model.ApprovalState
	)

	var g errgroup.Group
	g.Go(func() error {
		d, err := a.client.FetchMergeRequest(ctx, mr.ProjectID, mr.IID)
		if err != nil {
			a.logger.Warn("fetch merge request detail failed, using list data", "project", mr.ProjectName, "mr", mr.IID, "error", err)
			return nil
		}
		detail = d
		return nil
	})
	g.Go(func() error {
		d, err := a.client.FetchDiscussions(ctx, mr.ProjectID, mr.IID)
		if err != nil {
			a.logger.Warn("fetch discussions failed, assuming none", "project", mr.ProjectName, "mr", mr.IID, "error", err)
			return nil
		}
		discussions = d
		return nil
	})
	g.Go(func() error {
		ap, err := a.client.FetchApprovals(ctx, mr.ProjectID, mr.IID)
		if err != nil {
			a.logger.Warn("fetch approvals failed, assuming none", "project", mr.ProjectName, "mr", mr.IID, "error", err)
			return nil
		}
		approvals = ap
		return nil
	})
	_ = g.Wait()

	if detail != nil {
		mr = mergeDetail(mr, *detail)
	}

	res := ResolveBlockers(BlockerInput{
		MergeRequest:     mr,
		Discussions:      discussions,
		Approvals:        approvals,
		AllowedReviewers: a.opts.AllowedReviewers,
		MinApprovals:     a.opts.MinApprovals,
		Policy:           a.opts.Policy,
	})
	a.tracer.RecordDecisions(ctx, mr, res.Decisions)

	if res.Excluded() {
		return mr, false
	}
	mr.Blockers = res.Blockers
	return mr, true
}

// mergeDetail overlays the single-MR view on the list entry. The list entry
// keeps any field the detail left empty.
func mergeDetail(mr, detail model.MergeRequest) model.MergeRequest {
	if detail.Author != "" {
		mr.Author = detail.Author
	}
	if detail.DetailedMergeStatus != "" {
		mr.DetailedMergeStatus = detail.DetailedMergeStatus
	}
	if detail.Assignees != nil {
		mr.Assignees = detail.Assignees
	}
	if detail.Reviewers != nil {
		mr.Reviewers = detail.Reviewers
	}
	mr.WorkInProgress = mr.WorkInProgress || detail.WorkInProgress
	return mr
}
