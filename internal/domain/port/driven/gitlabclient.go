package driven

import (
	"context"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// GitLabClient defines the driven port for reading merge request data from GitLab.
// List methods return an error when any page fails; per-MR methods are expected
// to be treated as optional data by callers.
type GitLabClient interface {
	// FetchGroupProjects returns every project of the configured group.
	FetchGroupProjects(ctx context.Context) ([]model.Project, error)
	// FetchOpenMergeRequests returns every open merge request of a project.
	FetchOpenMergeRequests(ctx context.Context, projectID int64) ([]model.MergeRequest, error)
	// FetchMergeRequest returns the single merge request view, which carries
	// assignees, reviewers and detailed_merge_status.
	FetchMergeRequest(ctx context.Context, projectID int64, iid int) (*model.MergeRequest, error)
	// FetchDiscussions returns all discussion threads of a merge request.
	FetchDiscussions(ctx context.Context, projectID int64, iid int) ([]model.Discussion, error)
	// FetchApprovals returns the approval state of a merge request.
	FetchApprovals(ctx context.Context, projectID int64, iid int) (model.ApprovalState, error)
	// CurrentUser returns the username the access token belongs to.
	CurrentUser(ctx context.Context) (string, error)
}
