package gitlab

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// GitLab API response types. Only the fields the reminder needs are decoded.

type apiUser struct {
	Username string `json:"username"`
}

type apiProject struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
}

type apiMergeRequest struct {
	ID                  int64     `json:"id"`
	IID                 int       `json:"iid"`
	ProjectID           int64     `json:"project_id"`
	Title               string    `json:"title"`
	Author              *apiUser  `json:"author"`
	WebURL              string    `json:"web_url"`
	WorkInProgress      bool      `json:"work_in_progress"`
	Draft               bool      `json:"draft"`
	DetailedMergeStatus string    `json:"detailed_merge_status"`
	Assignee            *apiUser  `json:"assignee"`
	Assignees           []apiUser `json:"assignees"`
	Reviewers           []apiUser `json:"reviewers"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type apiDiscussion struct {
	ID    string    `json:"id"`
	Notes []apiNote `json:"notes"`
}

type apiNote struct {
	ID         int64     `json:"id"`
	Author     apiUser   `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	Resolvable bool      `json:"resolvable"`
	Resolved   bool      `json:"resolved"`
}

// apiApprover accepts both the flat {username, approved} shape and the
// nested {user: {username}} shape GitLab uses on some versions.
type apiApprover struct {
	Username string   `json:"username"`
	Approved bool     `json:"approved"`
	User     *apiUser `json:"user"`
}

func (a apiApprover) username() string {
	if a.Username != "" {
		return a.Username
	}
	if a.User != nil {
		return a.User.Username
	}
	return ""
}

type apiApprovals struct {
	Approvers  []apiApprover `json:"approvers"`
	ApprovedBy []struct {
		User apiUser `json:"user"`
	} `json:"approved_by"`
}

var (
	errMissingIID    = errors.New("missing iid")
	errMissingAuthor = errors.New("missing author")
)

// mapProjects converts GitLab projects to domain models, dropping entries
// without an id and duplicates across pages.
func mapProjects(raw []apiProject) []model.Project {
	seen := make(map[int64]bool, len(raw))
	projects := make([]model.Project, 0, len(raw))
	for _, p := range raw {
		if p.ID == 0 || seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		name := p.PathWithNamespace
		if name == "" {
			name = p.Name
		}
		projects = append(projects, model.Project{ID: p.ID, Name: name})
	}
	return projects
}

// mapMergeRequests converts a merge request list, skipping invalid entries
// and duplicates across pages.
func mapMergeRequests(raw []apiMergeRequest, projectID int64) []model.MergeRequest {
	seen := make(map[int]bool, len(raw))
	mrs := make([]model.MergeRequest, 0, len(raw))
	for _, r := range raw {
		mr, err := mapMergeRequest(r, projectID)
		if err != nil {
			slog.Warn("skipping malformed merge request", "project_id", projectID, "id", r.ID, "error", err)
			continue
		}
		if seen[mr.IID] {
			continue
		}
		seen[mr.IID] = true
		mrs = append(mrs, mr)
	}
	return mrs
}

// mapMergeRequest converts one GitLab merge request, enforcing the required
// fields: iid and author.
func mapMergeRequest(r apiMergeRequest, projectID int64) (model.MergeRequest, error) {
	if r.IID == 0 {
		return model.MergeRequest{}, errMissingIID
	}
	if r.Author == nil || r.Author.Username == "" {
		return model.MergeRequest{}, errMissingAuthor
	}

	if r.ProjectID != 0 {
		projectID = r.ProjectID
	}

	assignees := usernames(r.Assignees)
	if len(assignees) == 0 && r.Assignee != nil && r.Assignee.Username != "" {
		assignees = []string{r.Assignee.Username}
	}

	return model.MergeRequest{
		ID:                  r.ID,
		IID:                 r.IID,
		ProjectID:           projectID,
		Title:               r.Title,
		Author:              r.Author.Username,
		WebURL:              r.WebURL,
		WorkInProgress:      r.WorkInProgress || r.Draft,
		DetailedMergeStatus: r.DetailedMergeStatus,
		Assignees:           assignees,
		Reviewers:           usernames(r.Reviewers),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

// mapDiscussions converts discussion threads, dropping notes without an author.
func mapDiscussions(raw []apiDiscussion) []model.Discussion {
	discussions := make([]model.Discussion, 0, len(raw))
	for _, d := range raw {
		notes := make([]model.Note, 0, len(d.Notes))
		for _, n := range d.Notes {
			if n.Author.Username == "" {
				continue
			}
			notes = append(notes, model.Note{
				ID:         n.ID,
				Author:     n.Author.Username,
				CreatedAt:  n.CreatedAt,
				Resolvable: n.Resolvable,
				Resolved:   n.Resolved,
			})
		}
		discussions = append(discussions, model.Discussion{ID: d.ID, Notes: notes})
	}
	return discussions
}

// mapApprovals converts the approvals payload.
func mapApprovals(raw apiApprovals) model.ApprovalState {
	state := model.ApprovalState{
		Approvers:  make([]model.Approver, 0, len(raw.Approvers)),
		ApprovedBy: make([]string, 0, len(raw.ApprovedBy)),
	}
	for _, a := range raw.Approvers {
		if name := a.username(); name != "" {
			state.Approvers = append(state.Approvers, model.Approver{Username: name, Approved: a.Approved})
		}
	}
	for _, ab := range raw.ApprovedBy {
		if ab.User.Username != "" {
			state.ApprovedBy = append(state.ApprovedBy, ab.User.Username)
		}
	}
	return state
}

func usernames(users []apiUser) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		if u.Username != "" {
			names = append(names, u.Username)
		}
	}
	return names
}
