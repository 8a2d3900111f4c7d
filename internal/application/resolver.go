package application

import (
	"strings"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// BlockerInput is the full context of one merge request handed to ResolveBlockers.
// MergeRequest must carry the assignees, reviewers and detailed merge status.
type BlockerInput struct {
	MergeRequest     model.MergeRequest
	Discussions      []model.Discussion
	Approvals        model.ApprovalState
	AllowedReviewers []string // Empty means no restriction.
	MinApprovals     int      // Zero disables the approval short-circuit.
	Policy           model.BlockerPolicy
}

// BlockerResolution is the outcome of ResolveBlockers. Exactly one of Blockers
// (non-empty) or Exclusion (non-empty) is set.
type BlockerResolution struct {
	Blockers  []string
	Exclusion model.ExclusionReason
	Decisions []model.Decision
}

// Excluded reports whether the merge request should get no reminder at all.
func (r BlockerResolution) Excluded() bool {
	return r.Exclusion != model.ExclusionNone
}

func (r *BlockerResolution) record(d model.Decision) {
	r.Decisions = append(r.Decisions, d)
}

func (r BlockerResolution) exclude(reason model.ExclusionReason) BlockerResolution {
	r.Blockers = nil
	r.Exclusion = reason
	r.record(model.Decision{Kind: model.DecisionExcluded, Reason: reason})
	return r
}

// ResolveBlockers computes which usernames currently block a merge request.
// It is a pure function of its input: the same input always yields the same
// resolution, and nothing outside the returned value is modified.
//
// The steps run in a fixed order, each narrowing the candidates:
// requested-changes exclusion, approval threshold, unresolved discussions,
// pending approvers, author and assignee removal, allow-list, approved users.
func ResolveBlockers(in BlockerInput) BlockerResolution {
	var res BlockerResolution
	mr := in.MergeRequest

	if mr.DetailedMergeStatus == model.MergeStatusRequestedChanges {
		res.record(model.Decision{Kind: model.DecisionChangesRequested})
		return res.exclude(model.ExclusionChangesRequested)
	}

	team := newUserSet(mr.Team())
	assignees := newUserSet(mr.Assignees)
	allowed := newUserSet(in.AllowedReviewers)
	approvedNames := in.Approvals.ApprovedUsernames()
	approved := newUserSet(approvedNames)

	approvalCount := countApprovals(approvedNames, allowed)
	res.record(model.Decision{Kind: model.DecisionApprovalsCounted, Count: approvalCount})
	if in.MinApprovals > 0 && approvalCount >= in.MinApprovals {
		res.record(model.Decision{Kind: model.DecisionApprovalsMet, Count: approvalCount})
		return res.exclude(model.ExclusionApproved)
	}

	// owed holds assignees blamed by a discussion; they survive assignee removal.
	owed := make(userSet)
	var fromThreads []string

	for _, d := range in.Discussions {
		starter, awaiting := res.judgeDiscussion(d, team)
		if !awaiting {
			continue
		}

		if in.Policy == model.BlockerPolicyAssignees {
			for _, a := range mr.Assignees {
				owed.add(a)
			}
			fromThreads = append(fromThreads, mr.Assignees...)
		} else {
			fromThreads = append(fromThreads, starter)
		}
	}

	pending := in.Approvals.PendingApprovers()
	if len(pending) > 0 {
		res.record(model.Decision{Kind: model.DecisionPendingApprovers, Usernames: pending})
	}

	candidates := model.UniqueUsernames(fromThreads, pending)

	candidates, removed := partition(candidates, func(u string) bool {
		return !strings.EqualFold(u, mr.Author)
	})
	if len(removed) > 0 {
		res.record(model.Decision{Kind: model.DecisionAuthorRemoved, Usernames: removed})
	}

	candidates, removed = partition(candidates, func(u string) bool {
		return !assignees.has(u) || owed.has(u)
	})
	if len(removed) > 0 {
		res.record(model.Decision{Kind: model.DecisionAssigneesRemoved, Usernames: removed})
	}

	if len(allowed) > 0 {
		candidates, removed = partition(candidates, allowed.has)
		if len(removed) > 0 {
			res.record(model.Decision{Kind: model.DecisionNotAllowed, Usernames: removed})
		}
		if len(candidates) == 0 {
			return res.exclude(model.ExclusionNoAllowedBlocker)
		}
	}

	candidates, removed = partition(candidates, func(u string) bool {
		return !approved.has(u)
	})
	if len(removed) > 0 {
		res.record(model.Decision{Kind: model.DecisionApprovedRemoved, Usernames: removed})
	}

	if len(candidates) == 0 {
		return res.exclude(model.ExclusionNoBlockers)
	}

	res.Blockers = candidates
	res.record(model.Decision{Kind: model.DecisionBlocked, Usernames: candidates})
	return res
}

// judgeDiscussion decides whether a discussion is waiting on the team and
// returns the username of the note that started it.
func (r *BlockerResolution) judgeDiscussion(d model.Discussion, team userSet) (string, bool) {
	notes := d.Chronological()
	if len(notes) == 0 {
		return "", false
	}

	starter := notes[0].Author
	if team.has(starter) {
		r.record(model.Decision{Kind: model.DecisionThreadSelfStarted, DiscussionID: d.ID, Usernames: []string{starter}})
		return "", false
	}

	if !d.HasUnresolvedNotes() {
		r.record(model.Decision{Kind: model.DecisionThreadResolved, DiscussionID: d.ID})
		return "", false
	}

	latest := notes[len(notes)-1].Author
	if team.has(latest) {
		r.record(model.Decision{Kind: model.DecisionThreadAnswered, DiscussionID: d.ID, Usernames: []string{latest}})
		return "", false
	}

	r.record(model.Decision{Kind: model.DecisionThreadAwaitingTeam, DiscussionID: d.ID, Usernames: []string{starter}})
	return starter, true
}

// countApprovals counts approvals, restricted to the allow-list when one is set.
func countApprovals(approved []string, allowed userSet) int {
	if len(allowed) == 0 {
		return len(approved)
	}
	count := 0
	for _, u := range approved {
		if allowed.has(u) {
			count++
		}
	}
	return count
}

// partition splits users into those keep accepts and those it rejects, keeping order.
func partition(users []string, keep func(string) bool) ([]string, []string) {
	kept := make([]string, 0, len(users))
	var dropped []string
	for _, u := range users {
		if keep(u) {
			kept = append(kept, u)
		} else {
			dropped = append(dropped, u)
		}
	}
	return kept, dropped
}

// userSet is a case-insensitive set of usernames.
type userSet map[string]struct{}

func newUserSet(users []string) userSet {
	s := make(userSet, len(users))
	for _, u := range users {
		s.add(u)
	}
	return s
}

func (s userSet) add(u string) {
	if u == "" {
		return
	}
	s[strings.ToLower(u)] = struct{}{}
}

func (s userSet) has(u string) bool {
	_, ok := s[strings.ToLower(u)]
	return ok
}
