package model

// DecisionKind names a decision point of the blocker resolver.
type DecisionKind string

const (
	DecisionChangesRequested   DecisionKind = "changes_requested"
	DecisionApprovalsCounted   DecisionKind = "approvals_counted"
	DecisionApprovalsMet       DecisionKind = "approvals_met"
	DecisionThreadSelfStarted  DecisionKind = "thread_self_started"
	DecisionThreadResolved     DecisionKind = "thread_resolved"
	DecisionThreadAnswered     DecisionKind = "thread_answered"
	DecisionThreadAwaitingTeam DecisionKind = "thread_awaiting_team"
	DecisionPendingApprovers   DecisionKind = "pending_approvers"
	DecisionAuthorRemoved      DecisionKind = "author_removed"
	DecisionAssigneesRemoved   DecisionKind = "assignees_removed"
	DecisionNotAllowed         DecisionKind = "not_allowed"
	DecisionApprovedRemoved    DecisionKind = "approved_removed"
	DecisionExcluded           DecisionKind = "excluded"
	DecisionBlocked            DecisionKind = "blocked"
)

// Decision is a structured trace event emitted at one resolver decision point.
// It carries data only; rendering is left to the DecisionTracer.
type Decision struct {
	Kind         DecisionKind
	DiscussionID string   // Set for per-thread decisions.
	Usernames    []string // Users the decision added, removed or kept.
	Count        int      // Approval count for approval decisions.
	Reason       ExclusionReason
}
