package model

// MergeStatusRequestedChanges is the detailed_merge_status GitLab reports once a
// reviewer has requested changes. The author owns the next action.
const MergeStatusRequestedChanges = "requested_changes"

// BlockerPolicy selects who blocks a discussion that is waiting for the team to reply.
type BlockerPolicy string

const (
	// BlockerPolicyReviewer blames the reviewer who started the discussion.
	BlockerPolicyReviewer BlockerPolicy = "reviewer"
	// BlockerPolicyAssignees blames every assignee of the merge request.
	BlockerPolicyAssignees BlockerPolicy = "assignees"
)

// Valid reports whether p is a known policy.
func (p BlockerPolicy) Valid() bool {
	return p == BlockerPolicyReviewer || p == BlockerPolicyAssignees
}

// StalenessUnit selects how elapsed time since the last update is measured.
type StalenessUnit string

const (
	StalenessDays          StalenessUnit = "days"
	StalenessBusinessHours StalenessUnit = "business_hours"
)

// Valid reports whether u is a known unit.
func (u StalenessUnit) Valid() bool {
	return u == StalenessDays || u == StalenessBusinessHours
}

// MessageLayout selects the attachment shape of the chat message.
type MessageLayout string

const (
	// LayoutCompact renders {text, color} attachments with the link inline.
	LayoutCompact MessageLayout = "compact"
	// LayoutTitled renders {title, title_link, text, color} attachments.
	LayoutTitled MessageLayout = "titled"
)

// Valid reports whether l is a known layout.
func (l MessageLayout) Valid() bool {
	return l == LayoutCompact || l == LayoutTitled
}

// ExclusionReason explains why a merge request gets no reminder.
type ExclusionReason string

const (
	ExclusionNone             ExclusionReason = ""
	ExclusionChangesRequested ExclusionReason = "changes_requested"
	ExclusionApproved         ExclusionReason = "sufficiently_approved"
	ExclusionNoAllowedBlocker ExclusionReason = "no_allowed_blocker"
	ExclusionNoBlockers       ExclusionReason = "no_blockers"
)

// Outcome is the user-visible result of a reminder run.
type Outcome string

const (
	OutcomeNoReminders Outcome = "No reminders to send"
	OutcomeSent        Outcome = "Reminder sent"
	OutcomeDryRun      Outcome = "Dry run, reminder not sent"
)
