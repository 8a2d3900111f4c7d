package model

// Approver is a user listed by the approvals endpoint.
type Approver struct {
	Username string
	Approved bool
}

// ApprovalState is the approval data of a single merge request.
// The zero value means "no approval data", which is also what a failed fetch degrades to.
type ApprovalState struct {
	Approvers  []Approver
	ApprovedBy []string
}

// ApprovedUsernames returns everyone who has approved, from either list.
func (a ApprovalState) ApprovedUsernames() []string {
	approved := make([]string, 0, len(a.ApprovedBy)+len(a.Approvers))
	approved = append(approved, a.ApprovedBy...)
	for _, ap := range a.Approvers {
		if ap.Approved {
			approved = append(approved, ap.Username)
		}
	}
	return UniqueUsernames(approved)
}

// PendingApprovers returns listed approvers who have not approved yet.
func (a ApprovalState) PendingApprovers() []string {
	pending := make([]string, 0, len(a.Approvers))
	for _, ap := range a.Approvers {
		if !ap.Approved {
			pending = append(pending, ap.Username)
		}
	}
	return UniqueUsernames(pending)
}
