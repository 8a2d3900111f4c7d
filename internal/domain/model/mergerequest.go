package model

import (
	"fmt"
	"time"
)

// MergeRequest represents an open GitLab merge request considered for a reminder.
//
// Required fields (validated at the API boundary): ProjectID, IID, Author.
// Everything else may be zero when the API omits it.
type MergeRequest struct {
	ID                  int64
	IID                 int
	ProjectID           int64
	ProjectName         string
	Title               string
	Author              string
	WebURL              string
	WorkInProgress      bool
	DetailedMergeStatus string
	Assignees           []string
	Reviewers           []string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// Blockers is populated by the aggregator from the resolver output.
	Blockers []string
}

// Ref returns a short human-readable reference such as "42!7".
func (mr MergeRequest) Ref() string {
	return fmt.Sprintf("%d!%d", mr.ProjectID, mr.IID)
}

// Team returns the union of assignees and reviewers in first-seen order.
func (mr MergeRequest) Team() []string {
	return UniqueUsernames(mr.Assignees, mr.Reviewers)
}

// UniqueUsernames concatenates the given lists, dropping empty and repeated names
// while keeping first-seen order.
func UniqueUsernames(lists ...[]string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)
	for _, list := range lists {
		for _, name := range list {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			result = append(result, name)
		}
	}
	return result
}
