package application

import (
	"strings"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// wipTitlePrefixes are matched against the trimmed, lower-cased title.
var wipTitlePrefixes = []string{"[wip]", "wip:"}

// IsWorkInProgress reports whether a merge request is a draft. It returns false
// for a nil merge request or an empty title.
func IsWorkInProgress(mr *model.MergeRequest) bool {
	if mr == nil || mr.Title == "" {
		return false
	}

	if mr.WorkInProgress {
		return true
	}

	title := strings.ToLower(strings.TrimSpace(mr.Title))
	for _, prefix := range wipTitlePrefixes {
		if strings.HasPrefix(title, prefix) {
			return true
		}
	}
	return false
}
