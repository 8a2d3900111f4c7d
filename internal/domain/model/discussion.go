package model

import (
	"sort"
	"time"
)

// Discussion is one review thread on a merge request.
type Discussion struct {
	ID    string
	Notes []Note
}

// Note is a single comment inside a discussion.
type Note struct {
	ID         int64
	Author     string
	CreatedAt  time.Time
	Resolvable bool
	Resolved   bool
}

// Unresolved reports whether the note still needs to be resolved.
func (n Note) Unresolved() bool {
	return n.Resolvable && !n.Resolved
}

// Chronological returns a copy of the notes sorted by creation time, oldest first.
// The API usually returns notes in order but it is not relied upon.
func (d Discussion) Chronological() []Note {
	notes := make([]Note, len(d.Notes))
	copy(notes, d.Notes)
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
	return notes
}

// HasUnresolvedNotes returns true if any resolvable note is not yet resolved.
func (d Discussion) HasUnresolvedNotes() bool {
	for _, n := range d.Notes {
		if n.Unresolved() {
			return true
		}
	}
	return false
}
