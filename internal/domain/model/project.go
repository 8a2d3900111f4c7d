package model

// Project represents a GitLab project that belongs to the configured group.
type Project struct {
	ID   int64
	Name string
}
