package model

import (
	"time"
)

type Post struct {
	ID          string
	Title       string
	Slug        string
	Content     string
	AuthorID    string
	CategoryID  string
	CreatedAt   time.Time
	PublishedAt *time.Time // nil while the post is a draft

	// Populated on reads.
	AuthorUsername string
	CategoryName   string
	Tags           []string
}

// OwnerID is the user that owns the post.
func (p *Post) OwnerID() string {
	if p == nil {
		return ""
	}
	return p.AuthorID
}
