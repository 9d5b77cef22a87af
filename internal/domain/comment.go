package domain

import "time"

// Comment belongs to exactly one fault and is immutable once created.
type Comment struct {
	ID        string
	FaultID   string
	UserID    string
	Body      string
	CreatedAt time.Time
}

// CommentDetail is a comment joined with its author's name and role.
type CommentDetail struct {
	Comment
	AuthorName string
	AuthorRole Role
}
