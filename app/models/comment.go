package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewComment builds a comment with a fresh id stamped at now.
func NewComment(authorID, text string, now time.Time) Comment {
	return Comment{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
	}
}

// Validate checks if the comment meets all validation requirements
func (c *Comment) Validate() error {
	return validate.Struct(c)
}
