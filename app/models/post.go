package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Validate checks field rules plus the reaction and comment invariants.
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}

	if !p.ExpiresAt.After(p.CreatedAt) {
		return errors.New("expires_at must be after created_at")
	}

	for _, uid := range p.Likes {
		if slices.Contains(p.Dislikes, uid) {
			return fmt.Errorf("user %s both likes and dislikes the post", uid)
		}
	}

	seen := make(map[string]struct{}, len(p.Comments))
	for _, c := range p.Comments {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate comment id %s", c.ID)
		}
		seen[c.ID] = struct{}{}
	}

	return nil
}

// StatusAt reports Live while now is strictly before ExpiresAt.
func (p *Post) StatusAt(now time.Time) Status {
	if now.Before(p.ExpiresAt) {
		return StatusLive
	}
	return StatusExpired
}

// Score is the interest measure: every reaction counts once.
func (p *Post) Score() int {
	return len(p.Likes) + len(p.Dislikes)
}

func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

func (p *Post) DislikedBy(userID string) bool {
	return slices.Contains(p.Dislikes, userID)
}

// AddLike records a like. It refuses users who already reacted either way:
// a standing dislike is not withdrawn by liking.
func (p *Post) AddLike(userID string) bool {
	if p.LikedBy(userID) || p.DislikedBy(userID) {
		return false
	}
	p.Likes = append(p.Likes, userID)
	return true
}

// RemoveLike drops userID from the likes and reports whether it was there.
func (p *Post) RemoveLike(userID string) bool {
	i := slices.Index(p.Likes, userID)
	if i < 0 {
		return false
	}
	p.Likes = slices.Delete(p.Likes, i, i+1)
	return true
}

// AddDislike records a dislike and withdraws any like by the same user.
func (p *Post) AddDislike(userID string) bool {
	if p.DislikedBy(userID) {
		return false
	}
	p.RemoveLike(userID)
	p.Dislikes = append(p.Dislikes, userID)
	return true
}

// AddComment appends a comment to the post
func (p *Post) AddComment(comment Comment) error {
	if comment.ID == "" {
		return errors.New("comment id cannot be empty")
	}
	p.Comments = append(p.Comments, comment)
	return nil
}

// RemoveComment deletes the comment with commentID written by authorID,
// keeping the order of the rest.
func (p *Post) RemoveComment(commentID, authorID string) bool {
	i := slices.IndexFunc(p.Comments, func(c Comment) bool {
		return c.ID == commentID && c.AuthorID == authorID
	})
	if i < 0 {
		return false
	}
	p.Comments = slices.Delete(p.Comments, i, i+1)
	return true
}

// Clone returns a deep copy so stores never share slices with callers.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Likes = slices.Clone(p.Likes)
	cp.Dislikes = slices.Clone(p.Dislikes)
	cp.Comments = slices.Clone(p.Comments)
	if cp.Likes == nil {
		cp.Likes = []string{}
	}
	if cp.Dislikes == nil {
		cp.Dislikes = []string{}
	}
	if cp.Comments == nil {
		cp.Comments = []Comment{}
	}
	return &cp
}
