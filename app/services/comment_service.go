package services

import (
	"context"
	"strings"
	"time"

	"postwall/app/models"
	"postwall/app/queue"
)

// AddComment appends a comment by authorID. Authors may comment on their
// own posts; expired posts accept no comments.
func (s *PostService) AddComment(ctx context.Context, postID, authorID, text string, now time.Time) (*models.Post, *models.Comment, error) {
	var added models.Comment
	post, err := s.mutate(ctx, "comment", postID, func(p *models.Post) error {
		if p.StatusAt(now) == models.StatusExpired {
			return models.NewError(models.KindExpiredPost, "this post has expired")
		}
		if strings.TrimSpace(text) == "" {
			return models.Validation("comment text is required")
		}
		added = models.NewComment(authorID, text, now)
		return p.AddComment(added)
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, queue.PostCommented, post, authorID, added.ID, now)
	return post, &added, nil
}

// RemoveComment deletes a comment written by requesterID. A missing
// comment and someone else's comment are reported the same way.
func (s *PostService) RemoveComment(ctx context.Context, postID, commentID, requesterID string, now time.Time) (*models.Post, error) {
	post, err := s.mutate(ctx, "uncomment", postID, func(p *models.Post) error {
		if !p.RemoveComment(commentID, requesterID) {
			return models.NewError(models.KindCommentNotFound, "comment not found or you are not authorized to delete it")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.PostUncommented, post, requesterID, commentID, now)
	return post, nil
}
