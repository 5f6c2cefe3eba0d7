package services

import (
	"context"
	"time"

	"postwall/app/models"
)

// Score is the interest of a post: the number of reactions of either kind.
func Score(p *models.Post) int {
	return p.Score()
}

// HighestInterest picks the post with the top score. With activeOnly only
// posts with expiresAt >= now compete. Ties go to the earliest createdAt, then the smaller
// id, so the answer does not depend on store order.
func HighestInterest(posts []*models.Post, activeOnly bool, now time.Time) (*models.Post, bool) {
	var best *models.Post
	for _, p := range posts {
		if activeOnly && p.ExpiresAt.Before(now) {
			continue
		}
		if best == nil || outranks(p, best) {
			best = p
		}
	}
	return best, best != nil
}

func outranks(a, b *models.Post) bool {
	if sa, sb := Score(a), Score(b); sa != sb {
		return sa > sb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// HighestInterest finds the most engaging post in topic. An empty
// candidate set is reported through found, not as an error.
func (s *PostService) HighestInterest(ctx context.Context, topic string, activeOnly bool, now time.Time) (post *models.Post, found bool, err error) {
	posts, err := s.PostsByTopic(ctx, topic)
	if err != nil {
		return nil, false, err
	}
	post, found = HighestInterest(posts, activeOnly, now)
	return post, found, nil
}
