package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"postwall/app/metrics"
	"postwall/app/models"
	"postwall/app/queue"
	"postwall/app/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPostLifetime = 5 * time.Minute
	DefaultStoreTimeout = 5 * time.Second
)

// Options tunes a PostService. Zero values select the defaults.
type Options struct {
	Lifetime     time.Duration
	StoreTimeout time.Duration
	Events       queue.Publisher
	Logger       *zap.Logger
}

// PostService owns the post lifecycle: it alone decides whether a reaction
// or comment is allowed. Every mutation is a single UpdateIfPresent call,
// and callers pass the instant the request is judged at.
type PostService struct {
	posts    repositories.PostStore
	lifetime time.Duration
	timeout  time.Duration
	events   queue.Publisher
	log      *zap.Logger
}

// NewPostService creates a new PostService
func NewPostService(posts repositories.PostStore, opts Options) *PostService {
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultPostLifetime
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Events == nil {
		opts.Events = queue.NewNoop()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &PostService{
		posts:    posts,
		lifetime: opts.Lifetime,
		timeout:  opts.StoreTimeout,
		events:   opts.Events,
		log:      opts.Logger,
	}
}

// Lifetime is how long a new post stays live.
func (s *PostService) Lifetime() time.Duration { return s.lifetime }

// CreatePost validates the fields and stores a fresh post expiring one
// lifetime after now.
func (s *PostService) CreatePost(ctx context.Context, authorID, title, topic, message string, now time.Time) (*models.Post, error) {
	post, err := s.newPost(authorID, title, topic, message, now)
	if err != nil {
		s.record("create", err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.posts.Insert(ctx, post); err != nil {
		err = s.storeError("create post", err)
		s.record("create", err)
		return nil, err
	}

	s.record("create", nil)
	s.publish(ctx, queue.PostCreated, post, authorID, "", now)
	return post, nil
}

func (s *PostService) newPost(authorID, title, topic, message string, now time.Time) (*models.Post, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if err := validatePost(authorID, title, topic, message); err != nil {
		return nil, err
	}
	canonical, _ := models.ParseTopic(topic)
	return &models.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Title:     title,
		Topic:     canonical,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
		Likes:     []string{},
		Dislikes:  []string{},
		Comments:  []models.Comment{},
	}, nil
}

// GetPost retrieves a post by ID
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get post", err)
	}
	return post, nil
}

// ListPosts returns every post, oldest first.
func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, s.storeError("list posts", err)
	}
	return posts, nil
}

// PostsByTopic returns every post filed under topic.
func (s *PostService) PostsByTopic(ctx context.Context, topic string) ([]*models.Post, error) {
	t, err := parseTopic(topic)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	posts, err := s.posts.FindByTopic(ctx, t)
	if err != nil {
		return nil, s.storeError("posts by topic", err)
	}
	return posts, nil
}

// ExpiredByTopic returns posts in topic whose expiry is at or before now.
func (s *PostService) ExpiredByTopic(ctx context.Context, topic string, now time.Time) ([]*models.Post, error) {
	t, err := parseTopic(topic)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	posts, err := s.posts.FindExpiredByTopic(ctx, t, now)
	if err != nil {
		return nil, s.storeError("expired posts", err)
	}
	return posts, nil
}

// Like adds userID to the likes. Liking never withdraws a dislike, so a
// user who disliked the post cannot like it.
func (s *PostService) Like(ctx context.Context, postID, userID string, now time.Time) (*models.Post, error) {
	post, err := s.mutate(ctx, "like", postID, func(p *models.Post) error {
		if err := checkInteraction(p, userID, now); err != nil {
			return err
		}
		if p.DislikedBy(userID) {
			return models.NewError(models.KindDuplicateReaction, "you have already disliked this post")
		}
		if !p.AddLike(userID) {
			return models.NewError(models.KindDuplicateReaction, "you have already liked this post")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.PostLiked, post, userID, "", now)
	return post, nil
}

// Dislike adds userID to the dislikes and withdraws any like by them.
func (s *PostService) Dislike(ctx context.Context, postID, userID string, now time.Time) (*models.Post, error) {
	post, err := s.mutate(ctx, "dislike", postID, func(p *models.Post) error {
		if err := checkInteraction(p, userID, now); err != nil {
			return err
		}
		if !p.AddDislike(userID) {
			return models.NewError(models.KindDuplicateReaction, "you have already disliked this post")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.PostDisliked, post, userID, "", now)
	return post, nil
}

// Unlike withdraws a like. It is allowed on expired posts.
func (s *PostService) Unlike(ctx context.Context, postID, userID string, now time.Time) (*models.Post, error) {
	post, err := s.mutate(ctx, "unlike", postID, func(p *models.Post) error {
		if !p.RemoveLike(userID) {
			return models.NewError(models.KindNotReacted, "you have not liked this post")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.PostUnliked, post, userID, "", now)
	return post, nil
}

// checkInteraction applies the rules shared by like, dislike and comment.
// Expiry is checked before authorship.
func checkInteraction(p *models.Post, userID string, now time.Time) error {
	if p.StatusAt(now) == models.StatusExpired {
		return models.NewError(models.KindExpiredPost, "this post has expired")
	}
	if p.AuthorID == userID {
		return models.NewError(models.KindSelfInteraction, "you cannot react to your own post")
	}
	return nil
}

// mutate runs fn through the store under the service timeout and records
// the outcome.
func (s *PostService) mutate(ctx context.Context, action, postID string, fn repositories.Mutator) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	post, err := s.posts.UpdateIfPresent(ctx, postID, fn)
	if err != nil {
		err = s.storeError(action, err)
		s.record(action, err)
		if k := models.KindOf(err); k != models.KindStoreUnavailable && k != models.KindUnknown {
			s.log.Debug("post mutation rejected",
				zap.String("action", action),
				zap.String("post_id", postID),
				zap.Stringer("kind", k),
			)
		}
		return nil, err
	}
	s.record(action, nil)
	return post, nil
}

// storeError maps repository failures onto error kinds. Rule errors from
// mutators pass through untouched.
func (s *PostService) storeError(op string, err error) error {
	var rule *models.Error
	switch {
	case errors.As(err, &rule):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return models.NotFound("post not found")
	case errors.Is(err, repositories.ErrStoreUnavailable):
		s.log.Error("post store unavailable", zap.String("op", op), zap.Error(err))
		return models.StoreUnavailable(err)
	default:
		s.log.Error("post store failure", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *PostService) record(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = models.KindOf(err).String()
	}
	metrics.Interactions.WithLabelValues(action, outcome).Inc()
}

// publish emits a post event. Delivery is best effort: the write has
// already happened.
func (s *PostService) publish(ctx context.Context, key string, post *models.Post, userID, commentID string, now time.Time) {
	ev := queue.PostEvent{
		Type:      key,
		PostID:    post.ID,
		UserID:    userID,
		Topic:     string(post.Topic),
		CommentID: commentID,
		At:        now,
	}
	if err := s.events.Publish(ctx, key, ev); err != nil {
		s.log.Warn("publish post event", zap.String("key", key), zap.String("post_id", post.ID), zap.Error(err))
	}
}

// validatePost validates post fields
func validatePost(authorID, title, topic, message string) error {
	if authorID == "" {
		return models.Validation("author is required")
	}
	if title == "" || strings.TrimSpace(topic) == "" || message == "" {
		return models.Validation("all fields are required")
	}
	if _, ok := models.ParseTopic(topic); !ok {
		return invalidTopic()
	}
	return nil
}

func parseTopic(topic string) (models.Topic, error) {
	t, ok := models.ParseTopic(topic)
	if !ok {
		return "", invalidTopic()
	}
	return t, nil
}

func invalidTopic() error {
	names := make([]string, len(models.Topics))
	for i, t := range models.Topics {
		names[i] = string(t)
	}
	return models.Validation("invalid topic, must be one of " + strings.Join(names, ", "))
}
