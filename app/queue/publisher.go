package queue

import (
	"context"
	"time"
)

// Routing keys for post events.
const (
	PostCreated     = "post.created"
	PostLiked       = "post.liked"
	PostDisliked    = "post.disliked"
	PostUnliked     = "post.unliked"
	PostCommented   = "post.commented"
	PostUncommented = "post.uncommented"
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, key string, event any) error { return nil }

func (NoopPub) Close() error { return nil }

// PostEvent is the body of every post.* message.
type PostEvent struct {
	Type      string    `json:"type"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Topic     string    `json:"topic"`
	CommentID string    `json:"comment_id,omitempty"`
	At        time.Time `json:"at"`
}
