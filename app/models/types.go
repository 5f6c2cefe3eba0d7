package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Topic is the subject a post is filed under.
type Topic string

const (
	TopicPolitics Topic = "Politics"
	TopicHealth   Topic = "Health"
	TopicSport    Topic = "Sport"
	TopicTech     Topic = "Tech"
)

// Topics lists every accepted topic in display order.
var Topics = []Topic{TopicPolitics, TopicHealth, TopicSport, TopicTech}

// ParseTopic resolves s to a known topic, ignoring case and surrounding space.
func ParseTopic(s string) (Topic, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Topics {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Status is derived from the clock and never stored.
type Status string

const (
	StatusLive    Status = "Live"
	StatusExpired Status = "Expired"
)

// Post is a time-limited message filed under a topic.
type Post struct {
	ID        string    `json:"id" bson:"_id" validate:"required"`
	AuthorID  string    `json:"authorId" bson:"author_id" validate:"required"`
	Title     string    `json:"title" bson:"title" validate:"required"`
	Topic     Topic     `json:"topic" bson:"topic" validate:"required,oneof=Politics Health Sport Tech"`
	Message   string    `json:"message" bson:"message" validate:"required"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at" validate:"required"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expires_at" validate:"required"`
	Likes     []string  `json:"likes" bson:"likes" validate:"unique,dive,required"`
	Dislikes  []string  `json:"dislikes" bson:"dislikes" validate:"unique,dive,required"`
	Comments  []Comment `json:"comments" bson:"comments" validate:"dive"`
	Version   int64     `json:"-" bson:"version"`
}

// Comment is owned by exactly one post.
type Comment struct {
	ID        string    `json:"id" bson:"id" validate:"required"`
	AuthorID  string    `json:"authorId" bson:"author_id" validate:"required"`
	Text      string    `json:"text" bson:"text" validate:"required"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at" validate:"required"`
}

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id" bson:"_id" validate:"required"`
	Username     string    `json:"username" bson:"username" validate:"required,min=3,max=256"`
	Email        string    `json:"email" bson:"email" validate:"required,email"`
	PasswordHash string    `json:"-" bson:"password_hash" validate:"required"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at" validate:"required"`
}

// Identity is what the identity provider vouches for on each request.
type Identity struct {
	UserID string
	Name   string
}
