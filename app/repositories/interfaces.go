package repositories

import (
	"context"
	"time"

	"postwall/app/models"
)

// Mutator edits a post in place. Returning an error aborts the update and
// nothing is written.
type Mutator func(p *models.Post) error

// PostStore defines the interface for post data access
type PostStore interface {
	Insert(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindByTopic(ctx context.Context, topic models.Topic) ([]*models.Post, error)
	FindExpiredByTopic(ctx context.Context, topic models.Topic, now time.Time) ([]*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	// UpdateIfPresent applies mutate to the stored post atomically and
	// returns the stored result.
	UpdateIfPresent(ctx context.Context, id string, mutate Mutator) (*models.Post, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
