package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"postwall/app/models"
)

const (
	// Key prefixes for different entity types
	PostKeyPrefix      = "post:"
	PostTopicKeyPrefix = "post_topic:"
	UserKeyPrefix      = "user:"
	UserEmailKeyPrefix = "user_email:"

	// DefaultMaxAttempts bounds optimistic update retries.
	DefaultMaxAttempts = 16
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("record already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidRecord    = errors.New("invalid record")
)

func postKey(id string) []byte {
	return []byte(PostKeyPrefix + id)
}

func topicIndexPrefix(topic models.Topic) []byte {
	return []byte(PostTopicKeyPrefix + string(topic) + ":")
}

func topicIndexKey(topic models.Topic, id string) []byte {
	return append(topicIndexPrefix(topic), id...)
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %v", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %v", err)
	}
	return nil
}

// unavailable marks err as an infrastructure failure.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// checkPost refuses to persist a record that breaks the post invariants.
func checkPost(p *models.Post) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: post %s: %w", ErrInvalidRecord, p.ID, err)
	}
	return nil
}

// isRuleError reports whether err came from a mutator or from checkPost
// rather than from the storage engine.
func isRuleError(err error) bool {
	var rule *models.Error
	return errors.As(err, &rule) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidRecord)
}

// sortPosts orders posts by creation time, oldest first, then by id.
func sortPosts(posts []*models.Post) {
	slices.SortFunc(posts, func(a, b *models.Post) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

// retryBackoff sleeps a few jittered milliseconds, growing with attempt.
func retryBackoff(attempt int) time.Duration {
	base := time.Duration(attempt+1) * time.Millisecond
	return base + rand.N(base)
}
