package repositories

import (
	"context"
	"errors"
	"time"

	"postwall/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostStore using BadgerDB. Updates run in
// optimistic transactions and are retried on write conflicts.
type BadgerPostRepository struct {
	db          *badger.DB
	maxAttempts int
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB, maxAttempts int) *BadgerPostRepository {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &BadgerPostRepository{db: db, maxAttempts: maxAttempts}
}

// Insert stores a new post together with its topic index entry.
func (r *BadgerPostRepository) Insert(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	if err := checkPost(post); err != nil {
		return err
	}
	data, err := marshalEntity(post)
	if err != nil {
		return err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := postKey(post.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(topicIndexKey(post.Topic, post.ID), nil)
	})
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return unavailable(err)
	}
	return err
}

// FindByID retrieves a post by ID
func (r *BadgerPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	var post *models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		post, err = getPost(txn, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, unavailable(err)
	}
	return post, nil
}

// FindByTopic walks the topic index and loads each post.
func (r *BadgerPostRepository) FindByTopic(ctx context.Context, topic models.Topic) ([]*models.Post, error) {
	return r.findByTopic(ctx, topic, func(*models.Post) bool { return true })
}

// FindExpiredByTopic returns posts in topic whose expiry is at or before now.
func (r *BadgerPostRepository) FindExpiredByTopic(ctx context.Context, topic models.Topic, now time.Time) ([]*models.Post, error) {
	return r.findByTopic(ctx, topic, func(p *models.Post) bool {
		return !p.ExpiresAt.After(now)
	})
}

func (r *BadgerPostRepository) findByTopic(ctx context.Context, topic models.Topic, keep func(*models.Post) bool) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	posts := []*models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := topicIndexPrefix(topic)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			post, err := getPost(txn, id)
			if err != nil {
				return err
			}
			if keep(post) {
				posts = append(posts, post)
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	sortPosts(posts)
	return posts, nil
}

// List retrieves every post, oldest first.
func (r *BadgerPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	posts := []*models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return err
			}
			posts = append(posts, &post)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	sortPosts(posts)
	return posts, nil
}

// UpdateIfPresent runs mutate inside a read-write transaction. Two
// concurrent updates of the same post conflict at commit; the loser reruns
// mutate against the fresh record.
func (r *BadgerPostRepository) UpdateIfPresent(ctx context.Context, id string, mutate Mutator) (*models.Post, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, unavailable(err)
		}

		var updated *models.Post
		err := r.db.Update(func(txn *badger.Txn) error {
			post, err := getPost(txn, id)
			if err != nil {
				return err
			}
			if err := mutate(post); err != nil {
				return err
			}
			if err := checkPost(post); err != nil {
				return err
			}
			data, err := marshalEntity(post)
			if err != nil {
				return err
			}
			updated = post
			return txn.Set(postKey(id), data)
		})

		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, badger.ErrConflict):
			select {
			case <-ctx.Done():
				return nil, unavailable(ctx.Err())
			case <-time.After(retryBackoff(attempt)):
			}
		case isRuleError(err):
			return nil, err
		default:
			return nil, unavailable(err)
		}
	}
	return nil, unavailable(errors.New("too many concurrent updates"))
}

func getPost(txn *badger.Txn, id string) (*models.Post, error) {
	item, err := txn.Get(postKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var post models.Post
	err = item.Value(func(val []byte) error {
		return unmarshalEntity(val, &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}
