package repositories

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"postwall/app/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMongo connects to MONGO_TEST_URI and uses a throwaway database.
func setupMongo(t *testing.T) *MongoStore {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewMongoStore(ctx, uri, "postwall_test_"+uuid.NewString()[:8], 0)
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(ctx))
	t.Cleanup(func() {
		ctx := context.Background()
		_ = store.DB.Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestVersionFilter(t *testing.T) {
	f := versionFilter("p1", 3)
	assert.Equal(t, "p1", f["_id"])
	assert.Equal(t, int64(3), f["version"])
}

func TestMongoPostRepository(t *testing.T) {
	store := setupMongo(t)
	ctx := context.Background()
	posts := store.Posts()

	post := newPost("p1", models.TopicTech, t0)
	require.NoError(t, posts.Insert(ctx, post))
	assert.ErrorIs(t, posts.Insert(ctx, newPost("p1", models.TopicTech, t0)), ErrDuplicate)

	found, err := posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.Version)

	expired, err := posts.FindExpiredByTopic(ctx, models.TopicTech, t0.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Len(t, expired, 1)

	_, err = posts.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := posts.UpdateIfPresent(ctx, "p1", func(p *models.Post) error {
				p.AddLike(uid)
				return nil
			})
			assert.NoError(t, err)
		}(fmt.Sprintf("user-%d", i))
	}
	wg.Wait()

	found, err = posts.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, found.Likes, n)
	assert.Equal(t, int64(n+1), found.Version)
}

func TestMongoUserRepository(t *testing.T) {
	store := setupMongo(t)
	ctx := context.Background()
	users := store.Users()

	u := &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: "h", CreatedAt: t0}
	require.NoError(t, users.Create(ctx, u))

	dup := *u
	dup.ID = "u2"
	assert.ErrorIs(t, users.Create(ctx, &dup), ErrDuplicate)

	got, err := users.GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
}
