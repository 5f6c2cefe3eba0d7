package repositories

import (
	"context"
	"errors"
	"time"

	"postwall/app/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPostRepository implements PostStore on a MongoDB collection. Each
// document carries a version; updates replace the document only when the
// version is unchanged since it was read.
type MongoPostRepository struct {
	col         *mongo.Collection
	maxAttempts int
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(col *mongo.Collection, maxAttempts int) *MongoPostRepository {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &MongoPostRepository{col: col, maxAttempts: maxAttempts}
}

func (r *MongoPostRepository) Insert(ctx context.Context, post *models.Post) error {
	if err := checkPost(post); err != nil {
		return err
	}
	post.Version = 1
	_, err := r.col.InsertOne(ctx, post)
	if IsDup(err) {
		return ErrDuplicate
	}
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *MongoPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &post, nil
}

func (r *MongoPostRepository) FindByTopic(ctx context.Context, topic models.Topic) ([]*models.Post, error) {
	return r.find(ctx, bson.M{"topic": topic})
}

func (r *MongoPostRepository) FindExpiredByTopic(ctx context.Context, topic models.Topic, now time.Time) ([]*models.Post, error) {
	return r.find(ctx, bson.M{"topic": topic, "expires_at": bson.M{"$lte": now}})
}

func (r *MongoPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoPostRepository) find(ctx context.Context, filter bson.M) ([]*models.Post, error) {
	cur, err := r.col.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cur.Close(ctx)

	posts := []*models.Post{}
	for cur.Next(ctx) {
		var p models.Post
		if err := cur.Decode(&p); err != nil {
			return nil, unavailable(err)
		}
		posts = append(posts, &p)
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable(err)
	}
	return posts, nil
}

// UpdateIfPresent reads the post, applies mutate and swaps the document in
// if its version still matches. A lost race rereads and reapplies.
func (r *MongoPostRepository) UpdateIfPresent(ctx context.Context, id string, mutate Mutator) (*models.Post, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		post, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		seen := post.Version
		if err := mutate(post); err != nil {
			return nil, err
		}
		if err := checkPost(post); err != nil {
			return nil, err
		}
		post.Version = seen + 1

		res, err := r.col.ReplaceOne(ctx, versionFilter(id, seen), post)
		if err != nil {
			return nil, unavailable(err)
		}
		if res.MatchedCount == 1 {
			return post, nil
		}

		select {
		case <-ctx.Done():
			return nil, unavailable(ctx.Err())
		case <-time.After(retryBackoff(attempt)):
		}
	}
	return nil, unavailable(errors.New("too many concurrent updates"))
}

func versionFilter(id string, version int64) bson.M {
	return bson.M{"_id": id, "version": version}
}
