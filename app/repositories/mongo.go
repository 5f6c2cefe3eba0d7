package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore owns a MongoDB client and the collections of one database.
type MongoStore struct {
	Client   *mongo.Client
	DB       *mongo.Database
	colPosts *mongo.Collection
	colUsers *mongo.Collection

	posts *MongoPostRepository
	users *MongoUserRepository
}

// NewMongoStore connects to uri and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, dbname string, maxAttempts int) (*MongoStore, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	db := cli.Database(dbname)
	s := &MongoStore{
		Client:   cli,
		DB:       db,
		colPosts: db.Collection("posts"),
		colUsers: db.Collection("users"),
	}
	s.posts = NewMongoPostRepository(s.colPosts, maxAttempts)
	s.users = NewMongoUserRepository(s.colUsers)
	return s, nil
}

func (s *MongoStore) Posts() *MongoPostRepository { return s.posts }

func (s *MongoStore) Users() *MongoUserRepository { return s.users }

func (s *MongoStore) Close(ctx context.Context) error { return s.Client.Disconnect(ctx) }

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.Client.Ping(ctx, nil); err != nil {
		return unavailable(err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes and the unique e-mail index.
// Posts are never removed by TTL; expired posts stay queryable.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.colPosts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "topic", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("topic_created"),
		},
		{
			Keys:    bson.D{{Key: "topic", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("topic_expires"),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.colUsers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	return err
}

// IsDup reports a duplicate key error.
func IsDup(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return mongo.IsDuplicateKeyError(err)
}
