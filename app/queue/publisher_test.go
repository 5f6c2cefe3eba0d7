package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopPublisher(t *testing.T) {
	pub := NewNoop()
	assert.NoError(t, pub.Publish(context.Background(), PostLiked, PostEvent{}))
	assert.NoError(t, pub.Close())
}

func TestNilRabbitPublisher(t *testing.T) {
	var pub *RabbitPublisher
	assert.NoError(t, pub.Publish(context.Background(), PostLiked, PostEvent{}))
	assert.NoError(t, pub.Close())
}

func TestNewRabbitBadURL(t *testing.T) {
	_, err := NewRabbit("not-a-url", "posts.events")
	assert.Error(t, err)
}

func TestPostEventJSON(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(PostEvent{Type: PostLiked, PostID: "p1", UserID: "u1", Topic: "Tech", At: at})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "post.liked", fields["type"])
	assert.NotContains(t, fields, "comment_id")
}
