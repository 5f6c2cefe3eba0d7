package services

import (
	"context"
	"testing"
	"time"

	"postwall/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	env := setupPostService(t)
	post := env.createPost(t, "alice", models.TopicTech, t0)

	updated, comment, err := env.svc.AddComment(ctx, post.ID, "bob", "  first!  ", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "first!", comment.Text)
	assert.Equal(t, t0.Add(time.Minute), comment.CreatedAt)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, comment.ID, updated.Comments[0].ID)

	_, _, err = env.svc.AddComment(ctx, post.ID, "alice", "author may reply", t0.Add(time.Minute))
	assert.NoError(t, err)

	tests := []struct {
		name   string
		postID string
		text   string
		at     time.Time
		want   error
	}{
		{name: "missing post", postID: "nope", text: "hi", at: t0, want: models.ErrNotFound},
		{name: "blank text", postID: post.ID, text: "   ", at: t0, want: models.ErrValidation},
		{name: "expired post", postID: post.ID, text: "late", at: t0.Add(5 * time.Minute), want: models.ErrExpiredPost},
		{name: "expired beats blank text", postID: post.ID, text: "", at: t0.Add(time.Hour), want: models.ErrExpiredPost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.svc.AddComment(ctx, tt.postID, "bob", tt.text, tt.at)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stored, err := env.svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Comments, 2)
}

func TestRemoveComment(t *testing.T) {
	ctx := context.Background()
	env := setupPostService(t)
	post := env.createPost(t, "alice", models.TopicTech, t0)

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		_, c, err := env.svc.AddComment(ctx, post.ID, "bob", text, t0)
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	_, err := env.svc.RemoveComment(ctx, post.ID, ids[1], "mallory", t0)
	assert.ErrorIs(t, err, models.ErrCommentNotFound, "non-author gets the same answer as a missing comment")

	_, err = env.svc.RemoveComment(ctx, post.ID, "missing", "bob", t0)
	assert.ErrorIs(t, err, models.ErrCommentNotFound)

	updated, err := env.svc.RemoveComment(ctx, post.ID, ids[1], "bob", t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, updated.Comments, 2)
	assert.Equal(t, "one", updated.Comments[0].Text)
	assert.Equal(t, "three", updated.Comments[1].Text)

	_, err = env.svc.RemoveComment(ctx, post.ID, ids[1], "bob", t0)
	assert.ErrorIs(t, err, models.ErrCommentNotFound, "removal succeeds exactly once")

	_, err = env.svc.RemoveComment(ctx, "nope", ids[0], "bob", t0)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Contains(t, env.events.keys(), "post.uncommented")
}
