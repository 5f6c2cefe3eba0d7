package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"postwall/app/middleware"
	"postwall/app/models"
	"postwall/app/repositories"
	"postwall/app/repositories/mock"
	"postwall/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	router *mux.Router
	now    time.Time
	repo   *mock.PostRepository
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{now: t0, repo: mock.NewPostRepository()}
	clock := func() time.Time { return ts.now }
	log := zap.NewNop()

	postService := services.NewPostService(ts.repo, services.Options{Logger: log})
	pc := NewPostController(postService, clock, log)
	cc := NewCommentController(postService, clock, log)

	r := mux.NewRouter()
	// X-User stands in for a verified token.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithIdentity(req.Context(), models.Identity{UserID: req.Header.Get("X-User")})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	api := r.PathPrefix("/api/posts").Subrouter()
	api.HandleFunc("", pc.Create).Methods("POST")
	api.HandleFunc("", pc.Index).Methods("GET")
	api.HandleFunc("/topic/{topic}", pc.ByTopic).Methods("GET")
	api.HandleFunc("/expired/{topic}", pc.Expired).Methods("GET")
	api.HandleFunc("/highest-interest/{topic}", pc.HighestInterest).Methods("GET")
	api.HandleFunc("/active/{topic}/highest-interest", pc.ActiveHighestInterest).Methods("GET")
	api.HandleFunc("/{postId}", pc.Show).Methods("GET")
	api.HandleFunc("/{postId}/like", pc.Like).Methods("POST")
	api.HandleFunc("/{postId}/dislike", pc.Dislike).Methods("POST")
	api.HandleFunc("/{postId}/unlike", pc.Unlike).Methods("POST")
	api.HandleFunc("/{postId}/comment", cc.Create).Methods("POST")
	api.HandleFunc("/{postId}/uncomment/{commentId}", cc.Delete).Methods("POST")
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, user, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-User", user)
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rr.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func (ts *testServer) createPost(t *testing.T, author, topic string) string {
	t.Helper()
	body := fmt.Sprintf(`{"title":"Title","topic":%q,"message":"Body"}`, topic)
	rr, out := ts.do(t, http.MethodPost, "/api/posts", author, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return out["id"].(string)
}

func TestCreatePost(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{name: "valid", body: `{"title":"Hi","topic":"tech","message":"Body"}`, status: http.StatusCreated},
		{name: "missing title", body: `{"topic":"Tech","message":"Body"}`, status: http.StatusBadRequest, kind: "validation"},
		{name: "unknown topic", body: `{"title":"Hi","topic":"Cooking","message":"Body"}`, status: http.StatusBadRequest, kind: "validation"},
		{name: "malformed json", body: `{"title":`, status: http.StatusBadRequest, kind: "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, out := ts.do(t, http.MethodPost, "/api/posts", "alice", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, out["kind"])
				assert.NotEmpty(t, out["error"])
				return
			}
			assert.Equal(t, "Tech", out["topic"])
			assert.Equal(t, "alice", out["authorId"])
			assert.Equal(t, "Live", out["status"])
			assert.EqualValues(t, 0, out["score"])
			assert.NotContains(t, out, "Version")
		})
	}
}

func TestShowPost(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createPost(t, "alice", "Tech")

	rr, out := ts.do(t, http.MethodGet, "/api/posts/"+id, "bob", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, out["id"])

	ts.now = t0.Add(5 * time.Minute)
	_, out = ts.do(t, http.MethodGet, "/api/posts/"+id, "bob", "")
	assert.Equal(t, "Expired", out["status"])

	rr, out = ts.do(t, http.MethodGet, "/api/posts/missing", "bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", out["kind"])
}

func TestReactions(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createPost(t, "alice", "Sport")

	tests := []struct {
		name   string
		action string
		user   string
		status int
		kind   string
	}{
		{name: "author cannot like", action: "like", user: "alice", status: http.StatusBadRequest, kind: "self_interaction"},
		{name: "bob likes", action: "like", user: "bob", status: http.StatusOK},
		{name: "bob likes twice", action: "like", user: "bob", status: http.StatusBadRequest, kind: "duplicate_reaction"},
		{name: "bob dislikes", action: "dislike", user: "bob", status: http.StatusOK},
		{name: "bob cannot like over a dislike", action: "like", user: "bob", status: http.StatusBadRequest, kind: "duplicate_reaction"},
		{name: "carol has no like to remove", action: "unlike", user: "carol", status: http.StatusBadRequest, kind: "not_reacted"},
		{name: "carol likes", action: "like", user: "carol", status: http.StatusOK},
		{name: "carol unlikes", action: "unlike", user: "carol", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, out := ts.do(t, http.MethodPost, "/api/posts/"+id+"/"+tt.action, tt.user, "")
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			if tt.kind != "" {
				assert.Equal(t, tt.kind, out["kind"])
			} else {
				assert.NotEmpty(t, out["message"])
			}
		})
	}

	_, out := ts.do(t, http.MethodGet, "/api/posts/"+id, "bob", "")
	assert.Empty(t, out["likes"])
	assert.Equal(t, []any{"bob"}, out["dislikes"])
	assert.EqualValues(t, 1, out["score"])

	rr, out := ts.do(t, http.MethodPost, "/api/posts/missing/like", "bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", out["kind"])
}

func TestExpiredPostScenario(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createPost(t, "alice", "Health")

	ts.now = t0.Add(time.Minute)
	rr, _ := ts.do(t, http.MethodPost, "/api/posts/"+id+"/like", "bob", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	ts.now = t0.Add(6 * time.Minute)
	rr, out := ts.do(t, http.MethodPost, "/api/posts/"+id+"/dislike", "carol", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "expired_post", out["kind"])

	rr, out = ts.do(t, http.MethodPost, "/api/posts/"+id+"/comment", "carol", `{"text":"late"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "expired_post", out["kind"])

	rr, _ = ts.do(t, http.MethodGet, "/api/posts/expired/health", "bob", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var posts []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Expired", posts[0]["status"])
}

func TestComments(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createPost(t, "alice", "Tech")

	rr, out := ts.do(t, http.MethodPost, "/api/posts/"+id+"/comment", "bob", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation", out["kind"])

	rr, out = ts.do(t, http.MethodPost, "/api/posts/"+id+"/comment", "bob", `{"text":"nice"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	comment := out["comment"].(map[string]any)
	commentID := comment["id"].(string)
	assert.Equal(t, "nice", comment["text"])
	assert.Len(t, out["comments"], 1)

	path := "/api/posts/" + id + "/uncomment/" + commentID
	rr, out = ts.do(t, http.MethodPost, path, "mallory", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "comment_not_found", out["kind"])

	rr, out = ts.do(t, http.MethodPost, path, "bob", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, out["comments"])

	rr, _ = ts.do(t, http.MethodPost, path, "bob", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = ts.do(t, http.MethodPost, "/api/posts/missing/uncomment/"+commentID, "bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTopicQueries(t *testing.T) {
	ts := setupTestServer(t)

	rr, out := ts.do(t, http.MethodGet, "/api/posts/topic/Politics", "bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No posts found for topic: Politics", out["message"])

	rr, out = ts.do(t, http.MethodGet, "/api/posts/topic/Cooking", "bob", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation", out["kind"])

	rr, out = ts.do(t, http.MethodGet, "/api/posts/expired/Politics", "bob", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "No expired posts found for this topic.", out["message"])

	ts.createPost(t, "alice", "Politics")
	rr, _ = ts.do(t, http.MethodGet, "/api/posts/topic/politics", "bob", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHighestInterest(t *testing.T) {
	ts := setupTestServer(t)

	rr, out := ts.do(t, http.MethodGet, "/api/posts/highest-interest/Tech", "bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No posts found in the Tech topic.", out["message"])

	quiet := ts.createPost(t, "alice", "Tech")
	ts.now = t0.Add(time.Second)
	busy := ts.createPost(t, "alice", "Tech")

	_, out = ts.do(t, http.MethodGet, "/api/posts/highest-interest/Tech", "bob", "")
	assert.Equal(t, quiet, out["id"], "ties go to the older post")

	for _, u := range []string{"bob", "carol"} {
		rr, _ := ts.do(t, http.MethodPost, "/api/posts/"+busy+"/dislike", u, "")
		require.Equal(t, http.StatusOK, rr.Code)
	}

	_, out = ts.do(t, http.MethodGet, "/api/posts/highest-interest/tech", "bob", "")
	assert.Equal(t, busy, out["id"])
	assert.EqualValues(t, 2, out["score"])

	// Both posts have expired by now.
	ts.now = t0.Add(5*time.Minute + 2*time.Second)
	_, out = ts.do(t, http.MethodGet, "/api/posts/highest-interest/Tech", "bob", "")
	assert.Equal(t, busy, out["id"], "expired posts still compete")

	ts.now = t0.Add(5 * time.Minute)
	_, out = ts.do(t, http.MethodGet, "/api/posts/active/Tech/highest-interest", "bob", "")
	assert.Equal(t, busy, out["id"])

	// busy expires at t0+5m1s and still counts as active at that instant.
	ts.now = t0.Add(5*time.Minute + time.Second)
	_, out = ts.do(t, http.MethodGet, "/api/posts/active/Tech/highest-interest", "bob", "")
	assert.Equal(t, busy, out["id"])

	ts.now = t0.Add(5*time.Minute + 2*time.Second)
	rr, out = ts.do(t, http.MethodGet, "/api/posts/active/Tech/highest-interest", "bob", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No active posts found in the Tech topic.", out["message"])
}

func TestStoreFailureMapsTo503(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createPost(t, "alice", "Tech")
	ts.repo.Err = fmt.Errorf("%w: disk gone", repositories.ErrStoreUnavailable)

	rr, out := ts.do(t, http.MethodPost, "/api/posts/"+id+"/like", "bob", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "store_unavailable", out["kind"])
	assert.Equal(t, "storage temporarily unavailable", out["error"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(models.KindConflict))
	assert.Equal(t, http.StatusUnauthorized, statusFor(models.KindInvalidCredential))
	assert.Equal(t, http.StatusInternalServerError, statusFor(models.KindUnknown))

	rr := httptest.NewRecorder()
	sendError(rr, zap.NewNop(), errors.New("secret detail"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret detail")
}
