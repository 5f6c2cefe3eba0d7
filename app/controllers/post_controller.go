package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"postwall/app/middleware"
	"postwall/app/models"
	"postwall/app/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PostController handles HTTP requests for posts and reactions
type PostController struct {
	posts *services.PostService
	now   Clock
	log   *zap.Logger
}

// NewPostController creates a new PostController
func NewPostController(posts *services.PostService, now Clock, log *zap.Logger) *PostController {
	return &PostController{posts: posts, now: now, log: log}
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	var req createPostRequest
	if err := decode(r, &req); err != nil {
		sendError(w, pc.log, err)
		return
	}

	now := pc.now()
	post, err := pc.posts.CreatePost(r.Context(), id.UserID, req.Title, req.Topic, req.Message, now)
	if err != nil {
		sendError(w, pc.log, err)
		return
	}
	sendJSON(w, http.StatusCreated, viewPost(post, now))
}

// Index handles listing all posts
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	now := pc.now()
	posts, err := pc.posts.ListPosts(r.Context())
	if err != nil {
		sendError(w, pc.log, err)
		return
	}
	sendJSON(w, http.StatusOK, viewPosts(posts, now))
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	now := pc.now()
	post, err := pc.posts.GetPost(r.Context(), mux.Vars(r)["postId"])
	if err != nil {
		sendError(w, pc.log, err)
		return
	}
	sendJSON(w, http.StatusOK, viewPost(post, now))
}

// ByTopic lists every post in a topic. An empty topic is a 404.
func (pc *PostController) ByTopic(w http.ResponseWriter, r *http.Request) {
	now := pc.now()
	topic := mux.Vars(r)["topic"]
	posts, err := pc.posts.PostsByTopic(r.Context(), topic)
	if err != nil {
		sendError(w, pc.log, err)
		return
	}
	if len(posts) == 0 {
		sendMessage(w, http.StatusNotFound, "No posts found for topic: "+topic)
		return
	}
	sendJSON(w, http.StatusOK, viewPosts(posts, now))
}

// Expired lists the expired posts in a topic.
func (pc *PostController) Expired(w http.ResponseWriter, r *http.Request) {
	now := pc.now()
	posts, err := pc.posts.ExpiredByTopic(r.Context(), mux.Vars(r)["topic"], now)
	if err != nil {
		sendError(w, pc.log, err)
		return
	}
	if len(posts) == 0 {
		sendMessage(w, http.StatusOK, "No expired posts found for this topic.")
		return
	}
	sendJSON(w, http.StatusOK, viewPosts(posts, now))
}

// HighestInterest returns the top post of a topic regardless of status.
func (pc *PostController) HighestInterest(w http.ResponseWriter, r *http.Request) {
	pc.highestInterest(w, r, false)
}

// ActiveHighestInterest returns the top live post of a topic.
func (pc *PostController) ActiveHighestInterest(w http.ResponseWriter, r *http.Request) {
	pc.highestInterest(w, r, true)
}

func (pc *PostController) highestInterest(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	now := pc.now()
	topic := mux.Vars(r)["topic"]
	post, found, err := pc.posts.HighestInterest(r.Context(), topic, activeOnly, now)
	if err != nil {
		sendError(w, pc.log, err)
		return
	}
	if !found {
		canonical, _ := models.ParseTopic(topic)
		kind := "posts"
		if activeOnly {
			kind = "active posts"
		}
		sendMessage(w, http.StatusNotFound, fmt.Sprintf("No %s found in the %s topic.", kind, canonical))
		return
	}
	sendJSON(w, http.StatusOK, viewPost(post, now))
}

type reactionResponse struct {
	Message  string   `json:"message"`
	Likes    []string `json:"likes"`
	Dislikes []string `json:"dislikes"`
	Score    int      `json:"score"`
}

// Like handles liking a post
func (pc *PostController) Like(w http.ResponseWriter, r *http.Request) {
	pc.react(w, r, pc.posts.Like, "Post liked successfully")
}

// Dislike handles disliking a post
func (pc *PostController) Dislike(w http.ResponseWriter, r *http.Request) {
	pc.react(w, r, pc.posts.Dislike, "Post disliked successfully")
}

// Unlike handles withdrawing a like
func (pc *PostController) Unlike(w http.ResponseWriter, r *http.Request) {
	pc.react(w, r, pc.posts.Unlike, "You have unliked the post")
}

type reaction func(ctx context.Context, postID, userID string, now time.Time) (*models.Post, error)

func (pc *PostController) react(w http.ResponseWriter, r *http.Request, fn reaction, message string) {
	id, _ := middleware.IdentityFrom(r.Context())
	post, err := fn(r.Context(), mux.Vars(r)["postId"], id.UserID, pc.now())
	if err != nil {
		sendError(w, pc.log, err)
		return
	}
	sendJSON(w, http.StatusOK, reactionResponse{
		Message:  message,
		Likes:    post.Likes,
		Dislikes: post.Dislikes,
		Score:    post.Score(),
	})
}
