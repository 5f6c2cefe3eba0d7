package controllers

import (
	"net/http"

	"postwall/app/middleware"
	"postwall/app/models"
	"postwall/app/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	posts *services.PostService
	now   Clock
	log   *zap.Logger
}

// NewCommentController creates a new CommentController
func NewCommentController(posts *services.PostService, now Clock, log *zap.Logger) *CommentController {
	return &CommentController{posts: posts, now: now, log: log}
}

type commentResponse struct {
	Message  string           `json:"message"`
	Comment  *models.Comment  `json:"comment,omitempty"`
	Comments []models.Comment `json:"comments"`
}

// Create handles adding a comment to a post
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	var req commentRequest
	if err := decode(r, &req); err != nil {
		sendError(w, cc.log, err)
		return
	}

	post, comment, err := cc.posts.AddComment(r.Context(), mux.Vars(r)["postId"], id.UserID, req.Text, cc.now())
	if err != nil {
		sendError(w, cc.log, err)
		return
	}
	sendJSON(w, http.StatusOK, commentResponse{
		Message:  "Comment added successfully",
		Comment:  comment,
		Comments: post.Comments,
	})
}

// Delete handles removing the caller's own comment
func (cc *CommentController) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	vars := mux.Vars(r)

	post, err := cc.posts.RemoveComment(r.Context(), vars["postId"], vars["commentId"], id.UserID, cc.now())
	if err != nil {
		sendError(w, cc.log, err)
		return
	}
	sendJSON(w, http.StatusOK, commentResponse{
		Message:  "Comment removed successfully",
		Comments: post.Comments,
	})
}
