package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"postwall/app/models"

	"go.uber.org/zap"
)

// Clock returns the instant a request is judged at. It is read once per
// request.
type Clock func() time.Time

// postView is a post as clients see it, with the derived fields filled in.
type postView struct {
	*models.Post
	Status models.Status `json:"status"`
	Score  int           `json:"score"`
}

func viewPost(p *models.Post, now time.Time) postView {
	return postView{Post: p, Status: p.StatusAt(now), Score: p.Score()}
}

func viewPosts(posts []*models.Post, now time.Time) []postView {
	out := make([]postView, len(posts))
	for i, p := range posts {
		out[i] = viewPost(p, now)
	}
	return out
}

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendMessage(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"message": message})
}

// sendError writes err as {"error", "kind"}. Unclassified errors are logged
// and hidden behind a generic message.
func sendError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := models.KindOf(err)
	status := statusFor(kind)
	message := "internal server error"
	var e *models.Error
	if errors.As(err, &e) && kind != models.KindUnknown {
		message = e.Message
	} else {
		log.Error("unhandled error", zap.Error(err))
	}
	sendJSON(w, status, map[string]string{"error": message, "kind": kind.String()})
}

func statusFor(kind models.Kind) int {
	switch kind {
	case models.KindValidation,
		models.KindSelfInteraction,
		models.KindDuplicateReaction,
		models.KindNotReacted,
		models.KindExpiredPost,
		models.KindCommentNotFound,
		models.KindConflict:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindInvalidCredential:
		return http.StatusUnauthorized
	case models.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
