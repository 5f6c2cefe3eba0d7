package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"postwall/app/controllers"
	"postwall/app/middleware"
	"postwall/app/repositories"
	"postwall/app/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Posts   *services.PostService
	Auth    *services.AuthService
	Limiter middleware.Limiter
	Health  repositories.Pinger
	Metrics prometheus.Gatherer
	Clock   controllers.Clock
	Logger  *zap.Logger
}

// NewRouter defines the application's routes and returns a router.
func NewRouter(d Deps) *mux.Router {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	chain := []mux.MiddlewareFunc{
		middleware.RequestID,
		middleware.Logger(d.Logger),
		middleware.Recoverer(d.Logger),
		middleware.Metrics,
	}
	router := mux.NewRouter()
	router.Use(chain...)

	// mux skips router middleware for unmatched requests
	var unmatched http.Handler = http.HandlerFunc(notFound)
	for i := len(chain) - 1; i >= 0; i-- {
		unmatched = chain[i](unmatched)
	}
	router.NotFoundHandler = unmatched

	router.HandleFunc("/healthz", health(d.Health)).Methods("GET")
	if d.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	requireAuth := middleware.RequireAuth(d.Auth)

	authController := controllers.NewAuthController(d.Auth, d.Clock, d.Logger)
	postController := controllers.NewPostController(d.Posts, d.Clock, d.Logger)
	commentController := controllers.NewCommentController(d.Posts, d.Clock, d.Logger)

	// User endpoints; credential checks are rate limited per client
	limit := func(h http.HandlerFunc) http.Handler { return h }
	if d.Limiter != nil {
		rl := middleware.RateLimit(d.Limiter, d.Logger)
		limit = func(h http.HandlerFunc) http.Handler { return rl(h) }
	}
	users := api.PathPrefix("/user").Subrouter()
	users.Handle("/register", limit(authController.Register)).Methods("POST")
	users.Handle("/login", limit(authController.Login)).Methods("POST")
	users.Handle("/all", requireAuth(http.HandlerFunc(authController.Users))).Methods("GET")

	// Posts endpoints, all behind a token
	posts := api.PathPrefix("/posts").Subrouter()
	posts.Use(requireAuth)
	posts.HandleFunc("", postController.Create).Methods("POST")
	posts.HandleFunc("", postController.Index).Methods("GET")
	posts.HandleFunc("/topic/{topic}", postController.ByTopic).Methods("GET")
	posts.HandleFunc("/expired/{topic}", postController.Expired).Methods("GET")
	posts.HandleFunc("/highest-interest/{topic}", postController.HighestInterest).Methods("GET")
	posts.HandleFunc("/active/{topic}/highest-interest", postController.ActiveHighestInterest).Methods("GET")
	posts.HandleFunc("/{postId}", postController.Show).Methods("GET")
	posts.HandleFunc("/{postId}/like", postController.Like).Methods("POST")
	posts.HandleFunc("/{postId}/dislike", postController.Dislike).Methods("POST")
	posts.HandleFunc("/{postId}/unlike", postController.Unlike).Methods("POST")

	// Comments endpoints
	posts.HandleFunc("/{postId}/comment", commentController.Create).Methods("POST")
	posts.HandleFunc("/{postId}/uncomment/{commentId}", commentController.Delete).Methods("POST")

	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not found", "kind": "not_found"})
		return
	}
	http.NotFound(w, r)
}

func health(p repositories.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
