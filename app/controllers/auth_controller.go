package controllers

import (
	"net/http"

	"postwall/app/services"

	"go.uber.org/zap"
)

// AuthController exposes registration, login and the user listing.
type AuthController struct {
	auth *services.AuthService
	now  Clock
	log  *zap.Logger
}

func NewAuthController(auth *services.AuthService, now Clock, log *zap.Logger) *AuthController {
	return &AuthController{auth: auth, now: now, log: log}
}

// Register creates an account and returns its id.
func (ac *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		sendError(w, ac.log, err)
		return
	}
	user, err := ac.auth.Register(r.Context(), req.Username, req.Email, req.Password, ac.now())
	if err != nil {
		sendError(w, ac.log, err)
		return
	}
	sendJSON(w, http.StatusCreated, map[string]string{"userId": user.ID})
}

// Login returns an access token in the body and the auth-token header.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		sendError(w, ac.log, err)
		return
	}
	token, _, err := ac.auth.Login(r.Context(), req.Email, req.Password, ac.now())
	if err != nil {
		sendError(w, ac.log, err)
		return
	}
	w.Header().Set("auth-token", token)
	sendJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Users lists every registered account.
func (ac *AuthController) Users(w http.ResponseWriter, r *http.Request) {
	users, err := ac.auth.ListUsers(r.Context())
	if err != nil {
		sendError(w, ac.log, err)
		return
	}
	sendJSON(w, http.StatusOK, users)
}
