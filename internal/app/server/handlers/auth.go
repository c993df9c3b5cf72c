package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
	"github.com/ZhanWeiKai/eatwhat/internal/platform/logger"
	"github.com/ZhanWeiKai/eatwhat/pkg/middleware"
)

type AuthHandler struct {
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewAuthHandler(u *services.UserService, t *services.TokenService) *AuthHandler {
	return &AuthHandler{userSvc: u, tokenSvc: t}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Register(r.Context(), req.Username, req.Password, req.Nickname)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - register failed", "username", req.Username, "err", err)
		if errors.Is(err, domain.ErrUsernameTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.InfoContext(r.Context(), "auth handler - user registered", "user_id", user.UserID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - login failed", "username", req.Username, "err", err)
		if errors.Is(err, domain.ErrBadCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user.UserID)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - generate token failed", "user_id", user.UserID)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	log.InfoContext(r.Context(), "auth handler - login success", "user_id", user.UserID)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	h.userSvc.Logout(r.Context(), userID)
	log.InfoContext(r.Context(), "auth handler - logout", "user_id", userID)
	json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	user, err := h.userSvc.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(user)
}
