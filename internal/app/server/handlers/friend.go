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

type FriendHandler struct {
	friendSvc *services.FriendService
}

func NewFriendHandler(f *services.FriendService) *FriendHandler {
	return &FriendHandler{friendSvc: f}
}

// List returns the caller's friends with their live online flags.
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	friends, err := h.friendSvc.ListFriends(r.Context(), userID)
	if err != nil {
		log.ErrorContext(r.Context(), "friend handler - list failed", "user_id", userID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(friends)
}

func (h *FriendHandler) Add(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	var req struct {
		FriendID string `json:"friendId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FriendID == "" {
		http.Error(w, "friendId is required", http.StatusBadRequest)
		return
	}
	if err := h.friendSvc.AddFriend(r.Context(), userID, req.FriendID); err != nil {
		log.ErrorContext(r.Context(), "friend handler - add failed", "user_id", userID, "friend_id", req.FriendID, "err", err)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrFriendshipExists):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "friend added"})
}

func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	friendID := r.PathValue("id")
	if err := h.friendSvc.RemoveFriend(r.Context(), userID, friendID); err != nil {
		log.ErrorContext(r.Context(), "friend handler - remove failed", "user_id", userID, "friend_id", friendID, "err", err)
		if errors.Is(err, domain.ErrFriendshipNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "friend removed"})
}
