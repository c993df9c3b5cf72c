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

type PushHandler struct {
	pushSvc *services.PushService
}

func NewPushHandler(p *services.PushService) *PushHandler {
	return &PushHandler{pushSvc: p}
}

// Create stores the push and returns it with the server-computed total.
// Delivery to friends happens asynchronously; its outcome is not part of
// this response.
func (h *PushHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	var req struct {
		Dishes []domain.DishItem `json:"dishes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "push handler - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	push, err := h.pushSvc.CreatePush(r.Context(), userID, req.Dishes)
	if err != nil {
		log.ErrorContext(r.Context(), "push handler - create failed", "user_id", userID, "err", err)
		if errors.Is(err, domain.ErrEmptyPush) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(push)
}

func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	pushes, err := h.pushSvc.ListPushesFor(r.Context(), userID)
	if err != nil {
		log.ErrorContext(r.Context(), "push handler - list failed", "user_id", userID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(pushes)
}

func (h *PushHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	pushID := r.PathValue("id")
	if err := h.pushSvc.DeletePush(r.Context(), pushID, userID); err != nil {
		log.ErrorContext(r.Context(), "push handler - delete failed", "push_id", pushID, "err", err)
		switch {
		case errors.Is(err, domain.ErrPushNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrNotPushOwner):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "push deleted"})
}
