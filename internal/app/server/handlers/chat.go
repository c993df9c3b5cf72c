package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
	"github.com/ZhanWeiKai/eatwhat/internal/platform/logger"
)

type ChatHandler struct {
	chatSvc *services.ChatService
}

func NewChatHandler(c *services.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: c}
}

// Chat is the non-streaming variant: one request, one full reply. The
// service substitutes the apology text on upstream failure, so the
// client always gets a usable reply body.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	reply, err := h.chatSvc.Chat(r.Context(), req.Message)
	if err != nil {
		log.WarnContext(r.Context(), "chat handler - upstream failed, fallback reply sent", "err", err)
	}
	json.NewEncoder(w).Encode(map[string]string{"reply": reply})
}
