package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZhanWeiKai/eatwhat/internal/app/server/sse"
	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
	"github.com/ZhanWeiKai/eatwhat/internal/platform/logger"
	"github.com/ZhanWeiKai/eatwhat/pkg/middleware"
)

type SSEHandler struct {
	streams *sse.Server
	chat    *services.ChatService
}

func NewSSEHandler(streams *sse.Server, chat *services.ChatService) *SSEHandler {
	return &SSEHandler{
		streams: streams,
		chat:    chat,
	}
}

// Connect opens the caller's event stream and holds the response open,
// writing each queued event until the session is retired or the client
// goes away. The terminal finish/error event is queued before the done
// signal fires, so the loop drains remaining events after done.
func (h *SSEHandler) Connect(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		log.ErrorContext(r.Context(), "sse handler - response writer cannot flush")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sess := h.streams.Open(userID)
	defer h.streams.Remove(sess)
	log.InfoContext(r.Context(), "sse handler - stream open", "user_id", userID)

	for {
		select {
		case <-r.Context().Done():
			log.Info("sse handler - client disconnected", "user_id", userID)
			return
		case ev := <-sess.Events():
			if err := writeEvent(w, flusher, ev); err != nil {
				log.Warn("sse handler - write failed", "user_id", userID, "err", err)
				return
			}
			if ev.Terminal {
				return
			}
		case <-sess.Done():
			// Retired elsewhere (replaced, deadline, finish/fail racing
			// this loop). Flush whatever is still buffered before leaving.
			for {
				select {
				case ev := <-sess.Events():
					if err := writeEvent(w, flusher, ev); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, ev sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Name); err != nil {
		return err
	}
	if ev.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.ID); err != nil {
			return err
		}
	}
	// Multi-line payloads become one data: line each, per the SSE format.
	for _, line := range strings.Split(ev.Data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat kicks off one streamed AI reply onto the caller's open stream.
// The HTTP response returns immediately; tokens arrive as add events.
func (h *SSEHandler) Chat(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	log.InfoContext(r.Context(), "sse handler - chat stream started", "user_id", userID)
	// The completion outlives this request; detach it from the request
	// lifecycle so closing the trigger call cannot cancel the stream.
	go h.chat.ChatStream(context.WithoutCancel(r.Context()), userID, req.Message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "streaming"})
}

// Stats reports the open stream count (diagnostic only).
func (h *SSEHandler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"sessionCount": h.streams.Size()})
}
