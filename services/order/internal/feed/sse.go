package feed

import (
	"fmt"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const keepaliveInterval = 30 * time.Second

// SSEHandler streams a restaurant's order changes as Server-Sent Events.
type SSEHandler struct {
	hub    *Hub
	logger apt.Logger
}

func NewSSEHandler(hub *Hub, logger apt.Logger) *SSEHandler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &SSEHandler{hub: hub, logger: logger}
}

func (h *SSEHandler) RegisterRoutes(r chi.Router) {
	r.Get("/restaurants/{restaurantID}/feed", h.ServeHTTP)
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")
	if _, err := uuid.Parse(restaurantID); err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid restaurantID parameter")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	messages := h.hub.Stream(r.Context(), restaurantID)
	h.logger.Info("new SSE connection", "restaurant_id", restaurantID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")
	flush(w)

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "restaurant_id", restaurantID)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)

		case msg, ok := <-messages:
			if !ok {
				return
			}
			data, err := msg.Payload(restaurantID)
			if err != nil {
				h.logger.Error("cannot encode feed message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\n", msg.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flush(w)
		}
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
