package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/bizmarket/internal/api/middleware"
	"github.com/example/bizmarket/internal/notification"
)

const streamHeartbeat = 25 * time.Second

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(w, r, errBadRequest)
			return
		}
		unreadOnly = v
	}

	items, err := h.notifications.ListForUser(r.Context(), middleware.GetUserID(r.Context()), unreadOnly)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if items == nil {
		items = []notification.Notification{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.notifications.MarkRead(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamNotifications relays the user's live channel as server-sent events.
func (h *Handlers) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || h.subscriber == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "streaming unavailable"})
		return
	}

	userID := middleware.GetUserID(r.Context())
	messages, closeSub, err := h.subscriber.Subscribe(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer func() {
		if err := closeSub(); err != nil {
			h.logger.Debug("close subscription", zap.Int64("user_id", userID), zap.Error(err))
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
