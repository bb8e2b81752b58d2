package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/marketplace/internal/notify"
)

type NotificationsHandler struct {
	feed      *notify.Dispatcher
	broker    *notify.Broker
	keepAlive time.Duration
}

func NewNotificationsHandler(feed *notify.Dispatcher, broker *notify.Broker) *NotificationsHandler {
	return &NotificationsHandler{feed: feed, broker: broker, keepAlive: 25 * time.Second}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.feed.List(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	unread, err := h.feed.UnreadCount(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"notifications": items, "unread": unread}, http.StatusOK)
}

func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.feed.MarkRead(r.Context(), mux.Vars(r)["id"], id.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	n, err := h.feed.MarkAllRead(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"updated": n}, http.StatusOK)
}

// Stream pushes the caller's new notifications as server-sent events until
// the client goes away.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	rc := http.NewResponseController(w)
	// the server write timeout would cut the stream
	_ = rc.SetWriteDeadline(time.Time{})

	ch, cancel := h.broker.Subscribe(id.UserID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Warn("stream not flushable", "err", err)
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, open := <-ch:
			if !open {
				return
			}
			b, err := json.Marshal(n)
			if err != nil {
				logger.Error("encode notification", "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: notification\nid: %s\ndata: %s\n\n", n.ID, b); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
