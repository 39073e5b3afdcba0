package handlers

import (
	"net/http"

	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

type NotificationFeed interface {
	Recent() []usecase.Notification
}

type NotificationHandler struct {
	Feed NotificationFeed
}

func NewNotificationHandler(feed NotificationFeed) *NotificationHandler {
	return &NotificationHandler{Feed: feed}
}

// List (GET /notifications) devolve da mais recente para a mais antiga.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.Feed.Recent()
	if items == nil {
		items = []usecase.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}
