package handlers

import (
	"net/http"

	"github.com/courtside/matchplay/middleware"
	"github.com/courtside/matchplay/services"
)

type NotificationHandler struct {
	feed *services.NotificationService
}

func NewNotificationHandler(feed *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

func (h *NotificationHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	limit := 0
	if raw, err := intFromQuery(r, "limit"); err != nil {
		badRequestResponse(w, r, err)
		return
	} else if raw != nil {
		limit = *raw
	}

	notifications, err := h.feed.ListForUser(r.Context(), currentUserID, limit)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"notifications": notifications}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
