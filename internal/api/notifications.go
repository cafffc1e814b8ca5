package api

import "net/http"

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notifications.ListForUser(r.Context(), userIDFromContext(r), r.URL.Query().Get("unread") == "true")
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.notifications.MarkRead(r.Context(), userIDFromContext(r), id); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
