package handler

import (
	"net/http"

	"estate-web/internal/middleware"
	"estate-web/internal/websocket"
)

type WSHandler struct {
	hub         *websocket.Hub
	checkOrigin func(*http.Request) bool
}

func NewWSHandler(hub *websocket.Hub, checkOrigin func(*http.Request) bool) *WSHandler {
	return &WSHandler{hub: hub, checkOrigin: checkOrigin}
}

// Serve streams upload progress for the caller's browser session.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "browser session required")
		return
	}
	h.hub.Serve(w, r, sessionID, h.checkOrigin)
}
