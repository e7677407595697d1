package api

import (
	"encoding/json"
	"net/http"
)

// handleMessages dispatches /api/rooms/{roomID}/messages
func (h *RoomHandler) handleMessages(w http.ResponseWriter, r *http.Request, roomID string) {
	switch r.Method {
	case http.MethodGet:
		h.listMessages(w, r, roomID)
	case http.MethodPost:
		h.sendMessage(w, r, roomID)
	default:
		http.NotFound(w, r)
	}
}

// sendMessageRequest is the body for POST /api/rooms/{roomID}/messages
type sendMessageRequest struct {
	sessionRequest
	Message string `json:"message"`
}

// sendMessage appends a chat message with a server-assigned timestamp
func (h *RoomHandler) sendMessage(w http.ResponseWriter, r *http.Request, roomID string) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	message, err := h.service.SendMessage(r.Context(), roomID, req.session(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(message)
}

// listMessages returns the room's chat log ordered by server timestamp
func (h *RoomHandler) listMessages(w http.ResponseWriter, r *http.Request, roomID string) {
	messages, err := h.service.GetMessages(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(messages)
}
