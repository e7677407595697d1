package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/navikt/elmo/internal/models"
	"github.com/navikt/elmo/internal/service"
	"github.com/navikt/elmo/internal/utils"
)

// sessionRequest carries the acting user for user-scoped operations
type sessionRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

func (r sessionRequest) session() service.Session {
	return service.Session{UserID: r.UserID, UserName: r.UserName}
}

// handleAction dispatches POST/PUT /api/rooms/{roomID}/{action}
func (h *RoomHandler) handleAction(w http.ResponseWriter, r *http.Request, roomID, action string) {
	switch {
	case r.Method == http.MethodPost && action == "join":
		h.joinRoom(w, r, roomID)
	case r.Method == http.MethodPost && action == "leave":
		h.leaveRoom(w, r, roomID)
	case r.Method == http.MethodPost && action == "elmo":
		h.incrementElmo(w, r, roomID)
	case r.Method == http.MethodPost && action == "elmo/reset":
		h.resetElmoCount(w, r, roomID)
	case r.Method == http.MethodPut && action == "agenda":
		h.updateAgenda(w, r, roomID)
	case r.Method == http.MethodPut && action == "notes":
		h.updateNotes(w, r, roomID)
	case r.Method == http.MethodPost && action == "decisions":
		h.addDecision(w, r, roomID)
	case r.Method == http.MethodPost && action == "actions":
		h.addActionItem(w, r, roomID)
	case r.Method == http.MethodPost && action == "start":
		h.startMeeting(w, r, roomID)
	case r.Method == http.MethodPost && action == "end":
		h.endMeeting(w, r, roomID)
	case r.Method == http.MethodPost && action == "archive":
		h.archiveRoom(w, r, roomID)
	case action == "messages":
		h.handleMessages(w, r, roomID)
	default:
		http.NotFound(w, r)
	}
}

func (h *RoomHandler) joinRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.service.JoinRoom(r.Context(), roomID, req.session()); err != nil {
		writeError(w, err)
		return
	}

	log.Printf("User %s joined room %s", utils.SanitizeLogString(req.UserID), utils.SanitizeLogString(roomID))
	writeOK(w)
}

func (h *RoomHandler) leaveRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.service.LeaveRoom(r.Context(), roomID, req.session()); err != nil {
		writeError(w, err)
		return
	}

	log.Printf("User %s left room %s", utils.SanitizeLogString(req.UserID), utils.SanitizeLogString(roomID))
	writeOK(w)
}

func (h *RoomHandler) incrementElmo(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := h.service.IncrementElmo(r.Context(), roomID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *RoomHandler) resetElmoCount(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := h.service.ResetElmoCount(r.Context(), roomID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *RoomHandler) updateAgenda(w http.ResponseWriter, r *http.Request, roomID string) {
	var agenda []models.AgendaItem
	if err := json.NewDecoder(r.Body).Decode(&agenda); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.service.UpdateAgenda(r.Context(), roomID, agenda); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *RoomHandler) updateNotes(w http.ResponseWriter, r *http.Request, roomID string) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.service.UpdateNotes(r.Context(), roomID, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *RoomHandler) addDecision(w http.ResponseWriter, r *http.Request, roomID string) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.service.AddDecision(r.Context(), roomID, req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *RoomHandler) addActionItem(w http.ResponseWriter, r *http.Request, roomID string) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.service.AddActionItem(r.Context(), roomID, req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *RoomHandler) startMeeting(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := h.service.StartMeeting(r.Context(), roomID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *RoomHandler) endMeeting(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := h.service.EndMeeting(r.Context(), roomID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *RoomHandler) archiveRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := h.service.ArchiveRoom(r.Context(), roomID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
