package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/navikt/elmo/internal/models"
	"github.com/navikt/elmo/internal/service"
	"github.com/navikt/elmo/internal/utils"
)

// RoomHandler handles HTTP requests for room management
type RoomHandler struct {
	service *service.RoomService
}

// NewRoomHandler creates a new room handler with the given service
func NewRoomHandler(svc *service.RoomService) *RoomHandler {
	return &RoomHandler{
		service: svc,
	}
}

// ServeHTTP handles HTTP requests for room management
func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Set common headers
	w.Header().Set("Content-Type", "application/json")

	// Path format: /api/rooms[/{roomID}[/{action...}]]
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	var roomID, action string
	if len(pathParts) >= 3 {
		roomID = pathParts[2]
	}
	if len(pathParts) >= 4 {
		action = strings.Join(pathParts[3:], "/")
	}

	switch {
	case r.Method == http.MethodPost && roomID == "":
		h.createRoom(w, r)
	case r.Method == http.MethodGet && roomID == "":
		h.listRooms(w, r)
	case r.Method == http.MethodGet && action == "":
		h.getRoom(w, r, roomID)
	case r.Method == http.MethodDelete && action == "":
		h.deleteRoom(w, r, roomID)
	case action != "":
		h.handleAction(w, r, roomID, action)
	default:
		http.NotFound(w, r)
	}
}

// createRoomRequest is the body for POST /api/rooms
type createRoomRequest struct {
	Name     string `json:"name"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// createRoom handles POST /api/rooms to create a new room
func (h *RoomHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding create room request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	session := service.Session{UserID: req.UserID, UserName: req.UserName}
	roomID, err := h.service.CreateRoom(r.Context(), req.Name, session)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": roomID})
}

// listRooms handles GET /api/rooms, partitioned by status
func (h *RoomHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRooms(r.Context())
	if err != nil {
		log.Printf("Error listing rooms: %v", err)
		http.Error(w, "Error retrieving rooms", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(list)
}

// getRoom handles GET /api/rooms/{roomID}
func (h *RoomHandler) getRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(room)
}

// deleteRoom handles DELETE /api/rooms/{roomID}
func (h *RoomHandler) deleteRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := h.service.DeleteRoom(r.Context(), roomID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Room deleted successfully",
	})
}

// writeError maps service and store errors to HTTP responses
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrRoomNotFound):
		http.Error(w, "Room not found", http.StatusNotFound)
	case errors.Is(err, service.ErrEmptyRoomName),
		errors.Is(err, service.ErrEmptyUserID),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrEmptyText):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Internal error: %v", utils.SanitizeLogString(err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
