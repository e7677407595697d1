package api

import (
	"net/http"

	"github.com/navikt/elmo/internal/service"
)

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(svc *service.RoomService) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints for Kubernetes
	mux.HandleFunc("/health/live", HealthLiveHandler)
	mux.HandleFunc("/health/ready", HealthReadyHandler)

	// Room management endpoints
	roomHandler := NewRoomHandler(svc)
	mux.Handle("/api/rooms", roomHandler)
	mux.Handle("/api/rooms/", roomHandler)

	return mux
}
