// Package web provides the real-time surface: server-sent events relaying
// room snapshots to connected clients.
package web

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/navikt/elmo/internal/service"
	"github.com/navikt/elmo/internal/utils"
)

// heartbeatInterval keeps intermediate proxies from timing out idle streams
const heartbeatInterval = 15 * time.Second

// SSEManager streams room snapshots to clients over server-sent events.
// Each connection holds one room subscription; closing the request context
// releases it.
type SSEManager struct {
	service *service.RoomService
}

// NewSSEManager creates a new server-sent events manager
func NewSSEManager(svc *service.RoomService) *SSEManager {
	return &SSEManager{
		service: svc,
	}
}

// ServeHTTP implements the http.Handler interface for SSE connections.
// Path format: /events/rooms/{roomID}
func (sm *SSEManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Set CORS headers to make SSE work in various environments
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

	// Handle CORS preflight
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 3 || pathParts[2] == "" {
		http.NotFound(w, r)
		return
	}
	roomID := pathParts[2]

	// Set required headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx proxy buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	clientID := fmt.Sprintf("%d", time.Now().UnixNano())
	log.Printf("SSE client %s connected for room %s from %s", clientID, utils.SanitizeLogString(roomID), r.RemoteAddr)

	subscription := sm.service.Subscribe(r.Context(), roomID)
	defer subscription.Close()

	// Retry directive and a connected event to prime the stream
	fmt.Fprintf(w, "retry: 5000\n")
	sse.Encode(w, sse.Event{
		Event: "connected",
		Data:  map[string]string{"id": clientID},
	})
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := r.Context().Done()

	for {
		select {
		case <-done:
			log.Printf("SSE client %s disconnected", clientID)
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().Format(time.RFC3339)); err != nil {
				log.Printf("Error sending heartbeat to client %s: %v", clientID, err)
				return
			}
			flusher.Flush()
		case snapshot, ok := <-subscription.C:
			if !ok {
				return
			}
			event := sse.Event{Event: "snapshot", Data: snapshot}
			if !snapshot.Exists {
				event = sse.Event{Event: "room-gone", Data: map[string]string{"roomId": roomID}}
			}
			if err := sse.Encode(w, event); err != nil {
				log.Printf("Error sending SSE event to client %s: %v", clientID, err)
				return
			}
			flusher.Flush()
		}
	}
}
