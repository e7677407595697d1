package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/navikt/elmo/internal/api"
	"github.com/navikt/elmo/internal/models"
	"github.com/navikt/elmo/internal/repository/memory"
	"github.com/navikt/elmo/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc := service.NewRoomService(memory.NewStore())
	return api.SetupRoutes(svc)
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, request)
	return recorder
}

func createRoom(t *testing.T, mux *http.ServeMux, name string) string {
	t.Helper()

	recorder := doJSON(t, mux, http.MethodPost, "/api/rooms", map[string]string{
		"name":     name,
		"userId":   "u1",
		"userName": "Alice",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.NotEmpty(t, response["id"])
	return response["id"]
}

func getRoom(t *testing.T, mux *http.ServeMux, roomID string) *models.Room {
	t.Helper()

	recorder := doJSON(t, mux, http.MethodGet, "/api/rooms/"+roomID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var room models.Room
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &room))
	return &room
}

func TestCreateRoom(t *testing.T) {
	mux := setupMux(t)

	roomID := createRoom(t, mux, "Sprint Planning")

	room := getRoom(t, mux, roomID)
	assert.Equal(t, "Sprint Planning", room.Name)
	assert.Equal(t, models.RoomStatusActive, room.Status)
	assert.Equal(t, "u1", room.CreatedBy)
}

func TestCreateRoomValidation(t *testing.T) {
	mux := setupMux(t)

	// Blank name is rejected before reaching the store
	recorder := doJSON(t, mux, http.MethodPost, "/api/rooms", map[string]string{
		"name":   "",
		"userId": "u1",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// Malformed body
	request := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoomNotFound(t *testing.T) {
	mux := setupMux(t)

	recorder := doJSON(t, mux, http.MethodGet, "/api/rooms/missing", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = doJSON(t, mux, http.MethodPost, "/api/rooms/missing/elmo", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestJoinLeaveRoom(t *testing.T) {
	mux := setupMux(t)
	roomID := createRoom(t, mux, "Standup")

	join := func(userID, userName string) {
		recorder := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/join", roomID), map[string]string{
			"userId":   userID,
			"userName": userName,
		})
		require.Equal(t, http.StatusOK, recorder.Code)
	}

	join("u1", "Alice")
	join("u1", "Alice") // idempotent
	join("u2", "Bob")

	room := getRoom(t, mux, roomID)
	assert.Len(t, room.Participants, 2)

	recorder := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/leave", roomID), map[string]string{
		"userId": "u1",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	room = getRoom(t, mux, roomID)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, "u2", room.Participants[0].ID)

	// Missing identity is rejected
	recorder = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/join", roomID), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestElmoEndpoints(t *testing.T) {
	mux := setupMux(t)
	roomID := createRoom(t, mux, "Retro")

	for i := 0; i < 3; i++ {
		recorder := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/elmo", roomID), nil)
		require.Equal(t, http.StatusOK, recorder.Code)
	}

	room := getRoom(t, mux, roomID)
	assert.Equal(t, 3, room.ElmoCount)
	assert.Len(t, room.Summary.ElmoTimestamps, 3)

	recorder := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/elmo/reset", roomID), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	room = getRoom(t, mux, roomID)
	assert.Equal(t, 0, room.ElmoCount)
	assert.Len(t, room.Summary.ElmoTimestamps, 3)
}

func TestAgendaRoundTrip(t *testing.T) {
	mux := setupMux(t)
	roomID := createRoom(t, mux, "Planning")

	agenda := []models.AgendaItem{
		{ID: "a1", Topic: "Budget", DurationMinutes: 10},
		{ID: "a2", Topic: "Roadmap", DurationMinutes: 20},
	}
	recorder := doJSON(t, mux, http.MethodPut, fmt.Sprintf("/api/rooms/%s/agenda", roomID), agenda)
	require.Equal(t, http.StatusOK, recorder.Code)

	room := getRoom(t, mux, roomID)
	assert.Equal(t, agenda, room.Agenda)
}

func TestNotesAndSummaryLogs(t *testing.T) {
	mux := setupMux(t)
	roomID := createRoom(t, mux, "Planning")

	recorder := doJSON(t, mux, http.MethodPut, fmt.Sprintf("/api/rooms/%s/notes", roomID), map[string]string{
		"notes": "follow up with infra",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	addDecision := func(text string) *httptest.ResponseRecorder {
		return doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/decisions", roomID), map[string]string{
			"text": text,
		})
	}

	require.Equal(t, http.StatusOK, addDecision("Ship it").Code)
	require.Equal(t, http.StatusOK, addDecision("Ship it").Code)
	assert.Equal(t, http.StatusBadRequest, addDecision("").Code)

	recorder = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/actions", roomID), map[string]string{
		"text": "Write docs",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	room := getRoom(t, mux, roomID)
	assert.Equal(t, "follow up with infra", room.Notes)
	assert.Equal(t, []string{"Ship it"}, room.Summary.Decisions)
	assert.Equal(t, []string{"Write docs"}, room.Summary.ActionItems)
}

func TestMeetingStartEnd(t *testing.T) {
	mux := setupMux(t)
	roomID := createRoom(t, mux, "Weekly")

	recorder := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/start", roomID), nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	recorder = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/end", roomID), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	room := getRoom(t, mux, roomID)
	assert.NotNil(t, room.Summary.StartTime)
	assert.NotNil(t, room.Summary.EndTime)
}

func TestArchiveAndListPartition(t *testing.T) {
	mux := setupMux(t)
	activeID := createRoom(t, mux, "Active Room")
	archivedID := createRoom(t, mux, "Old Room")

	recorder := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/archive", archivedID), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, mux, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var list service.RoomList
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &list))
	require.Len(t, list.Active, 1)
	require.Len(t, list.Archived, 1)
	assert.Equal(t, activeID, list.Active[0].ID)
	assert.Equal(t, archivedID, list.Archived[0].ID)
}

func TestDeleteRoom(t *testing.T) {
	mux := setupMux(t)
	roomID := createRoom(t, mux, "Doomed")

	recorder := doJSON(t, mux, http.MethodDelete, "/api/rooms/"+roomID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, mux, http.MethodGet, "/api/rooms/"+roomID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = doJSON(t, mux, http.MethodDelete, "/api/rooms/"+roomID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestMessages(t *testing.T) {
	mux := setupMux(t)
	roomID := createRoom(t, mux, "Chat")

	send := func(userID, text string) *httptest.ResponseRecorder {
		return doJSON(t, mux, http.MethodPost, fmt.Sprintf("/api/rooms/%s/messages", roomID), map[string]string{
			"userId":  userID,
			"message": text,
		})
	}

	recorder := send("u1", "hello")
	require.Equal(t, http.StatusCreated, recorder.Code)

	var sent models.ChatMessage
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &sent))
	assert.NotEmpty(t, sent.ID)
	assert.False(t, sent.Timestamp.IsZero())

	require.Equal(t, http.StatusCreated, send("u2", "hi there").Code)

	// Blank message and missing identity are rejected
	assert.Equal(t, http.StatusBadRequest, send("u1", "").Code)
	assert.Equal(t, http.StatusBadRequest, send("", "hello").Code)

	recorder = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/rooms/%s/messages", roomID), nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var messages []*models.ChatMessage
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Message)
	assert.Equal(t, "hi there", messages[1].Message)
}

func TestHealthEndpoints(t *testing.T) {
	mux := setupMux(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		recorder := doJSON(t, mux, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, recorder.Code)

		var response api.HealthResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "UP", response.Status)
	}
}
