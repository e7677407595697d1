package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/navikt/elmo/internal/models"
	"github.com/navikt/elmo/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(id, name string) *models.Room {
	return &models.Room{
		ID:        id,
		Name:      name,
		Status:    models.RoomStatusActive,
		CreatedBy: "u1",
		CreatedAt: time.Now().UTC(),
	}
}

func TestRoomLifecycle(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRoom(ctx, newTestRoom("r1", "Sprint Planning")))

	room, err := store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Sprint Planning", room.Name)
	assert.Equal(t, models.RoomStatusActive, room.Status)
	assert.Equal(t, 0, room.ElmoCount)
	assert.Empty(t, room.Participants)

	// Archive is one-way
	archivedAt := time.Now().UTC()
	require.NoError(t, store.ArchiveRoom(ctx, "r1", archivedAt))
	room, err = store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, room.IsArchived())
	assert.Equal(t, archivedAt, room.ArchivedAt)

	// Delete is terminal
	require.NoError(t, store.DeleteRoom(ctx, "r1"))
	_, err = store.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, models.ErrRoomNotFound)

	// Mutations on a deleted room report not-found
	assert.ErrorIs(t, store.IncrementElmo(ctx, "r1", time.Now()), models.ErrRoomNotFound)
	assert.ErrorIs(t, store.DeleteRoom(ctx, "r1"), models.ErrRoomNotFound)
}

func TestParticipants(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRoom(ctx, newTestRoom("r1", "Standup")))

	// Joining repeatedly with the same ID keeps membership at one
	require.NoError(t, store.AddParticipant(ctx, "r1", "u1", "Alice"))
	require.NoError(t, store.AddParticipant(ctx, "r1", "u1", "Alice"))
	require.NoError(t, store.AddParticipant(ctx, "r1", "u2", "Bob"))

	room, err := store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, room.Participants, 2)
	assert.Equal(t, "u1", room.Participants[0].ID)
	assert.Equal(t, "u2", room.Participants[1].ID)

	// Removing an absent participant is a no-op
	require.NoError(t, store.RemoveParticipant(ctx, "r1", "nobody"))
	room, err = store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, room.Participants, 2)

	require.NoError(t, store.RemoveParticipant(ctx, "r1", "u1"))
	room, err = store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, "u2", room.Participants[0].ID)
}

func TestElmoCounter(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRoom(ctx, newTestRoom("r1", "Retro")))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementElmo(ctx, "r1", time.Now().UTC()))
	}

	room, err := store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 3, room.ElmoCount)
	assert.Len(t, room.Summary.ElmoTimestamps, 3)
	assert.False(t, room.LastElmoAt.IsZero())

	// Reset zeroes the counter but keeps the timestamp log
	require.NoError(t, store.ResetElmoCount(ctx, "r1"))
	room, err = store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 0, room.ElmoCount)
	assert.Len(t, room.Summary.ElmoTimestamps, 3)
}

func TestSummaryLogs(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRoom(ctx, newTestRoom("r1", "Planning")))

	// Exact duplicates collapse into one entry
	require.NoError(t, store.AppendDecision(ctx, "r1", "Ship it"))
	require.NoError(t, store.AppendDecision(ctx, "r1", "Ship it"))
	require.NoError(t, store.AppendDecision(ctx, "r1", "Postpone launch"))

	require.NoError(t, store.AppendActionItem(ctx, "r1", "Write docs"))
	require.NoError(t, store.AppendActionItem(ctx, "r1", "Write docs"))

	room, err := store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ship it", "Postpone launch"}, room.Summary.Decisions)
	assert.Equal(t, []string{"Write docs"}, room.Summary.ActionItems)
}

func TestMeetingTimes(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRoom(ctx, newTestRoom("r1", "Weekly")))

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	require.NoError(t, store.SetStartTime(ctx, "r1", start))
	require.NoError(t, store.SetEndTime(ctx, "r1", end, 45*60))

	room, err := store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, room.Summary.StartTime)
	require.NotNil(t, room.Summary.EndTime)
	assert.Equal(t, start, *room.Summary.StartTime)
	assert.Equal(t, end, *room.Summary.EndTime)
	assert.Equal(t, 45*60, room.Summary.Duration)
}

func TestAgendaRoundTrip(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRoom(ctx, newTestRoom("r1", "Planning")))

	agenda := []models.AgendaItem{
		{ID: "a1", Topic: "Budget", DurationMinutes: 10},
		{ID: "a2", Topic: "Roadmap", DurationMinutes: 20},
		{ID: "a3", Topic: "AOB", DurationMinutes: 5},
	}
	require.NoError(t, store.SetAgenda(ctx, "r1", agenda))

	room, err := store.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, agenda, room.Agenda)
}

func TestMessages(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRoom(ctx, newTestRoom("r1", "Chat")))

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.AddMessage(ctx, "r1", &models.ChatMessage{
		ID: "m2", UserID: "u1", Message: "second", Timestamp: base.Add(time.Second),
	}))
	require.NoError(t, store.AddMessage(ctx, "r1", &models.ChatMessage{
		ID: "m1", UserID: "u2", Message: "first", Timestamp: base,
	}))

	messages, err := store.ListMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m2", messages[1].ID)
}

func TestWatchRoom(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRoom(ctx, newTestRoom("r1", "Watched")))

	events, stop, err := store.WatchRoom(ctx, "r1")
	require.NoError(t, err)
	defer stop()

	require.NoError(t, store.IncrementElmo(ctx, "r1", time.Now().UTC()))

	select {
	case event := <-events:
		assert.Equal(t, "r1", event.RoomID)
		assert.False(t, event.Deleted)
	case <-time.After(time.Second):
		t.Fatal("expected a room event after mutation")
	}

	require.NoError(t, store.DeleteRoom(ctx, "r1"))

	select {
	case event := <-events:
		assert.True(t, event.Deleted)
	case <-time.After(time.Second):
		t.Fatal("expected a delete event")
	}

	// Stop closes the event channel
	stop()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected the event channel to close")
	}
}
