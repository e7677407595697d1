// Package repository defines interfaces for data storage
package repository

import (
	"context"
	"time"

	"github.com/navikt/elmo/internal/models"
)

// Store defines the interface for storing and retrieving room state.
// Operations on a missing room return models.ErrRoomNotFound.
// Every mutation is scoped to the fields it names; implementations must not
// rewrite the whole room document for an incremental operation, so that
// concurrent edits to disjoint fields never clobber each other.
type Store interface {
	// Room lifecycle
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	ArchiveRoom(ctx context.Context, id string, at time.Time) error
	DeleteRoom(ctx context.Context, id string) error

	// Participants. AddParticipant is idempotent per user ID;
	// RemoveParticipant is an atomic remove-by-id and a no-op for IDs
	// that are not present.
	AddParticipant(ctx context.Context, roomID, userID, userName string) error
	RemoveParticipant(ctx context.Context, roomID, userID string) error

	// ELMO counter. IncrementElmo atomically bumps the counter and appends
	// the timestamp to the summary log in a single transaction.
	// ResetElmoCount zeroes the counter and leaves the log untouched.
	IncrementElmo(ctx context.Context, roomID string, at time.Time) error
	ResetElmoCount(ctx context.Context, roomID string) error

	// Wholesale field writes, last writer wins
	SetAgenda(ctx context.Context, roomID string, agenda []models.AgendaItem) error
	SetNotes(ctx context.Context, roomID, notes string) error

	// Append-only summary logs with exact-duplicate dedup
	AppendDecision(ctx context.Context, roomID, text string) error
	AppendActionItem(ctx context.Context, roomID, text string) error

	// Meeting start/end timestamps. SetEndTime also fixes the summary
	// duration in seconds.
	SetStartTime(ctx context.Context, roomID string, at time.Time) error
	SetEndTime(ctx context.Context, roomID string, at time.Time, durationSecs int) error

	// Chat messages, append-only, ordered by server timestamp
	AddMessage(ctx context.Context, roomID string, message *models.ChatMessage) error
	ListMessages(ctx context.Context, roomID string) ([]*models.ChatMessage, error)

	// WatchRoom delivers a RoomEvent for every mutation of the room until
	// the context is cancelled or the returned stop function is called.
	// The event channel is closed when delivery stops.
	WatchRoom(ctx context.Context, roomID string) (<-chan models.RoomEvent, func(), error)
}
