package models

import (
	"time"
)

// RoomStatus represents the lifecycle state of a room
type RoomStatus string

const (
	RoomStatusActive   RoomStatus = "active"
	RoomStatusArchived RoomStatus = "archived"
)

// Participant represents a user present in a room
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AgendaItem is a named, time-boxed discussion topic within a room
type AgendaItem struct {
	ID              string `json:"id"`
	Topic           string `json:"topic"`
	DurationMinutes int    `json:"durationMinutes"`
}

// Summary accumulates the meeting outcome for a room.
// Decisions, ActionItems and ElmoTimestamps are append-only logs.
type Summary struct {
	StartTime      *time.Time  `json:"startTime,omitempty"`
	EndTime        *time.Time  `json:"endTime,omitempty"`
	Duration       int         `json:"duration"` // seconds, set when the meeting ends
	Decisions      []string    `json:"decisions"`
	ActionItems    []string    `json:"actionItems"`
	ElmoTimestamps []time.Time `json:"elmoTimestamps"`
}

// Room represents one meeting session's shared state
type Room struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       RoomStatus    `json:"status"`
	CreatedBy    string        `json:"createdBy"`
	ElmoCount    int           `json:"elmoCount"`
	LastElmoAt   time.Time     `json:"lastElmoAt,omitempty"`
	Participants []Participant `json:"participants"`
	Agenda       []AgendaItem  `json:"agenda"`
	Notes        string        `json:"notes"`
	Summary      Summary       `json:"summary"`
	CreatedAt    time.Time     `json:"createdAt"`
	ArchivedAt   time.Time     `json:"archivedAt,omitempty"`
}

// IsArchived returns true once the room has left the active state
func (r *Room) IsArchived() bool {
	return r.Status == RoomStatusArchived
}

// HasParticipant reports whether a participant with the given ID is present
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}
