package models

import (
	"errors"
)

// ErrRoomNotFound is returned by stores when a room does not exist
var ErrRoomNotFound = errors.New("room not found")

// RoomEvent describes a change to a room document. Watchers receive one
// event per mutation and re-read the snapshot themselves.
type RoomEvent struct {
	RoomID  string `json:"roomId"`
	Deleted bool   `json:"deleted,omitempty"`
}
