package models

import (
	"sort"
	"time"
)

// ChatMessage is one entry in a room's append-only message log
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SortMessages orders messages by server timestamp ascending, ties broken
// by message ID so the order is total regardless of arrival order
func SortMessages(messages []*ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}
