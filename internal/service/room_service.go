// Package service implements the room state synchronizer: validated,
// intention-revealing operations over the store plus live snapshot streams.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/navikt/elmo/internal/models"
	"github.com/navikt/elmo/internal/repository"
)

// Validation errors, returned before any store call is attempted
var (
	ErrEmptyRoomName = errors.New("room name must not be empty")
	ErrEmptyUserID   = errors.New("user id must not be empty")
	ErrEmptyMessage  = errors.New("message must not be empty")
	ErrEmptyText     = errors.New("text must not be empty")
)

// Session identifies the user an operation acts on behalf of. It is passed
// explicitly to every user-scoped operation; there is no ambient identity.
type Session struct {
	UserID   string
	UserName string
}

// Valid reports whether the session carries a usable user ID
func (s Session) Valid() bool {
	return strings.TrimSpace(s.UserID) != ""
}

// RoomList partitions rooms by lifecycle status
type RoomList struct {
	Active   []*models.Room `json:"active"`
	Archived []*models.Room `json:"archived"`
}

// RoomService provides the synchronizer operations over a store
type RoomService struct {
	store repository.Store
	now   func() time.Time
}

// NewRoomService creates a new RoomService with the given store
func NewRoomService(store repository.Store) *RoomService {
	return &RoomService{
		store: store,
		now:   time.Now,
	}
}

// CreateRoom creates a new active room and returns its generated ID
func (s *RoomService) CreateRoom(ctx context.Context, name string, session Session) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyRoomName
	}
	if !session.Valid() {
		return "", ErrEmptyUserID
	}

	room := &models.Room{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    models.RoomStatusActive,
		CreatedBy: session.UserID,
		Agenda:    []models.AgendaItem{},
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.CreateRoom(ctx, room); err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	}

	return room.ID, nil
}

// GetRoom returns the current snapshot of a room
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.store.GetRoom(ctx, roomID)
}

// ListRooms returns all rooms partitioned by status. The result is a
// snapshot at call time, not a live view.
func (s *RoomService) ListRooms(ctx context.Context) (*RoomList, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	list := &RoomList{
		Active:   []*models.Room{},
		Archived: []*models.Room{},
	}
	for _, room := range rooms {
		if room.IsArchived() {
			list.Archived = append(list.Archived, room)
		} else {
			list.Active = append(list.Active, room)
		}
	}

	return list, nil
}

// JoinRoom adds the session's user to the room's participant set.
// Re-joining with the same user ID is a no-op for set membership.
func (s *RoomService) JoinRoom(ctx context.Context, roomID string, session Session) error {
	if !session.Valid() {
		return ErrEmptyUserID
	}
	return s.store.AddParticipant(ctx, roomID, session.UserID, session.UserName)
}

// LeaveRoom removes the session's user from the participant set. Leaving a
// room the user is not in is a no-op.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID string, session Session) error {
	if !session.Valid() {
		return ErrEmptyUserID
	}
	return s.store.RemoveParticipant(ctx, roomID, session.UserID)
}

// IncrementElmo registers one "let's move on" signal: the counter is bumped
// and the timestamp appended to the summary log atomically
func (s *RoomService) IncrementElmo(ctx context.Context, roomID string) error {
	return s.store.IncrementElmo(ctx, roomID, s.now().UTC())
}

// ResetElmoCount sets the counter back to zero without touching the
// timestamp log
func (s *RoomService) ResetElmoCount(ctx context.Context, roomID string) error {
	return s.store.ResetElmoCount(ctx, roomID)
}

// UpdateAgenda overwrites the agenda wholesale. Concurrent agenda edits
// from two clients resolve last-writer-wins for the entire sequence.
func (s *RoomService) UpdateAgenda(ctx context.Context, roomID string, agenda []models.AgendaItem) error {
	return s.store.SetAgenda(ctx, roomID, agenda)
}

// UpdateNotes overwrites the shared notes wholesale, last writer wins
func (s *RoomService) UpdateNotes(ctx context.Context, roomID, notes string) error {
	return s.store.SetNotes(ctx, roomID, notes)
}

// AddDecision appends a decision to the summary log. Exact-duplicate
// strings collapse into a single entry.
func (s *RoomService) AddDecision(ctx context.Context, roomID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return s.store.AppendDecision(ctx, roomID, text)
}

// AddActionItem appends an action item to the summary log. Exact-duplicate
// strings collapse into a single entry.
func (s *RoomService) AddActionItem(ctx context.Context, roomID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return s.store.AppendActionItem(ctx, roomID, text)
}

// StartMeeting records the meeting start time. Calling it again overwrites
// the timestamp.
func (s *RoomService) StartMeeting(ctx context.Context, roomID string) error {
	return s.store.SetStartTime(ctx, roomID, s.now().UTC())
}

// EndMeeting records the meeting end time and fixes the summary duration
// from the recorded start time
func (s *RoomService) EndMeeting(ctx context.Context, roomID string) error {
	end := s.now().UTC()

	duration := 0
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Summary.StartTime != nil && end.After(*room.Summary.StartTime) {
		duration = int(end.Sub(*room.Summary.StartTime) / time.Second)
	}

	return s.store.SetEndTime(ctx, roomID, end, duration)
}

// ArchiveRoom moves a room from active to archived. The transition is
// one-way.
func (s *RoomService) ArchiveRoom(ctx context.Context, roomID string) error {
	return s.store.ArchiveRoom(ctx, roomID, s.now().UTC())
}

// DeleteRoom permanently removes a room and its chat messages
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) error {
	return s.store.DeleteRoom(ctx, roomID)
}

// SendMessage appends a chat message with a server-assigned timestamp
func (s *RoomService) SendMessage(ctx context.Context, roomID string, session Session, text string) (*models.ChatMessage, error) {
	if !session.Valid() {
		return nil, ErrEmptyUserID
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	message := &models.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    session.UserID,
		Message:   text,
		Timestamp: s.now().UTC(),
	}

	if err := s.store.AddMessage(ctx, roomID, message); err != nil {
		return nil, err
	}

	return message, nil
}

// GetMessages returns the room's chat log ordered by server timestamp
func (s *RoomService) GetMessages(ctx context.Context, roomID string) ([]*models.ChatMessage, error) {
	return s.store.ListMessages(ctx, roomID)
}

// Snapshot is one delivery on a room subscription. Exists is false when
// the room does not (or no longer) exist.
type Snapshot struct {
	Room   *models.Room `json:"room,omitempty"`
	Exists bool         `json:"exists"`
}

// Subscription is a live stream of room snapshots. The caller owns its
// lifecycle: Close stops delivery and releases the watch resources.
type Subscription struct {
	C      <-chan Snapshot
	cancel context.CancelFunc
}

// Close stops snapshot delivery. Safe to call more than once.
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe returns a subscription that delivers the current snapshot
// immediately and a fresh snapshot after every mutation of the room.
// Delivery is at-least-once of the latest value. The watch is
// re-established with exponential backoff if it drops.
func (s *RoomService) Subscribe(ctx context.Context, roomID string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Snapshot, 8)

	go s.run(ctx, roomID, ch)

	return &Subscription{C: ch, cancel: cancel}
}

func (s *RoomService) run(ctx context.Context, roomID string, ch chan<- Snapshot) {
	defer close(ch)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry until the subscription is closed

	for {
		if err := s.watchOnce(ctx, roomID, ch, bo); err != nil {
			return
		}
		// Watch dropped; resubscribe after a backoff
		if !s.sleep(ctx, bo.NextBackOff()) {
			return
		}
	}
}

// watchOnce relays events until the watch drops. A nil return means the
// watch should be re-established; an error ends the subscription.
func (s *RoomService) watchOnce(ctx context.Context, roomID string, ch chan<- Snapshot, bo *backoff.ExponentialBackOff) error {
	events, stop, err := s.store.WatchRoom(ctx, roomID)
	if err != nil {
		log.Printf("Failed to watch room %s: %v", roomID, err)
		if !s.deliver(ctx, roomID, ch) {
			return context.Canceled
		}
		return nil
	}
	defer stop()

	// Deliver the current snapshot only once the watch is in place, so a
	// mutation between the two is never missed
	if !s.deliver(ctx, roomID, ch) {
		return context.Canceled
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			bo.Reset()
			if event.Deleted {
				if !s.send(ctx, ch, Snapshot{Exists: false}) {
					return context.Canceled
				}
				continue
			}
			if !s.deliver(ctx, roomID, ch) {
				return context.Canceled
			}
		}
	}
}

// deliver fetches the current snapshot and pushes it to the subscriber
func (s *RoomService) deliver(ctx context.Context, roomID string, ch chan<- Snapshot) bool {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, models.ErrRoomNotFound) {
			return s.send(ctx, ch, Snapshot{Exists: false})
		}
		log.Printf("Failed to read snapshot for room %s: %v", roomID, err)
		return true
	}
	return s.send(ctx, ch, Snapshot{Room: room, Exists: true})
}

func (s *RoomService) send(ctx context.Context, ch chan<- Snapshot, snapshot Snapshot) bool {
	select {
	case ch <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *RoomService) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
