// Package memory provides an in-memory implementation of the store interface
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/navikt/elmo/internal/models"
)

// roomState contains the stored state for one room. Participants are keyed
// by user ID so joins are idempotent and leaves are atomic removals.
type roomState struct {
	ID             string
	Name           string
	Status         models.RoomStatus
	CreatedBy      string
	ElmoCount      int
	LastElmoAt     time.Time
	Participants   map[string]string // user ID -> display name
	JoinOrder      []string          // insertion order of participant IDs
	Agenda         []models.AgendaItem
	Notes          string
	StartTime      *time.Time
	EndTime        *time.Time
	Duration       int
	Decisions      []string
	DecisionSet    map[string]struct{}
	ActionItems    []string
	ActionItemSet  map[string]struct{}
	ElmoTimestamps []time.Time
	Messages       []*models.ChatMessage
	CreatedAt      time.Time
	ArchivedAt     time.Time
}

// Store implements the store interface with in-memory storage
type Store struct {
	rooms         map[string]*roomState
	watchers      map[string]map[int]chan models.RoomEvent
	nextWatcherID int
	mu            sync.RWMutex
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{
		rooms:    make(map[string]*roomState),
		watchers: make(map[string]map[int]chan models.RoomEvent),
	}
}

// CreateRoom saves a new room
func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &roomState{
		ID:            room.ID,
		Name:          room.Name,
		Status:        room.Status,
		CreatedBy:     room.CreatedBy,
		Participants:  make(map[string]string),
		DecisionSet:   make(map[string]struct{}),
		ActionItemSet: make(map[string]struct{}),
		Agenda:        append([]models.AgendaItem(nil), room.Agenda...),
		CreatedAt:     room.CreatedAt,
	}
	s.rooms[room.ID] = state

	s.notifyLocked(room.ID, false)
	return nil
}

// GetRoom retrieves a room by ID
func (s *Store) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.rooms[id]
	if !ok {
		return nil, models.ErrRoomNotFound
	}

	return state.toRoom(), nil
}

// ListRooms returns all rooms, active and archived
func (s *Store) ListRooms(ctx context.Context) ([]*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*models.Room, 0, len(s.rooms))
	for _, state := range s.rooms {
		rooms = append(rooms, state.toRoom())
	}

	return rooms, nil
}

// ArchiveRoom marks a room as archived
func (s *Store) ArchiveRoom(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[id]
	if !ok {
		return models.ErrRoomNotFound
	}

	state.Status = models.RoomStatusArchived
	state.ArchivedAt = at

	s.notifyLocked(id, false)
	return nil
}

// DeleteRoom permanently removes a room and its chat messages
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return models.ErrRoomNotFound
	}

	delete(s.rooms, id)

	s.notifyLocked(id, true)
	return nil
}

// AddParticipant adds a participant to a room. Joining again with the same
// user ID only refreshes the display name.
func (s *Store) AddParticipant(ctx context.Context, roomID, userID, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	if _, present := state.Participants[userID]; !present {
		state.JoinOrder = append(state.JoinOrder, userID)
	}
	state.Participants[userID] = userName

	s.notifyLocked(roomID, false)
	return nil
}

// RemoveParticipant removes a participant by user ID; absent IDs are a no-op
func (s *Store) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	if _, present := state.Participants[userID]; !present {
		return nil
	}

	delete(state.Participants, userID)
	for i, id := range state.JoinOrder {
		if id == userID {
			state.JoinOrder = append(state.JoinOrder[:i], state.JoinOrder[i+1:]...)
			break
		}
	}

	s.notifyLocked(roomID, false)
	return nil
}

// IncrementElmo bumps the counter and appends the timestamp in one step
func (s *Store) IncrementElmo(ctx context.Context, roomID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	state.ElmoCount++
	state.LastElmoAt = at
	state.ElmoTimestamps = append(state.ElmoTimestamps, at)

	s.notifyLocked(roomID, false)
	return nil
}

// ResetElmoCount zeroes the counter; the timestamp log is left untouched
func (s *Store) ResetElmoCount(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	state.ElmoCount = 0

	s.notifyLocked(roomID, false)
	return nil
}

// SetAgenda overwrites the agenda wholesale; the last writer wins
func (s *Store) SetAgenda(ctx context.Context, roomID string, agenda []models.AgendaItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	state.Agenda = append([]models.AgendaItem(nil), agenda...)

	s.notifyLocked(roomID, false)
	return nil
}

// SetNotes overwrites the shared notes wholesale; the last writer wins
func (s *Store) SetNotes(ctx context.Context, roomID, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	state.Notes = notes

	s.notifyLocked(roomID, false)
	return nil
}

// AppendDecision appends to the decisions log, collapsing exact duplicates
func (s *Store) AppendDecision(ctx context.Context, roomID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	if _, seen := state.DecisionSet[text]; !seen {
		state.DecisionSet[text] = struct{}{}
		state.Decisions = append(state.Decisions, text)
	}

	s.notifyLocked(roomID, false)
	return nil
}

// AppendActionItem appends to the action item log, collapsing exact duplicates
func (s *Store) AppendActionItem(ctx context.Context, roomID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	if _, seen := state.ActionItemSet[text]; !seen {
		state.ActionItemSet[text] = struct{}{}
		state.ActionItems = append(state.ActionItems, text)
	}

	s.notifyLocked(roomID, false)
	return nil
}

// SetStartTime records the meeting start timestamp
func (s *Store) SetStartTime(ctx context.Context, roomID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	t := at
	state.StartTime = &t

	s.notifyLocked(roomID, false)
	return nil
}

// SetEndTime records the meeting end timestamp and the resulting duration
func (s *Store) SetEndTime(ctx context.Context, roomID string, at time.Time, durationSecs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	t := at
	state.EndTime = &t
	state.Duration = durationSecs

	s.notifyLocked(roomID, false)
	return nil
}

// AddMessage appends a chat message to the room's log
func (s *Store) AddMessage(ctx context.Context, roomID string, message *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}

	copied := *message
	state.Messages = append(state.Messages, &copied)

	s.notifyLocked(roomID, false)
	return nil
}

// ListMessages returns the room's messages ordered by timestamp, ties by ID
func (s *Store) ListMessages(ctx context.Context, roomID string) ([]*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.rooms[roomID]
	if !ok {
		return nil, models.ErrRoomNotFound
	}

	messages := make([]*models.ChatMessage, len(state.Messages))
	for i, m := range state.Messages {
		copied := *m
		messages[i] = &copied
	}
	models.SortMessages(messages)

	return messages, nil
}

// WatchRoom registers a watcher for a room. Watching a room that does not
// exist is allowed; the caller observes its absence via GetRoom.
func (s *Store) WatchRoom(ctx context.Context, roomID string) (<-chan models.RoomEvent, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextWatcherID
	s.nextWatcherID++

	ch := make(chan models.RoomEvent, 16)
	if s.watchers[roomID] == nil {
		s.watchers[roomID] = make(map[int]chan models.RoomEvent)
	}
	s.watchers[roomID][id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if watchers, ok := s.watchers[roomID]; ok {
				if c, ok := watchers[id]; ok {
					delete(watchers, id)
					close(c)
				}
				if len(watchers) == 0 {
					delete(s.watchers, roomID)
				}
			}
		})
	}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			stop()
		}()
	}

	return ch, stop, nil
}

// notifyLocked fans an event out to the room's watchers. Callers must hold
// the write lock. Slow watchers are skipped rather than blocked on; the
// consumer re-reads the latest snapshot per event, so a dropped event only
// delays convergence until the next write.
func (s *Store) notifyLocked(roomID string, deleted bool) {
	event := models.RoomEvent{RoomID: roomID, Deleted: deleted}
	for _, ch := range s.watchers[roomID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// toRoom converts stored state to the shared room model
func (st *roomState) toRoom() *models.Room {
	participants := make([]models.Participant, 0, len(st.Participants))
	for _, id := range st.JoinOrder {
		if name, ok := st.Participants[id]; ok {
			participants = append(participants, models.Participant{ID: id, Name: name})
		}
	}

	var start, end *time.Time
	if st.StartTime != nil {
		t := *st.StartTime
		start = &t
	}
	if st.EndTime != nil {
		t := *st.EndTime
		end = &t
	}

	return &models.Room{
		ID:           st.ID,
		Name:         st.Name,
		Status:       st.Status,
		CreatedBy:    st.CreatedBy,
		ElmoCount:    st.ElmoCount,
		LastElmoAt:   st.LastElmoAt,
		Participants: participants,
		Agenda:       append([]models.AgendaItem(nil), st.Agenda...),
		Notes:        st.Notes,
		Summary: models.Summary{
			StartTime:      start,
			EndTime:        end,
			Duration:       st.Duration,
			Decisions:      append([]string(nil), st.Decisions...),
			ActionItems:    append([]string(nil), st.ActionItems...),
			ElmoTimestamps: append([]time.Time(nil), st.ElmoTimestamps...),
		},
		CreatedAt:  st.CreatedAt,
		ArchivedAt: st.ArchivedAt,
	}
}
