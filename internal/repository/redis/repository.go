// Package redis provides a Redis/Valkey implementation of the store interface
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/navikt/elmo/internal/config"
	"github.com/navikt/elmo/internal/models"
	"github.com/redis/go-redis/v9"
)

// dedupAppend appends a value to a list unless it was appended before.
// KEYS[1] is the guard set, KEYS[2] the list. This is the set-union-append
// primitive: concurrent appends are safe, exact duplicates collapse.
var dedupAppend = redis.NewScript(`
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
  return 0
end
redis.call("SADD", KEYS[1], ARGV[1])
redis.call("RPUSH", KEYS[2], ARGV[1])
return 1
`)

// Store implements the store interface with Redis storage. A room is a hash
// plus satellite keys, so every mutation touches only the fields it names.
// Each mutation publishes a room event on the room's pub/sub channel.
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewStore creates a new Redis store
func NewStore(cfg config.RedisConfig) (*Store, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}

		if opt.DB == 0 {
			opt.DB = cfg.DB
		}
		if opt.Password == "" && cfg.Password != "" {
			opt.Password = cfg.Password
		}

		client = redis.NewClient(opt)
	} else {
		address := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

		client = redis.NewClient(&redis.Options{
			Addr:     address,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.RoomTTL,
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) indexKey() string {
	return s.keyPrefix + "rooms"
}

func (s *Store) roomKey(id string) string {
	return fmt.Sprintf("%srooms:%s", s.keyPrefix, id)
}

func (s *Store) participantsKey(id string) string {
	return s.roomKey(id) + ":participants"
}

func (s *Store) joinOrderKey(id string) string {
	return s.roomKey(id) + ":joinorder"
}

func (s *Store) decisionsKey(id string) string {
	return s.roomKey(id) + ":decisions"
}

func (s *Store) actionItemsKey(id string) string {
	return s.roomKey(id) + ":actionitems"
}

func (s *Store) elmoStampsKey(id string) string {
	return s.roomKey(id) + ":elmostamps"
}

func (s *Store) messagesKey(id string) string {
	return s.roomKey(id) + ":messages"
}

func (s *Store) eventsChannel(id string) string {
	return s.roomKey(id) + ":events"
}

// exists checks that the room hash is present
func (s *Store) exists(ctx context.Context, roomID string) error {
	n, err := s.client.Exists(ctx, s.roomKey(roomID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}
	if n == 0 {
		return models.ErrRoomNotFound
	}
	return nil
}

// publish notifies watchers of a room mutation
func (s *Store) publish(ctx context.Context, roomID string, deleted bool) {
	payload, err := json.Marshal(models.RoomEvent{RoomID: roomID, Deleted: deleted})
	if err != nil {
		return
	}
	// Notification is best effort; the snapshot itself is durable
	s.client.Publish(ctx, s.eventsChannel(roomID), payload)
}

// CreateRoom saves a new room
func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	agendaJSON, err := json.Marshal(room.Agenda)
	if err != nil {
		return fmt.Errorf("failed to marshal agenda: %w", err)
	}

	key := s.roomKey(room.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"name":      room.Name,
		"status":    string(room.Status),
		"createdBy": room.CreatedBy,
		"elmoCount": room.ElmoCount,
		"notes":     room.Notes,
		"agenda":    string(agendaJSON),
		"createdAt": room.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.SAdd(ctx, s.indexKey(), room.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	s.publish(ctx, room.ID, false)
	return nil
}

// GetRoom retrieves a full room snapshot by ID
func (s *Store) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	fields, err := s.client.HGetAll(ctx, s.roomKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if len(fields) == 0 {
		return nil, models.ErrRoomNotFound
	}

	room := &models.Room{
		ID:        id,
		Name:      fields["name"],
		Status:    models.RoomStatus(fields["status"]),
		CreatedBy: fields["createdBy"],
		Notes:     fields["notes"],
	}
	room.ElmoCount, _ = strconv.Atoi(fields["elmoCount"])
	room.CreatedAt = parseTime(fields["createdAt"])
	room.ArchivedAt = parseTime(fields["archivedAt"])
	room.LastElmoAt = parseTime(fields["lastElmoAt"])
	room.Summary.Duration, _ = strconv.Atoi(fields["duration"])
	if t := parseTime(fields["startTime"]); !t.IsZero() {
		room.Summary.StartTime = &t
	}
	if t := parseTime(fields["endTime"]); !t.IsZero() {
		room.Summary.EndTime = &t
	}

	room.Agenda = []models.AgendaItem{}
	if raw := fields["agenda"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &room.Agenda); err != nil {
			return nil, fmt.Errorf("failed to unmarshal agenda: %w", err)
		}
	}

	// Satellite keys: participants, summary logs
	pipe := s.client.Pipeline()
	namesCmd := pipe.HGetAll(ctx, s.participantsKey(id))
	orderCmd := pipe.LRange(ctx, s.joinOrderKey(id), 0, -1)
	decisionsCmd := pipe.LRange(ctx, s.decisionsKey(id), 0, -1)
	actionsCmd := pipe.LRange(ctx, s.actionItemsKey(id), 0, -1)
	stampsCmd := pipe.LRange(ctx, s.elmoStampsKey(id), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get room details: %w", err)
	}

	names := namesCmd.Val()
	room.Participants = make([]models.Participant, 0, len(names))
	for _, userID := range orderCmd.Val() {
		if name, ok := names[userID]; ok {
			room.Participants = append(room.Participants, models.Participant{ID: userID, Name: name})
		}
	}

	room.Summary.Decisions = decisionsCmd.Val()
	if room.Summary.Decisions == nil {
		room.Summary.Decisions = []string{}
	}
	room.Summary.ActionItems = actionsCmd.Val()
	if room.Summary.ActionItems == nil {
		room.Summary.ActionItems = []string{}
	}

	stamps := stampsCmd.Val()
	room.Summary.ElmoTimestamps = make([]time.Time, 0, len(stamps))
	for _, raw := range stamps {
		if t := parseTime(raw); !t.IsZero() {
			room.Summary.ElmoTimestamps = append(room.Summary.ElmoTimestamps, t)
		}
	}

	return room, nil
}

// ListRooms returns all rooms, active and archived
func (s *Store) ListRooms(ctx context.Context) ([]*models.Room, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]*models.Room, 0, len(ids))
	for _, id := range ids {
		room, err := s.GetRoom(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrRoomNotFound) {
				// Index entry outlived the room hash (TTL expiry); skip it
				continue
			}
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}

// ArchiveRoom marks a room as archived
func (s *Store) ArchiveRoom(ctx context.Context, id string, at time.Time) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}

	err := s.client.HSet(ctx, s.roomKey(id), map[string]interface{}{
		"status":     string(models.RoomStatusArchived),
		"archivedAt": at.UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to archive room: %w", err)
	}

	if s.ttl > 0 {
		s.expireRoomKeys(ctx, id)
	}

	s.publish(ctx, id, false)
	return nil
}

// expireRoomKeys applies the configured TTL to every key of an archived room
func (s *Store) expireRoomKeys(ctx context.Context, id string) {
	pipe := s.client.Pipeline()
	for _, key := range s.allRoomKeys(id) {
		pipe.Expire(ctx, key, s.ttl)
	}
	pipe.Exec(ctx)
}

func (s *Store) allRoomKeys(id string) []string {
	return []string{
		s.roomKey(id),
		s.participantsKey(id),
		s.joinOrderKey(id),
		s.decisionsKey(id),
		s.decisionsKey(id) + ":seen",
		s.actionItemsKey(id),
		s.actionItemsKey(id) + ":seen",
		s.elmoStampsKey(id),
		s.messagesKey(id),
	}
}

// DeleteRoom permanently removes the room document and its chat messages
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.allRoomKeys(id)...)
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	s.publish(ctx, id, true)
	return nil
}

// AddParticipant adds a participant to a room. HSET makes re-joining with
// the same user ID idempotent for set membership.
func (s *Store) AddParticipant(ctx context.Context, roomID, userID, userName string) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	added, err := s.client.HSet(ctx, s.participantsKey(roomID), userID, userName).Result()
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	if added > 0 {
		if err := s.client.RPush(ctx, s.joinOrderKey(roomID), userID).Err(); err != nil {
			return fmt.Errorf("failed to record join order: %w", err)
		}
	}

	s.publish(ctx, roomID, false)
	return nil
}

// RemoveParticipant removes a participant by user ID. HDEL is atomic, so
// interleaved leaves cannot resurrect a departed participant. Absent IDs
// are a no-op.
func (s *Store) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, s.participantsKey(roomID), userID)
	pipe.LRem(ctx, s.joinOrderKey(roomID), 0, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// IncrementElmo atomically bumps the counter, appends the timestamp to the
// summary log and records the last signal time, all in one transaction
func (s *Store) IncrementElmo(ctx context.Context, roomID string, at time.Time) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	stamp := at.UTC().Format(time.RFC3339Nano)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, s.roomKey(roomID), "elmoCount", 1)
	pipe.HSet(ctx, s.roomKey(roomID), "lastElmoAt", stamp)
	pipe.RPush(ctx, s.elmoStampsKey(roomID), stamp)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment elmo count: %w", err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// ResetElmoCount zeroes the counter; the timestamp log is left untouched
func (s *Store) ResetElmoCount(ctx context.Context, roomID string) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	if err := s.client.HSet(ctx, s.roomKey(roomID), "elmoCount", 0).Err(); err != nil {
		return fmt.Errorf("failed to reset elmo count: %w", err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// SetAgenda overwrites the agenda field wholesale; the last writer wins
func (s *Store) SetAgenda(ctx context.Context, roomID string, agenda []models.AgendaItem) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	agendaJSON, err := json.Marshal(agenda)
	if err != nil {
		return fmt.Errorf("failed to marshal agenda: %w", err)
	}

	if err := s.client.HSet(ctx, s.roomKey(roomID), "agenda", string(agendaJSON)).Err(); err != nil {
		return fmt.Errorf("failed to update agenda: %w", err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// SetNotes overwrites the shared notes field wholesale; the last writer wins
func (s *Store) SetNotes(ctx context.Context, roomID, notes string) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	if err := s.client.HSet(ctx, s.roomKey(roomID), "notes", notes).Err(); err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// AppendDecision appends to the decisions log, collapsing exact duplicates
func (s *Store) AppendDecision(ctx context.Context, roomID, text string) error {
	return s.appendUnique(ctx, roomID, s.decisionsKey(roomID), text)
}

// AppendActionItem appends to the action item log, collapsing exact duplicates
func (s *Store) AppendActionItem(ctx context.Context, roomID, text string) error {
	return s.appendUnique(ctx, roomID, s.actionItemsKey(roomID), text)
}

func (s *Store) appendUnique(ctx context.Context, roomID, listKey, text string) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	keys := []string{listKey + ":seen", listKey}
	if err := dedupAppend.Run(ctx, s.client, keys, text).Err(); err != nil {
		return fmt.Errorf("failed to append to %s: %w", listKey, err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// SetStartTime records the meeting start timestamp
func (s *Store) SetStartTime(ctx context.Context, roomID string, at time.Time) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	err := s.client.HSet(ctx, s.roomKey(roomID), "startTime", at.UTC().Format(time.RFC3339Nano)).Err()
	if err != nil {
		return fmt.Errorf("failed to set start time: %w", err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// SetEndTime records the meeting end timestamp and the resulting duration
func (s *Store) SetEndTime(ctx context.Context, roomID string, at time.Time, durationSecs int) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	err := s.client.HSet(ctx, s.roomKey(roomID), map[string]interface{}{
		"endTime":  at.UTC().Format(time.RFC3339Nano),
		"duration": durationSecs,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to set end time: %w", err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// AddMessage appends a chat message to the room's log
func (s *Store) AddMessage(ctx context.Context, roomID string, message *models.ChatMessage) error {
	if err := s.exists(ctx, roomID); err != nil {
		return err
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := s.client.RPush(ctx, s.messagesKey(roomID), data).Err(); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	s.publish(ctx, roomID, false)
	return nil
}

// ListMessages returns the room's messages ordered by timestamp, ties by ID
func (s *Store) ListMessages(ctx context.Context, roomID string) ([]*models.ChatMessage, error) {
	if err := s.exists(ctx, roomID); err != nil {
		return nil, err
	}

	raw, err := s.client.LRange(ctx, s.messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var message models.ChatMessage
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			continue
		}
		messages = append(messages, &message)
	}
	models.SortMessages(messages)

	return messages, nil
}

// WatchRoom subscribes to the room's pub/sub channel and relays one event
// per mutation. The subscription lives until the context is cancelled or
// the stop function is called.
func (s *Store) WatchRoom(ctx context.Context, roomID string) (<-chan models.RoomEvent, func(), error) {
	pubsub := s.client.Subscribe(ctx, s.eventsChannel(roomID))

	// Force the subscription to be established before returning, so a
	// mutation issued right after WatchRoom is never missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to room events: %w", err)
	}

	events := make(chan models.RoomEvent, 16)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			pubsub.Close()
		})
	}

	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event models.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				stop()
				return
			}
		}
	}()

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			stop()
		}()
	}

	return events, stop, nil
}

// parseTime parses an RFC3339Nano field value, returning the zero time for
// empty or malformed input
func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
