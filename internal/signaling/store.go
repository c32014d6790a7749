package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ParticipantState tracks one participant's media flags inside a room.
type ParticipantState struct {
	Status       string `json:"status"` // JOINED, LEFT
	Muted        bool   `json:"muted"`
	VideoEnabled bool   `json:"video_enabled"`
}

// RoomState is the shared view of a call room kept in Redis.
type RoomState struct {
	RoomID       string                      `json:"room_id"`
	CallType     string                      `json:"call_type"`
	Participants map[string]ParticipantState `json:"participants"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// RoomStore keeps call-room membership in Redis with a TTL so abandoned
// rooms expire on their own.
type RoomStore struct {
	client *goredis.Client
}

const (
	roomKeyPrefix = "call:room:"
	roomTTL       = 5 * time.Minute
)

func NewRoomStore(client *goredis.Client) *RoomStore {
	return &RoomStore{client: client}
}

func (s *RoomStore) CreateRoom(ctx context.Context, state *RoomState) error {
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now()
	}
	return s.writeRoom(ctx, state)
}

func (s *RoomStore) GetRoom(ctx context.Context, roomID string) (*RoomState, error) {
	data, err := s.client.Get(ctx, roomKeyPrefix+roomID).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state RoomState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetParticipant upserts one participant's state, creating the room if it
// does not exist yet.
func (s *RoomStore) SetParticipant(ctx context.Context, roomID, userID string, p ParticipantState) error {
	state, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if state == nil {
		state = &RoomState{RoomID: roomID, CreatedAt: time.Now()}
	}
	if state.Participants == nil {
		state.Participants = make(map[string]ParticipantState)
	}
	state.Participants[userID] = p
	return s.writeRoom(ctx, state)
}

func (s *RoomStore) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	state, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	delete(state.Participants, userID)
	if len(state.Participants) == 0 {
		return s.DeleteRoom(ctx, roomID)
	}
	return s.writeRoom(ctx, state)
}

func (s *RoomStore) DeleteRoom(ctx context.Context, roomID string) error {
	return s.client.Del(ctx, roomKeyPrefix+roomID).Err()
}

func (s *RoomStore) writeRoom(ctx context.Context, state *RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal room state: %w", err)
	}
	return s.client.Set(ctx, roomKeyPrefix+state.RoomID, data, roomTTL).Err()
}
