package signaling

import (
	"context"
	"fmt"

	"nearhire/internal/call"
	"nearhire/pkg/logger"

	"github.com/google/uuid"
)

// RedisTransport is the reference MediaTransport: room membership lives in
// the RoomStore and the actual media path is assumed to be negotiated
// out-of-band by the clients once both sides appear in the room. A real SDK
// adapter replaces this wholesale; the session engine only sees the
// call.MediaTransport contract.
type RedisTransport struct {
	store *RoomStore
	log   *logger.Logger
}

type roomHandle struct {
	roomID string
	userID string
}

func NewRedisTransport(store *RoomStore, log *logger.Logger) *RedisTransport {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisTransport{store: store, log: log}
}

func (t *RedisTransport) Join(ctx context.Context, roomID string, participantID uuid.UUID, participantName string, opts call.JoinOptions) (call.Handle, error) {
	p := ParticipantState{Status: "JOINED", VideoEnabled: opts.Video}
	if err := t.store.SetParticipant(ctx, roomID, participantID.String(), p); err != nil {
		return nil, fmt.Errorf("join room %s: %w", roomID, err)
	}
	t.log.Infof("participant %s joined room %s", participantName, roomID)
	return &roomHandle{roomID: roomID, userID: participantID.String()}, nil
}

func (t *RedisTransport) Leave(ctx context.Context, h call.Handle) error {
	rh, err := asRoomHandle(h)
	if err != nil {
		return err
	}
	return t.store.RemoveParticipant(ctx, rh.roomID, rh.userID)
}

func (t *RedisTransport) SetMute(ctx context.Context, h call.Handle, muted bool) error {
	return t.updateFlags(ctx, h, func(p *ParticipantState) { p.Muted = muted })
}

func (t *RedisTransport) SetVideo(ctx context.Context, h call.Handle, enabled bool) error {
	return t.updateFlags(ctx, h, func(p *ParticipantState) { p.VideoEnabled = enabled })
}

func (t *RedisTransport) updateFlags(ctx context.Context, h call.Handle, apply func(*ParticipantState)) error {
	rh, err := asRoomHandle(h)
	if err != nil {
		return err
	}
	state, err := t.store.GetRoom(ctx, rh.roomID)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("room %s no longer exists", rh.roomID)
	}
	p := state.Participants[rh.userID]
	apply(&p)
	return t.store.SetParticipant(ctx, rh.roomID, rh.userID, p)
}

func asRoomHandle(h call.Handle) (*roomHandle, error) {
	rh, ok := h.(*roomHandle)
	if !ok || rh == nil {
		return nil, fmt.Errorf("foreign transport handle %T", h)
	}
	return rh, nil
}
