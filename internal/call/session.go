package call

import (
	"time"

	"github.com/google/uuid"
)

// session is the one live call a manager may own. It is created on initiate
// or inbound ring and destroyed on every terminal transition; nothing
// outside the manager ever holds a reference to it.
type session struct {
	phase    Phase
	callID   uuid.UUID
	roomID   string
	peerID   uuid.UUID
	peerName string
	callType Type
	incoming bool

	startedAt time.Time // set on transition into Active, zero otherwise

	muted        bool
	videoEnabled bool

	handle       Handle
	connectTimer *time.Timer
}

func newSession(callID uuid.UUID, roomID string, peerID uuid.UUID, peerName string, callType Type, incoming bool) *session {
	phase := PhaseOutgoing
	if incoming {
		phase = PhaseRinging
	}
	return &session{
		phase:        phase,
		callID:       callID,
		roomID:       roomID,
		peerID:       peerID,
		peerName:     peerName,
		callType:     callType,
		incoming:     incoming,
		videoEnabled: true,
	}
}

func (s *session) stopConnectTimer() {
	if s.connectTimer != nil {
		s.connectTimer.Stop()
		s.connectTimer = nil
	}
}

func (s *session) snapshot() Snapshot {
	return Snapshot{
		IsIncoming:      s.phase == PhaseRinging,
		IsConnecting:    s.phase.IsConnecting(),
		IsActive:        s.phase == PhaseActive,
		Type:            s.callType,
		CallID:          s.callID,
		ParticipantID:   s.peerID,
		ParticipantName: s.peerName,
		StartedAt:       s.startedAt,
		Muted:           s.muted,
		VideoEnabled:    s.videoEnabled,
	}
}
