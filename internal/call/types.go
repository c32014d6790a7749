package call

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the media kind of a call, fixed at initiation.
type Type string

const (
	TypeAudio Type = "AUDIO"
	TypeVideo Type = "VIDEO"
)

// Phase is the lifecycle state of a call session.
type Phase int

const (
	// PhaseIdle means no session exists.
	PhaseIdle Phase = iota
	// PhaseOutgoing is a locally initiated call waiting for transport join.
	PhaseOutgoing
	// PhaseRinging is an inbound call awaiting accept/reject.
	PhaseRinging
	// PhaseConnecting is the accept-path equivalent of PhaseOutgoing.
	PhaseConnecting
	// PhaseActive is a fully established call.
	PhaseActive
	// PhaseEnding is the transient teardown step; it always collapses to
	// PhaseIdle and is never observable through Snapshot.
	PhaseEnding
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseOutgoing:
		return "OutgoingConnecting"
	case PhaseRinging:
		return "IncomingRinging"
	case PhaseConnecting:
		return "ConnectingFromAccept"
	case PhaseActive:
		return "Active"
	case PhaseEnding:
		return "Ending"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

var validTransitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseOutgoing, PhaseRinging},
	PhaseOutgoing:   {PhaseActive, PhaseEnding},
	PhaseRinging:    {PhaseConnecting, PhaseEnding},
	PhaseConnecting: {PhaseActive, PhaseEnding},
	PhaseActive:     {PhaseEnding},
	PhaseEnding:     {PhaseIdle},
}

// CanTransitionTo reports whether moving from p to next is a legal edge.
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range validTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsConnecting reports whether p is one of the pre-active connecting phases.
func (p Phase) IsConnecting() bool {
	return p == PhaseOutgoing || p == PhaseConnecting
}

// EndReason mirrors the call_end_reason values recorded in call history.
type EndReason string

const (
	ReasonCompleted EndReason = "COMPLETED"
	ReasonDeclined  EndReason = "DECLINED"
	ReasonCancelled EndReason = "CANCELLED"
	ReasonBusy      EndReason = "BUSY"
	ReasonTimeout   EndReason = "TIMEOUT"
	ReasonFailed    EndReason = "FAILED"
)

// Snapshot is a read-only view of one session at a point in time. The zero
// value denotes Idle. At most one of IsIncoming/IsConnecting/IsActive is
// true, and StartedAt is non-zero iff IsActive is true.
type Snapshot struct {
	IsIncoming      bool      `json:"is_incoming"`
	IsConnecting    bool      `json:"is_connecting"`
	IsActive        bool      `json:"is_active"`
	Type            Type      `json:"call_type,omitempty"`
	CallID          uuid.UUID `json:"call_id,omitempty"`
	ParticipantID   uuid.UUID `json:"participant_id,omitempty"`
	ParticipantName string    `json:"participant_name,omitempty"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	Muted           bool      `json:"muted"`
	VideoEnabled    bool      `json:"video_enabled"`
}

// Idle reports whether the snapshot denotes no live session.
func (s Snapshot) Idle() bool {
	return !s.IsIncoming && !s.IsConnecting && !s.IsActive
}

// Record is the call-history row the manager emits through a Recorder.
type Record struct {
	CallID    uuid.UUID
	CallerID  uuid.UUID
	CalleeID  uuid.UUID
	RoomID    string
	Type      Type
	StartedAt time.Time
}
