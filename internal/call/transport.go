package call

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handle is an opaque reference to an established transport attachment.
// Only the session that obtained it may use or release it.
type Handle any

// JoinOptions selects which local media tracks are published on join.
type JoinOptions struct {
	Audio bool
	Video bool
}

// MediaTransport is the external media-establishment capability. Join blocks
// until local streams are up (or fails); the manager drives it from a
// goroutine and applies the result as a transition, so a slow Join never
// holds the session lock.
type MediaTransport interface {
	Join(ctx context.Context, roomID string, participantID uuid.UUID, participantName string, opts JoinOptions) (Handle, error)
	Leave(ctx context.Context, h Handle) error
	SetMute(ctx context.Context, h Handle, muted bool) error
	SetVideo(ctx context.Context, h Handle, enabled bool) error
}

// SignalKind identifies a call-control signal on the signaling channel.
type SignalKind string

const (
	SignalRing   SignalKind = "ring"
	SignalAccept SignalKind = "accept"
	SignalReject SignalKind = "reject"
	SignalHangup SignalKind = "hangup"
	SignalCancel SignalKind = "cancel"
	SignalBusy   SignalKind = "busy"
)

// Signal is one call-control message between two participants.
type Signal struct {
	Kind     SignalKind
	CallID   uuid.UUID
	RoomID   string
	From     uuid.UUID
	FromName string
	To       uuid.UUID
	CallType Type
	Reason   string
}

// Signaler publishes outbound signals to the peer side.
type Signaler interface {
	Send(ctx context.Context, sig Signal) error
}

// Recorder receives best-effort call lifecycle notifications. Errors are
// logged by the manager and never affect session state.
type Recorder interface {
	CallStarted(ctx context.Context, rec Record) error
	CallConnected(ctx context.Context, callID uuid.UUID, at time.Time) error
	CallEnded(ctx context.Context, callID uuid.UUID, reason EndReason, at time.Time) error
}

// MultiRecorder fans lifecycle notifications out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) CallStarted(ctx context.Context, rec Record) error {
	for _, r := range m {
		_ = r.CallStarted(ctx, rec)
	}
	return nil
}

func (m MultiRecorder) CallConnected(ctx context.Context, callID uuid.UUID, at time.Time) error {
	for _, r := range m {
		_ = r.CallConnected(ctx, callID, at)
	}
	return nil
}

func (m MultiRecorder) CallEnded(ctx context.Context, callID uuid.UUID, reason EndReason, at time.Time) error {
	for _, r := range m {
		_ = r.CallEnded(ctx, callID, reason, at)
	}
	return nil
}

// Metrics receives counters for the observability surface.
type Metrics interface {
	CallInitiated()
	CallConnected()
	CallEnded()
	CallFailed()
}

// Notifier pushes a fresh snapshot to the user's presentation layer after
// every completed transition.
type Notifier interface {
	Notify(userID uuid.UUID, snap Snapshot)
}

// ReadinessChecker gates initiate/accept on backing-service availability.
type ReadinessChecker interface {
	Ready() bool
}
