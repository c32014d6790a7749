package call

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nearhire_errors "nearhire/pkg/errors"
)

type fakeGate struct{ ready bool }

func (g *fakeGate) Ready() bool { return g.ready }

type fakeHandle struct{ roomID string }

type fakeTransport struct {
	mu      sync.Mutex
	block   chan struct{} // when set, Join waits on it
	joinErr error

	joins      []string
	leaves     []Handle
	muteCalls  []bool
	videoCalls []bool
}

func (t *fakeTransport) Join(ctx context.Context, roomID string, participantID uuid.UUID, participantName string, opts JoinOptions) (Handle, error) {
	t.mu.Lock()
	block := t.block
	err := t.joinErr
	t.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.joins = append(t.joins, roomID)
	t.mu.Unlock()
	return &fakeHandle{roomID: roomID}, nil
}

func (t *fakeTransport) Leave(ctx context.Context, h Handle) error {
	t.mu.Lock()
	t.leaves = append(t.leaves, h)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) SetMute(ctx context.Context, h Handle, muted bool) error {
	t.mu.Lock()
	t.muteCalls = append(t.muteCalls, muted)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) SetVideo(ctx context.Context, h Handle, enabled bool) error {
	t.mu.Lock()
	t.videoCalls = append(t.videoCalls, enabled)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) leaveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.leaves)
}

type fakeSignaler struct {
	mu   sync.Mutex
	sent []Signal
}

func (s *fakeSignaler) Send(ctx context.Context, sig Signal) error {
	s.mu.Lock()
	s.sent = append(s.sent, sig)
	s.mu.Unlock()
	return nil
}

func (s *fakeSignaler) byKind(kind SignalKind) []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Signal
	for _, sig := range s.sent {
		if sig.Kind == kind {
			out = append(out, sig)
		}
	}
	return out
}

type testRig struct {
	m         *Manager
	gate      *fakeGate
	transport *fakeTransport
	signaler  *fakeSignaler
	localID   uuid.UUID
}

func newTestRig(t *testing.T, connectTimeout time.Duration) *testRig {
	t.Helper()
	rig := &testRig{
		gate:      &fakeGate{ready: true},
		transport: &fakeTransport{},
		signaler:  &fakeSignaler{},
		localID:   uuid.New(),
	}
	rig.m = NewManager(rig.localID, "Alice", Deps{
		Gate:      rig.gate,
		Transport: rig.transport,
		Signaler:  rig.signaler,
	}, Config{ConnectTimeout: connectTimeout})
	return rig
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestInitiateNotReady(t *testing.T) {
	rig := newTestRig(t, time.Second)
	rig.gate.ready = false

	err := rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeVideo)
	require.ErrorIs(t, err, nearhire_errors.ErrNotReady)
	assert.True(t, rig.m.Snapshot().Idle())
}

func TestInitiateToActive(t *testing.T) {
	rig := newTestRig(t, time.Second)
	release := make(chan struct{})
	rig.transport.block = release
	peer := uuid.New()

	require.NoError(t, rig.m.Initiate(context.Background(), peer, "Bob", TypeVideo))

	snap := rig.m.Snapshot()
	assert.True(t, snap.IsConnecting)
	assert.False(t, snap.IsActive)
	assert.Equal(t, "Bob", snap.ParticipantName)
	assert.Equal(t, peer, snap.ParticipantID)
	assert.Equal(t, TypeVideo, snap.Type)
	assert.True(t, snap.StartedAt.IsZero())

	rings := rig.signaler.byKind(SignalRing)
	require.Len(t, rings, 1)
	assert.Equal(t, peer, rings[0].To)
	assert.Equal(t, rig.localID, rings[0].From)

	close(release)
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "call should become active")
	snap = rig.m.Snapshot()
	assert.False(t, snap.StartedAt.IsZero())
	assert.True(t, snap.VideoEnabled)
	assert.False(t, snap.Muted)
}

func TestStartTimeIffActive(t *testing.T) {
	rig := newTestRig(t, time.Second)

	check := func() {
		snap := rig.m.Snapshot()
		if snap.IsActive {
			assert.False(t, snap.StartedAt.IsZero(), "active snapshot must carry a start time")
		} else {
			assert.True(t, snap.StartedAt.IsZero(), "non-active snapshot must not carry a start time")
		}
	}

	check()
	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	check()
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active")
	check()
	require.NoError(t, rig.m.EndCall(context.Background()))
	check()
}

func TestAlreadyInCall(t *testing.T) {
	rig := newTestRig(t, time.Second)

	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	err := rig.m.Initiate(context.Background(), uuid.New(), "Carol", TypeAudio)
	require.ErrorIs(t, err, nearhire_errors.ErrAlreadyInCall)

	// Still busy once active as well.
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active")
	err = rig.m.Initiate(context.Background(), uuid.New(), "Carol", TypeAudio)
	require.ErrorIs(t, err, nearhire_errors.ErrAlreadyInCall)
}

func TestEndCallIdempotent(t *testing.T) {
	rig := newTestRig(t, time.Second)

	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active")

	require.NoError(t, rig.m.EndCall(context.Background()))
	assert.True(t, rig.m.Snapshot().Idle())
	require.NoError(t, rig.m.EndCall(context.Background()))
	assert.True(t, rig.m.Snapshot().Idle())

	assert.Equal(t, 1, rig.transport.leaveCount(), "teardown must not run twice")
	assert.Len(t, rig.signaler.byKind(SignalHangup), 1)
}

func TestInboundRingAndAccept(t *testing.T) {
	rig := newTestRig(t, time.Second)
	release := make(chan struct{})
	rig.transport.block = release
	caller := uuid.New()
	ring := Signal{
		Kind:     SignalRing,
		CallID:   uuid.New(),
		RoomID:   uuid.NewString(),
		From:     caller,
		FromName: "Bob",
		To:       rig.localID,
		CallType: TypeVideo,
	}

	require.NoError(t, rig.m.Dispatch(context.Background(), ring))
	snap := rig.m.Snapshot()
	assert.True(t, snap.IsIncoming)
	assert.Equal(t, caller, snap.ParticipantID)
	assert.Equal(t, "Bob", snap.ParticipantName)

	require.NoError(t, rig.m.Accept(context.Background()))
	assert.True(t, rig.m.Snapshot().IsConnecting)
	require.Len(t, rig.signaler.byKind(SignalAccept), 1)

	close(release)
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active after accept")
}

func TestInboundRingWhileBusy(t *testing.T) {
	rig := newTestRig(t, time.Second)
	firstPeer := uuid.New()
	require.NoError(t, rig.m.Initiate(context.Background(), firstPeer, "Bob", TypeAudio))
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active")

	secondCaller := uuid.New()
	ring := Signal{
		Kind:     SignalRing,
		CallID:   uuid.New(),
		RoomID:   uuid.NewString(),
		From:     secondCaller,
		FromName: "Carol",
		To:       rig.localID,
		CallType: TypeAudio,
	}
	require.NoError(t, rig.m.Dispatch(context.Background(), ring))

	busy := rig.signaler.byKind(SignalBusy)
	require.Len(t, busy, 1, "new caller must be explicitly signaled busy")
	assert.Equal(t, secondCaller, busy[0].To)
	assert.Equal(t, ring.CallID, busy[0].CallID)

	snap := rig.m.Snapshot()
	assert.True(t, snap.IsActive, "local session must be unchanged")
	assert.Equal(t, firstPeer, snap.ParticipantID)
}

func TestRejectInboundRing(t *testing.T) {
	rig := newTestRig(t, time.Second)
	ring := Signal{
		Kind: SignalRing, CallID: uuid.New(), RoomID: uuid.NewString(),
		From: uuid.New(), FromName: "Bob", To: rig.localID, CallType: TypeAudio,
	}
	require.NoError(t, rig.m.Dispatch(context.Background(), ring))
	require.NoError(t, rig.m.Reject(context.Background()))

	assert.True(t, rig.m.Snapshot().Idle())
	rejects := rig.signaler.byKind(SignalReject)
	require.Len(t, rejects, 1)
	assert.Equal(t, string(ReasonDeclined), rejects[0].Reason)
}

func TestAcceptRejectInvalidState(t *testing.T) {
	rig := newTestRig(t, time.Second)

	require.ErrorIs(t, rig.m.Accept(context.Background()), nearhire_errors.ErrInvalidState)
	require.ErrorIs(t, rig.m.Reject(context.Background()), nearhire_errors.ErrInvalidState)

	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active")
	require.ErrorIs(t, rig.m.Accept(context.Background()), nearhire_errors.ErrInvalidState)
	require.ErrorIs(t, rig.m.Reject(context.Background()), nearhire_errors.ErrInvalidState)
}

func TestConnectTimeout(t *testing.T) {
	rig := newTestRig(t, 30*time.Millisecond)
	release := make(chan struct{})
	rig.transport.block = release

	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	waitFor(t, func() bool { return rig.m.Snapshot().Idle() }, "timed-out call must return to idle")

	// The late join must not resurrect the session, and its handle must be
	// released rather than leaked.
	close(release)
	waitFor(t, func() bool { return rig.transport.leaveCount() == 1 }, "stale handle released")
	assert.True(t, rig.m.Snapshot().Idle())

	cancels := rig.signaler.byKind(SignalCancel)
	require.Len(t, cancels, 1)
	assert.Equal(t, string(ReasonTimeout), cancels[0].Reason)
}

func TestRemoteHangup(t *testing.T) {
	rig := newTestRig(t, time.Second)
	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active")
	callID := rig.m.Snapshot().CallID

	// A hangup for some other call is ignored.
	require.NoError(t, rig.m.Dispatch(context.Background(), Signal{Kind: SignalHangup, CallID: uuid.New(), To: rig.localID}))
	assert.True(t, rig.m.Snapshot().IsActive)

	require.NoError(t, rig.m.Dispatch(context.Background(), Signal{Kind: SignalHangup, CallID: callID, To: rig.localID}))
	assert.True(t, rig.m.Snapshot().Idle())
	assert.Equal(t, 1, rig.transport.leaveCount())
}

func TestRemoteBusyEndsOutgoing(t *testing.T) {
	rig := newTestRig(t, time.Second)
	release := make(chan struct{})
	rig.transport.block = release
	defer close(release)

	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	callID := rig.m.Snapshot().CallID

	require.NoError(t, rig.m.Dispatch(context.Background(), Signal{Kind: SignalBusy, CallID: callID, To: rig.localID}))
	assert.True(t, rig.m.Snapshot().Idle())
}

func TestToggleMute(t *testing.T) {
	rig := newTestRig(t, time.Second)

	_, err := rig.m.ToggleMute(context.Background())
	require.ErrorIs(t, err, nearhire_errors.ErrInvalidState)

	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active")

	muted, err := rig.m.ToggleMute(context.Background())
	require.NoError(t, err)
	assert.True(t, muted)
	assert.True(t, rig.m.Snapshot().Muted)

	muted, err = rig.m.ToggleMute(context.Background())
	require.NoError(t, err)
	assert.False(t, muted)
	assert.Equal(t, []bool{true, false}, rig.transport.muteCalls)
}

func TestToggleVideoOnAudioCall(t *testing.T) {
	rig := newTestRig(t, time.Second)
	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeAudio))
	waitFor(t, func() bool { return rig.m.Snapshot().IsActive }, "active")

	before := rig.m.Snapshot()
	_, err := rig.m.ToggleVideo(context.Background())
	require.ErrorIs(t, err, nearhire_errors.ErrInvalidState)
	assert.Empty(t, rig.transport.videoCalls, "no transport effect on audio calls")
	assert.Equal(t, before, rig.m.Snapshot())
}

func TestCancelDuringConnecting(t *testing.T) {
	rig := newTestRig(t, time.Second)
	release := make(chan struct{})
	rig.transport.block = release

	require.NoError(t, rig.m.Initiate(context.Background(), uuid.New(), "Bob", TypeVideo))
	require.True(t, rig.m.Snapshot().IsConnecting)

	require.NoError(t, rig.m.Cancel(context.Background()))
	assert.True(t, rig.m.Snapshot().Idle())
	cancels := rig.signaler.byKind(SignalCancel)
	require.Len(t, cancels, 1)
	assert.Equal(t, string(ReasonCancelled), cancels[0].Reason)

	close(release)
	waitFor(t, func() bool { return rig.transport.leaveCount() == 1 }, "stale handle released")
	assert.True(t, rig.m.Snapshot().Idle())
}
