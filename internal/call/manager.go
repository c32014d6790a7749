package call

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nearhire/pkg/logger"

	nearhire_errors "nearhire/pkg/errors"

	"github.com/google/uuid"
)

// Config tunes the per-session timers.
type Config struct {
	// ConnectTimeout bounds how long OutgoingConnecting (or its accept-path
	// equivalent) may wait for the transport join before the session is
	// torn down with ErrConnectTimeout semantics.
	ConnectTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{ConnectTimeout: 30 * time.Second}
}

// Deps are the external collaborators a manager coordinates. Recorder,
// Metrics and Notifier are optional.
type Deps struct {
	Gate      ReadinessChecker
	Transport MediaTransport
	Signaler  Signaler
	Recorder  Recorder
	Metrics   Metrics
	Notifier  Notifier
	Log       *logger.Logger
}

// Manager owns at most one live call session for one local participant and
// exposes the public call API. Transitions are serialized: opMu is held for
// the whole of a transition (state update plus side-effect dispatch), while
// stateMu guards the narrow windows in which shared state is written so
// Snapshot never observes a half-applied transition.
type Manager struct {
	cfg       Config
	gate      ReadinessChecker
	transport MediaTransport
	signaler  Signaler
	recorder  Recorder
	metrics   Metrics
	notifier  Notifier
	log       *logger.Logger

	localID   uuid.UUID
	localName string

	opMu    sync.Mutex
	stateMu sync.RWMutex
	sess    *session
	gen     uint64 // bumped per connect attempt; stale async events are dropped
}

func NewManager(localID uuid.UUID, localName string, deps Deps, cfg Config) *Manager {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		gate:      deps.Gate,
		transport: deps.Transport,
		signaler:  deps.Signaler,
		recorder:  deps.Recorder,
		metrics:   deps.Metrics,
		notifier:  deps.Notifier,
		log:       log,
		localID:   localID,
		localName: localName,
	}
}

// LocalID returns the local participant this manager is bound to.
func (m *Manager) LocalID() uuid.UUID {
	return m.localID
}

func (m *Manager) ensureName(name string) {
	if name == "" {
		return
	}
	m.opMu.Lock()
	if m.localName == "" {
		m.localName = name
	}
	m.opMu.Unlock()
}

// Snapshot returns a consistent view of the current session. It is
// side-effect free and safe from any goroutine; during a teardown it keeps
// reporting the previous phase until the teardown has fully completed.
func (m *Manager) Snapshot() Snapshot {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.sess == nil {
		return Snapshot{}
	}
	return m.sess.snapshot()
}

// Initiate starts an outgoing call. It fails with ErrNotReady while the
// readiness gate is not satisfied and with ErrAlreadyInCall while any
// session is live.
func (m *Manager) Initiate(ctx context.Context, peerID uuid.UUID, peerName string, callType Type) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.gate == nil || !m.gate.Ready() {
		return nearhire_errors.ErrNotReady
	}
	if m.sess != nil {
		return nearhire_errors.ErrAlreadyInCall
	}

	s := newSession(uuid.New(), uuid.NewString(), peerID, peerName, callType, false)
	m.setSession(s)

	ring := Signal{
		Kind:     SignalRing,
		CallID:   s.callID,
		RoomID:   s.roomID,
		From:     m.localID,
		FromName: m.localName,
		To:       peerID,
		CallType: callType,
	}
	if err := m.signaler.Send(ctx, ring); err != nil {
		m.clearSession()
		return fmt.Errorf("%w: publish ring: %v", nearhire_errors.ErrTransportFailure, err)
	}

	m.recordStarted(ctx, s)
	if m.metrics != nil {
		m.metrics.CallInitiated()
	}
	m.beginConnect(s)
	m.notify()
	m.log.WithCall(s.callID.String(), m.localID.String()).Infof("outgoing %s call to %s", callType, peerName)
	return nil
}

// Accept answers an inbound ring. Valid only in IncomingRinging and only
// once the readiness gate is satisfied.
func (m *Manager) Accept(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s := m.sess
	if s == nil || s.phase != PhaseRinging {
		return nearhire_errors.ErrInvalidState
	}
	if m.gate == nil || !m.gate.Ready() {
		return nearhire_errors.ErrNotReady
	}

	m.setPhase(s, PhaseConnecting)

	accept := Signal{
		Kind:     SignalAccept,
		CallID:   s.callID,
		RoomID:   s.roomID,
		From:     m.localID,
		FromName: m.localName,
		To:       s.peerID,
		CallType: s.callType,
	}
	if err := m.signaler.Send(ctx, accept); err != nil {
		m.teardownLocked(ctx, ReasonFailed, nil)
		return fmt.Errorf("%w: publish accept: %v", nearhire_errors.ErrTransportFailure, err)
	}

	m.beginConnect(s)
	m.notify()
	return nil
}

// Reject declines an inbound ring. Valid only in IncomingRinging.
func (m *Manager) Reject(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.sess == nil || m.sess.phase != PhaseRinging {
		return nearhire_errors.ErrInvalidState
	}
	kind := SignalReject
	m.teardownLocked(ctx, ReasonDeclined, &kind)
	return nil
}

// EndCall terminates the current session from any non-Idle state. It is
// idempotent: on an already-Idle manager it is a no-op, so callers never
// need to check state before hanging up.
func (m *Manager) EndCall(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s := m.sess
	if s == nil {
		return nil
	}
	var kind SignalKind
	var reason EndReason
	switch s.phase {
	case PhaseActive:
		kind, reason = SignalHangup, ReasonCompleted
	case PhaseRinging:
		kind, reason = SignalReject, ReasonDeclined
	default:
		kind, reason = SignalCancel, ReasonCancelled
	}
	m.teardownLocked(ctx, reason, &kind)
	return nil
}

// Cancel aborts a not-yet-active call. It shares EndCall's teardown path.
func (m *Manager) Cancel(ctx context.Context) error {
	return m.EndCall(ctx)
}

// ToggleMute flips the local mute flag and forwards it to the transport.
// Permitted only while Active.
func (m *Manager) ToggleMute(ctx context.Context) (bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s := m.sess
	if s == nil || s.phase != PhaseActive {
		return false, nearhire_errors.ErrInvalidState
	}
	next := !s.muted
	if err := m.transport.SetMute(ctx, s.handle, next); err != nil {
		return s.muted, fmt.Errorf("%w: set mute: %v", nearhire_errors.ErrTransportFailure, err)
	}
	m.stateMu.Lock()
	s.muted = next
	m.stateMu.Unlock()
	m.notify()
	return next, nil
}

// ToggleVideo flips the local video flag. Rejected on audio-only calls with
// no observable effect on transport or state.
func (m *Manager) ToggleVideo(ctx context.Context) (bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s := m.sess
	if s == nil || s.phase != PhaseActive {
		return false, nearhire_errors.ErrInvalidState
	}
	if s.callType != TypeVideo {
		return s.videoEnabled, nearhire_errors.ErrInvalidState
	}
	next := !s.videoEnabled
	if err := m.transport.SetVideo(ctx, s.handle, next); err != nil {
		return s.videoEnabled, fmt.Errorf("%w: set video: %v", nearhire_errors.ErrTransportFailure, err)
	}
	m.stateMu.Lock()
	s.videoEnabled = next
	m.stateMu.Unlock()
	m.notify()
	return next, nil
}

// Dispatch feeds one inbound signaling event into the session. Events are
// processed in arrival order; each is applied as a full transition before
// the next is admitted.
func (m *Manager) Dispatch(ctx context.Context, sig Signal) error {
	switch sig.Kind {
	case SignalRing:
		return m.handleRing(ctx, sig)
	case SignalAccept:
		// Active is driven solely by transport join completion; the peer's
		// accept is informational on the caller side.
		m.log.WithCall(sig.CallID.String(), m.localID.String()).Infof("peer accepted, awaiting transport")
		return nil
	case SignalReject:
		return m.handleRemoteEnd(ctx, sig, ReasonDeclined)
	case SignalBusy:
		return m.handleRemoteEnd(ctx, sig, ReasonBusy)
	case SignalCancel:
		return m.handleRemoteEnd(ctx, sig, ReasonCancelled)
	case SignalHangup:
		return m.handleRemoteEnd(ctx, sig, ReasonCompleted)
	default:
		m.log.Warnf("unknown signal kind %q dropped", sig.Kind)
		return nil
	}
}

// handleRing applies the busy policy: a live local session wins and the new
// caller is explicitly signaled busy rather than silently dropped.
func (m *Manager) handleRing(ctx context.Context, sig Signal) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.sess != nil {
		busy := Signal{
			Kind:     SignalBusy,
			CallID:   sig.CallID,
			From:     m.localID,
			FromName: m.localName,
			To:       sig.From,
			Reason:   string(ReasonBusy),
		}
		if err := m.signaler.Send(ctx, busy); err != nil {
			m.log.Errorf("busy signal to %s failed: %v", sig.From, err)
		}
		return nil
	}

	s := newSession(sig.CallID, sig.RoomID, sig.From, sig.FromName, sig.CallType, true)
	m.setSession(s)
	m.notify()
	m.log.WithCall(s.callID.String(), m.localID.String()).Infof("inbound %s call from %s", s.callType, s.peerName)
	return nil
}

func (m *Manager) handleRemoteEnd(ctx context.Context, sig Signal, reason EndReason) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s := m.sess
	if s == nil || s.callID != sig.CallID {
		return nil
	}
	m.teardownLocked(ctx, reason, nil)
	return nil
}

// beginConnect arms the connect timer and starts the transport join for the
// current connect generation. Caller holds opMu.
func (m *Manager) beginConnect(s *session) {
	m.gen++
	gen := m.gen
	s.connectTimer = time.AfterFunc(m.cfg.ConnectTimeout, func() {
		m.connectExpired(gen)
	})
	opts := JoinOptions{Audio: true, Video: s.callType == TypeVideo}
	go m.joinTransport(gen, s.roomID, m.localName, opts)
}

func (m *Manager) joinTransport(gen uint64, roomID, localName string, opts JoinOptions) {
	ctx := context.Background()
	h, err := m.transport.Join(ctx, roomID, m.localID, localName, opts)
	if err != nil {
		m.transportFailed(gen, err)
		return
	}
	m.transportJoined(gen, h)
}

func (m *Manager) transportJoined(gen uint64, h Handle) {
	m.opMu.Lock()
	s := m.sess
	if s == nil || m.gen != gen || !s.phase.IsConnecting() {
		m.opMu.Unlock()
		// The session moved on while the join was in flight; the
		// partially-established attachment must not leak.
		if err := m.transport.Leave(context.Background(), h); err != nil {
			m.log.Errorf("leave of stale transport handle failed: %v", err)
		}
		return
	}
	defer m.opMu.Unlock()

	s.stopConnectTimer()
	now := time.Now()
	m.stateMu.Lock()
	s.handle = h
	s.phase = PhaseActive
	s.startedAt = now
	m.stateMu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.CallConnected(context.Background(), s.callID, now); err != nil {
			m.log.Errorf("record call connected: %v", err)
		}
	}
	if m.metrics != nil {
		m.metrics.CallConnected()
	}
	m.notify()
	m.log.WithCall(s.callID.String(), m.localID.String()).Infof("call active")
}

func (m *Manager) transportFailed(gen uint64, cause error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s := m.sess
	if s == nil || m.gen != gen || !s.phase.IsConnecting() {
		return
	}
	m.log.WithCall(s.callID.String(), m.localID.String()).Errorf("transport join failed: %v", cause)
	kind := SignalCancel
	m.teardownLocked(context.Background(), ReasonFailed, &kind)
	if m.metrics != nil {
		m.metrics.CallFailed()
	}
}

func (m *Manager) connectExpired(gen uint64) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	s := m.sess
	if s == nil || m.gen != gen || !s.phase.IsConnecting() {
		return
	}
	m.log.WithCall(s.callID.String(), m.localID.String()).Warnf("connect timeout after %s", m.cfg.ConnectTimeout)
	kind := SignalCancel
	m.teardownLocked(context.Background(), ReasonTimeout, &kind)
	if m.metrics != nil {
		m.metrics.CallFailed()
	}
}

// teardownLocked is the single teardown path for every edge out of a live
// session. It unconditionally attempts transport release even when the
// transport was never fully established; release failures are logged and
// swallowed because the session is discarded regardless. Caller holds opMu.
func (m *Manager) teardownLocked(ctx context.Context, reason EndReason, outbound *SignalKind) {
	s := m.sess
	if s == nil {
		return
	}
	// The Ending step is this function: readers keep observing the previous
	// phase until the session is cleared, so a half-torn-down session is
	// never visible.
	s.stopConnectTimer()
	m.gen++ // invalidate in-flight joins and timers

	if s.handle != nil {
		if err := m.transport.Leave(ctx, s.handle); err != nil {
			m.log.Errorf("transport leave failed: %v", err)
		}
		s.handle = nil
	}

	if outbound != nil {
		sig := Signal{
			Kind:     *outbound,
			CallID:   s.callID,
			RoomID:   s.roomID,
			From:     m.localID,
			FromName: m.localName,
			To:       s.peerID,
			Reason:   string(reason),
		}
		if err := m.signaler.Send(ctx, sig); err != nil {
			m.log.Errorf("%s signal to %s failed: %v", *outbound, s.peerID, err)
		}
	}

	if m.recorder != nil {
		if err := m.recorder.CallEnded(ctx, s.callID, reason, time.Now()); err != nil {
			m.log.Errorf("record call ended: %v", err)
		}
	}
	if m.metrics != nil && !s.startedAt.IsZero() {
		m.metrics.CallEnded()
	}

	m.clearSession()
	m.notify()
	m.log.WithCall(s.callID.String(), m.localID.String()).Infof("call ended: %s", reason)
}

func (m *Manager) recordStarted(ctx context.Context, s *session) {
	if m.recorder == nil {
		return
	}
	rec := Record{
		CallID:    s.callID,
		CallerID:  m.localID,
		CalleeID:  s.peerID,
		RoomID:    s.roomID,
		Type:      s.callType,
		StartedAt: time.Now(),
	}
	if s.incoming {
		rec.CallerID, rec.CalleeID = s.peerID, m.localID
	}
	if err := m.recorder.CallStarted(ctx, rec); err != nil {
		m.log.Errorf("record call started: %v", err)
	}
}

func (m *Manager) setSession(s *session) {
	m.stateMu.Lock()
	m.sess = s
	m.stateMu.Unlock()
}

func (m *Manager) clearSession() {
	m.stateMu.Lock()
	m.sess = nil
	m.stateMu.Unlock()
}

func (m *Manager) setPhase(s *session, p Phase) {
	m.stateMu.Lock()
	s.phase = p
	m.stateMu.Unlock()
}

func (m *Manager) notify() {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(m.localID, m.Snapshot())
}
