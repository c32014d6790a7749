package call

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseTransitions(t *testing.T) {
	allowed := []struct {
		from, to Phase
	}{
		{PhaseIdle, PhaseOutgoing},
		{PhaseIdle, PhaseRinging},
		{PhaseOutgoing, PhaseActive},
		{PhaseOutgoing, PhaseEnding},
		{PhaseRinging, PhaseConnecting},
		{PhaseRinging, PhaseEnding},
		{PhaseConnecting, PhaseActive},
		{PhaseConnecting, PhaseEnding},
		{PhaseActive, PhaseEnding},
		{PhaseEnding, PhaseIdle},
	}
	for _, e := range allowed {
		assert.True(t, e.from.CanTransitionTo(e.to), "%s -> %s", e.from, e.to)
	}

	denied := []struct {
		from, to Phase
	}{
		{PhaseIdle, PhaseActive},
		{PhaseIdle, PhaseEnding},
		{PhaseOutgoing, PhaseRinging},
		{PhaseRinging, PhaseActive},
		{PhaseActive, PhaseOutgoing},
		{PhaseActive, PhaseIdle},
		{PhaseEnding, PhaseActive},
	}
	for _, e := range denied {
		assert.False(t, e.from.CanTransitionTo(e.to), "%s -> %s", e.from, e.to)
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Idle", PhaseIdle.String())
	assert.Equal(t, "OutgoingConnecting", PhaseOutgoing.String())
	assert.Equal(t, "IncomingRinging", PhaseRinging.String())
	assert.Equal(t, "Active", PhaseActive.String())
	assert.Equal(t, "Unknown(42)", Phase(42).String())
}

func TestSnapshotZeroValueIsIdle(t *testing.T) {
	var snap Snapshot
	assert.True(t, snap.Idle())
	assert.True(t, snap.StartedAt.IsZero())
}
