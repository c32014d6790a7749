package call

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"zero", 0, "00:00"},
		{"sub-second floors", 900 * time.Millisecond, "00:00"},
		{"one second", time.Second, "00:01"},
		{"just under a minute", 59*time.Second + 999*time.Millisecond, "00:59"},
		{"one minute", time.Minute, "01:00"},
		{"mixed", 3*time.Minute + 7*time.Second, "03:07"},
		{"minutes beyond an hour", 75 * time.Minute, "75:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatDuration(base.Add(tc.elapsed), base))
		})
	}

	t.Run("zero start", func(t *testing.T) {
		assert.Equal(t, "00:00", FormatDuration(base, time.Time{}))
	})
	t.Run("clock skew clamps", func(t *testing.T) {
		assert.Equal(t, "00:00", FormatDuration(base.Add(-time.Second), base))
	})
}

func TestDurationClockTicks(t *testing.T) {
	clock := newDurationClock(time.Now().Add(-3*time.Minute), 5*time.Millisecond)
	defer clock.Stop()

	select {
	case v := <-clock.C:
		require.Regexp(t, `^03:0\d$`, v)
	case <-time.After(time.Second):
		t.Fatal("no tick received")
	}
}

func TestDurationClockStopIdempotent(t *testing.T) {
	clock := newDurationClock(time.Now(), 5*time.Millisecond)
	clock.Stop()
	clock.Stop() // must not panic

	// Let any in-flight tick land, drain it, then verify the clock is
	// genuinely silent.
	time.Sleep(15 * time.Millisecond)
	select {
	case <-clock.C:
	default:
	}
	select {
	case <-clock.C:
		t.Fatal("tick after Stop")
	case <-time.After(30 * time.Millisecond):
	}
}
