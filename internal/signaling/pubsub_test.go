package signaling

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearhire/internal/call"
)

func TestSignalCodecRoundTrip(t *testing.T) {
	in := call.Signal{
		Kind:     call.SignalRing,
		CallID:   uuid.New(),
		RoomID:   uuid.NewString(),
		From:     uuid.New(),
		FromName: "Alice",
		To:       uuid.New(),
		CallType: call.TypeVideo,
		Reason:   "",
	}

	data, err := encodeSignal(in)
	require.NoError(t, err)

	out, err := decodeSignal(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSignalWireShape(t *testing.T) {
	sig := call.Signal{
		Kind:   call.SignalReject,
		CallID: uuid.New(),
		From:   uuid.New(),
		To:     uuid.New(),
		Reason: "DECLINED",
	}
	data, err := encodeSignal(sig)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "reject", raw["kind"])
	assert.Equal(t, sig.CallID.String(), raw["call_id"])
	assert.Equal(t, "DECLINED", raw["reason"])
	assert.Contains(t, raw, "timestamp")
	assert.NotContains(t, raw, "room_id", "empty optional fields stay off the wire")
}

func TestDecodeSignalrejectsMalformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"not json", "{nope"},
		{"bad call id", `{"kind":"ring","call_id":"abc","from_id":"` + uuid.NewString() + `","to_id":"` + uuid.NewString() + `"}`},
		{"bad from id", `{"kind":"ring","call_id":"` + uuid.NewString() + `","from_id":"","to_id":"` + uuid.NewString() + `"}`},
		{"bad to id", `{"kind":"ring","call_id":"` + uuid.NewString() + `","from_id":"` + uuid.NewString() + `","to_id":"xyz"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeSignal([]byte(tc.input))
			require.Error(t, err)
		})
	}
}

func TestUserChannel(t *testing.T) {
	id := uuid.NewString()
	assert.Equal(t, "call:signal:"+id, userChannel(id))
}
