package websocket

import (
	"encoding/json"

	"nearhire/internal/call"

	"github.com/google/uuid"
)

// CallNotifier pushes session snapshots to the user's open connections
// after every completed transition. It is the call engine's Notifier.
type CallNotifier struct {
	hub *Hub
}

func NewCallNotifier(hub *Hub) *CallNotifier {
	return &CallNotifier{hub: hub}
}

type callEvent struct {
	Type string        `json:"type"`
	Data call.Snapshot `json:"data"`
}

func (n *CallNotifier) Notify(userID uuid.UUID, snap call.Snapshot) {
	payload, err := json.Marshal(callEvent{Type: "call.state", Data: snap})
	if err != nil {
		return
	}
	n.hub.PushToUser(userID.String(), payload)
}
