package httpdto

// InitiateCallRequest is used for POST /calls
type InitiateCallRequest struct {
	ParticipantID   string `json:"participant_id" binding:"required"`
	ParticipantName string `json:"participant_name"`
	Type            string `json:"type" binding:"required"` // "AUDIO" or "VIDEO"
}

// CallStateResponse is the wire form of a session snapshot.
type CallStateResponse struct {
	IsIncoming      bool   `json:"is_incoming"`
	IsConnecting    bool   `json:"is_connecting"`
	IsActive        bool   `json:"is_active"`
	CallID          string `json:"call_id,omitempty"`
	Type            string `json:"call_type,omitempty"`
	ParticipantID   string `json:"participant_id,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`
	StartedAt       string `json:"started_at,omitempty"`
	Duration        string `json:"duration"`
	Muted           bool   `json:"muted"`
	VideoEnabled    bool   `json:"video_enabled"`
}

// ToggleResponse reports the new value of a media-control flag.
type ToggleResponse struct {
	Enabled bool `json:"enabled"`
}

// ReadinessResponse is used for GET /readiness
type ReadinessResponse struct {
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
}
