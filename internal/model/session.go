package model

// SessionView is the transport-facing snapshot of a conversation session.
type SessionView struct {
	SessionID string            `json:"session_id"`
	Phase     string            `json:"phase"`
	Field     string            `json:"field,omitempty"`
	Language  string            `json:"language"`
	Turn      uint64            `json:"turn"`
	Confirmed bool              `json:"confirmed"`
	Record    map[string]string `json:"record,omitempty"`
	Ctime     int64             `json:"ctime"`
	Mtime     int64             `json:"mtime"`
}

// TurnReply is the answer to one user message.
type TurnReply struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	Phase     string `json:"phase"`
	Field     string `json:"field,omitempty"`
	Language  string `json:"language,omitempty"`
	Confirmed bool   `json:"confirmed"`
}
