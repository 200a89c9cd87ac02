package api

// SubscribeRequest is the message a WebSocket client sends to scope the
// execution log stream. An empty session id streams every session
type SubscribeRequest struct {
	Type    string    `json:"type"`
	Session SessionID `json:"session_id,omitempty"`
}
