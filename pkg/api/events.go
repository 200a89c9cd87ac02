package api

import "time"

type (
	// InboundEvent is what the transport collaborator delivers to the
	// engine: a user message, a selection, or (internally) a timer fire
	InboundEvent struct {
		Conversation   ConversationID `json:"conversation_identity"`
		Text           string         `json:"text,omitempty"`
		SelectedOption string         `json:"selected_option_id,omitempty"`
		Timestamp      time.Time      `json:"timestamp"`
	}

	// ResponseKind distinguishes plain text from option prompts
	ResponseKind string

	// ResponseOption is one selectable option in an outbound prompt
	ResponseOption struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}

	// OutboundResponse is one ordered element of the engine's reply
	OutboundResponse struct {
		Kind    ResponseKind      `json:"kind"`
		Content string            `json:"content"`
		Options []*ResponseOption `json:"options,omitempty"`
	}

	// ExecutionLogEntry is one append-only audit record per executed node
	ExecutionLogEntry struct {
		Session   SessionID `json:"session_id"`
		Node      NodeID    `json:"node_id"`
		NodeType  NodeType  `json:"node_type"`
		Duration  int64     `json:"duration_ms"`
		Next      NodeID    `json:"next_node_id,omitempty"`
		Error     string    `json:"error,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	// TranscriptEntry is one conversation turn kept for AI node history
	TranscriptEntry struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// ErrorResponse is the HTTP error payload returned by the API server
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// EventResult is the HTTP payload wrapping the engine's ordered reply
	EventResult struct {
		Responses []*OutboundResponse `json:"responses"`
	}

	// TestSessionRequest starts a session against a draft or pinned graph
	// version instead of the production one
	TestSessionRequest struct {
		Version      VersionID      `json:"graph_version_id"`
		Conversation ConversationID `json:"conversation_identity"`
	}

	// TestSessionResult reports the created test session and its first
	// batch of responses
	TestSessionResult struct {
		Session   *Session            `json:"session"`
		Responses []*OutboundResponse `json:"responses"`
	}
)

const (
	ResponseText    ResponseKind = "text"
	ResponseOptions ResponseKind = "options"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// IsSelection reports whether the event carries a button or list choice
func (ev *InboundEvent) IsSelection() bool {
	return ev.SelectedOption != ""
}

// Text constructs a plain text outbound response
func Text(content string) *OutboundResponse {
	return &OutboundResponse{Kind: ResponseText, Content: content}
}

// Prompt constructs an options outbound response
func Prompt(content string, options []*ResponseOption) *OutboundResponse {
	return &OutboundResponse{
		Kind:    ResponseOptions,
		Content: content,
		Options: options,
	}
}
