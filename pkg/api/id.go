package api

import "github.com/google/uuid"

type (
	// BotID identifies a bot deployment
	BotID string

	// SessionID identifies one running conversation session
	SessionID string

	// NodeID identifies a node within a single graph
	NodeID string

	// GraphID identifies a logical flow (main or subflow) across versions
	GraphID string

	// VersionID identifies one immutable version of a graph
	VersionID string

	// ConversationID identifies the end-user conversation on the transport
	// side (for example a phone number or channel-scoped user id)
	ConversationID string

	// Name identifies a variable in either scope
	Name string
)

// NewSessionID generates a unique session identifier
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}
