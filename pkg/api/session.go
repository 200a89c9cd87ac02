package api

import "time"

type (
	// SessionStatus represents the lifecycle state of a session
	SessionStatus string

	// Frame is one call-stack entry recording where a subflow jump came
	// from and where dispatch resumes after the subflow returns
	Frame struct {
		Version    VersionID `json:"graph_version_id"`
		ReturnNode NodeID    `json:"return_node_id"`
	}

	// Session is one running, persisted instance of a graph scoped to a
	// single conversation identity. Revision implements optimistic
	// concurrency: every update compares and increments it
	Session struct {
		ID           SessionID      `json:"id"`
		Bot          BotID          `json:"bot_id"`
		Conversation ConversationID `json:"conversation_identity"`
		Version      VersionID      `json:"graph_version_id"`
		CurrentNode  NodeID         `json:"current_node_id"`
		Status       SessionStatus  `json:"status"`
		CallStack    []Frame        `json:"call_stack,omitempty"`
		ResumeAt     time.Time      `json:"resume_at,omitempty"`
		IsTest       bool           `json:"is_test,omitempty"`
		Revision     int64          `json:"revision"`
		Error        string         `json:"error,omitempty"`
		CreatedAt    time.Time      `json:"created_at"`
		LastUpdated  time.Time      `json:"last_updated"`
	}
)

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionClosed    SessionStatus = "closed"
	SessionFailed    SessionStatus = "failed"
)

// IsTerminal reports whether the session has finished executing
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionClosed || s == SessionFailed
}

// IsOpen reports whether the session still owns its conversation identity
func (s SessionStatus) IsOpen() bool {
	return s == SessionActive || s == SessionPaused
}

// SetStatus returns a new Session with the updated status
func (s *Session) SetStatus(status SessionStatus) *Session {
	res := *s
	res.Status = status
	return &res
}

// SetCurrentNode returns a new Session positioned at the given node
func (s *Session) SetCurrentNode(id NodeID) *Session {
	res := *s
	res.CurrentNode = id
	return &res
}

// SetVersion returns a new Session bound to the given graph version
func (s *Session) SetVersion(id VersionID) *Session {
	res := *s
	res.Version = id
	return &res
}

// SetResumeAt returns a new Session with the delay resumption time set
func (s *Session) SetResumeAt(t time.Time) *Session {
	res := *s
	res.ResumeAt = t
	return &res
}

// ClearResumeAt returns a new Session with no pending resumption time
func (s *Session) ClearResumeAt() *Session {
	res := *s
	res.ResumeAt = time.Time{}
	return &res
}

// SetError returns a new Session with the failure message set
func (s *Session) SetError(msg string) *Session {
	res := *s
	res.Error = msg
	return &res
}

// SetLastUpdated returns a new Session with the last updated time set
func (s *Session) SetLastUpdated(t time.Time) *Session {
	res := *s
	res.LastUpdated = t
	return &res
}

// PushFrame returns a new Session with a call-stack frame appended
func (s *Session) PushFrame(f Frame) *Session {
	res := *s
	res.CallStack = make([]Frame, len(s.CallStack)+1)
	copy(res.CallStack, s.CallStack)
	res.CallStack[len(s.CallStack)] = f
	return &res
}

// PopFrame returns a new Session with the top frame removed, along with
// the frame itself. Popping an empty stack reports false
func (s *Session) PopFrame() (*Session, Frame, bool) {
	if len(s.CallStack) == 0 {
		return s, Frame{}, false
	}
	res := *s
	top := s.CallStack[len(s.CallStack)-1]
	res.CallStack = make([]Frame, len(s.CallStack)-1)
	copy(res.CallStack, s.CallStack[:len(s.CallStack)-1])
	return &res, top, true
}

// ClearCallStack returns a new Session with an empty call stack
func (s *Session) ClearCallStack() *Session {
	res := *s
	res.CallStack = nil
	return &res
}

// Depth returns the current call-stack depth
func (s *Session) Depth() int {
	return len(s.CallStack)
}
