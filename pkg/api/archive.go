package api

import "time"

// SessionArchive is the cold-storage snapshot of a terminated session:
// its final state, variables, execution log and transcript
type SessionArchive struct {
	Session    *Session             `json:"session"`
	Vars       Vars                 `json:"variables,omitempty"`
	Log        []*ExecutionLogEntry `json:"execution_log,omitempty"`
	Transcript []*TranscriptEntry   `json:"transcript,omitempty"`
	ArchivedAt time.Time            `json:"archived_at"`
}
