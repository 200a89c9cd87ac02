// Package talkweave identifies the Talkweave flow execution engine. The
// engine interprets declarative conversation graphs as long-lived, pausable
// sessions, one per end-user conversation.
package talkweave

const (
	// Name is the service name reported in logs and health output
	Name = "talkweave-engine"

	// Version is the engine release version
	Version = "0.9.0"
)
