package store

import (
	"context"
	"encoding/json"

	"github.com/talkweave/engine/pkg/api"
)

// AppendLog appends one execution log entry. The log is append-only and
// never mutated
func (s *Store) AppendLog(
	ctx context.Context, entry *api.ExecutionLogEntry,
) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.logKey(entry.Session), data).Err()
}

// GetLog returns a session's execution log in order
func (s *Store) GetLog(
	ctx context.Context, id api.SessionID,
) ([]*api.ExecutionLogEntry, error) {
	items, err := s.client.LRange(ctx, s.logKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	res := make([]*api.ExecutionLogEntry, 0, len(items))
	for _, item := range items {
		var entry api.ExecutionLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, err
		}
		res = append(res, &entry)
	}
	return res, nil
}

// AppendTranscript appends one conversation turn for AI history
func (s *Store) AppendTranscript(
	ctx context.Context, id api.SessionID, entry *api.TranscriptEntry,
) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.transcriptKey(id), data).Err()
}

// Transcript returns up to limit most recent conversation turns in order
func (s *Store) Transcript(
	ctx context.Context, id api.SessionID, limit int,
) ([]*api.TranscriptEntry, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := s.client.LRange(ctx, s.transcriptKey(id), start, -1).Result()
	if err != nil {
		return nil, err
	}

	res := make([]*api.TranscriptEntry, 0, len(items))
	for _, item := range items {
		var entry api.TranscriptEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, err
		}
		res = append(res, &entry)
	}
	return res, nil
}
