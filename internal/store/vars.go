package store

import (
	"context"
	"encoding/json"

	"github.com/talkweave/engine/pkg/api"
)

// SessionVars returns all session-scoped variables for a session
func (s *Store) SessionVars(
	ctx context.Context, id api.SessionID,
) (api.Vars, error) {
	return s.readVars(ctx, s.sessionVarsKey(id))
}

// SetSessionVar stores one session-scoped variable
func (s *Store) SetSessionVar(
	ctx context.Context, id api.SessionID, v *api.Variable,
) error {
	return s.writeVar(ctx, s.sessionVarsKey(id), v)
}

// BotVars returns all bot-scoped variables, which persist across sessions
// and conversations
func (s *Store) BotVars(
	ctx context.Context, id api.BotID,
) (api.Vars, error) {
	return s.readVars(ctx, s.botVarsKey(id))
}

// SetBotVar stores one bot-scoped variable
func (s *Store) SetBotVar(
	ctx context.Context, id api.BotID, v *api.Variable,
) error {
	return s.writeVar(ctx, s.botVarsKey(id), v)
}

func (s *Store) readVars(ctx context.Context, key string) (api.Vars, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	res := make(api.Vars, len(fields))
	for name, data := range fields {
		var v api.Variable
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		res[api.Name(name)] = &v
	}
	return res, nil
}

func (s *Store) writeVar(
	ctx context.Context, key string, v *api.Variable,
) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, key, string(v.Name), data).Err()
}
