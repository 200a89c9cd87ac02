package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/talkweave/engine/pkg/api"
)

// CreateSession persists a brand new session and claims the open-session
// slot for its conversation identity. At most one session per
// (bot, identity) may be open at a time
func (s *Store) CreateSession(ctx context.Context, sess *api.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(
		ctx, s.openKey(sess.Bot, sess.Conversation), string(sess.ID), 0,
	).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s",
			ErrSessionExists, sess.Bot, sess.Conversation)
	}

	return s.client.Set(ctx, s.sessionKey(sess.ID), data, 0).Err()
}

// GetSession retrieves a session by id
func (s *Store) GetSession(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}

	var sess api.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// FindOpenSession returns the ACTIVE or PAUSED session owning the given
// conversation identity, if any
func (s *Store) FindOpenSession(
	ctx context.Context, bot api.BotID, conv api.ConversationID,
) (*api.Session, error) {
	id, err := s.client.Get(ctx, s.openKey(bot, conv)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s/%s", ErrSessionNotFound, bot, conv)
		}
		return nil, err
	}
	return s.GetSession(ctx, api.SessionID(id))
}

// UpdateSession writes the session back if its stored revision still
// matches, bumping the revision and maintaining the open-session index
// and the due set for delayed resumption. A lost race returns ErrConflict
func (s *Store) UpdateSession(
	ctx context.Context, sess *api.Session,
) (*api.Session, error) {
	key := s.sessionKey(sess.ID)
	next := *sess
	next.Revision = sess.Revision + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", ErrSessionNotFound, sess.ID)
			}
			return err
		}

		var stored api.Session
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			return err
		}
		if stored.Revision != sess.Revision {
			return fmt.Errorf("%w: %s rev %d != %d",
				ErrConflict, sess.ID, stored.Revision, sess.Revision)
		}

		payload, err := json.Marshal(&next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)

			if next.Status.IsOpen() {
				pipe.Set(ctx,
					s.openKey(next.Bot, next.Conversation),
					string(next.ID), 0)
			} else {
				pipe.Del(ctx, s.openKey(next.Bot, next.Conversation))
			}

			if next.Status == api.SessionPaused && !next.ResumeAt.IsZero() {
				pipe.ZAdd(ctx, s.dueKey(), redis.Z{
					Score:  float64(next.ResumeAt.UnixMilli()),
					Member: string(next.ID),
				})
			} else {
				pipe.ZRem(ctx, s.dueKey(), string(next.ID))
			}
			return nil
		})
		return err
	}, key)

	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, sess.ID)
		}
		return nil, err
	}
	return &next, nil
}

// DueSessions returns the ids of paused sessions whose resume time has
// passed
func (s *Store) DueSessions(
	ctx context.Context, now time.Time,
) ([]api.SessionID, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.dueKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		return nil, err
	}

	res := make([]api.SessionID, len(ids))
	for i, id := range ids {
		res[i] = api.SessionID(id)
	}
	return res, nil
}

// DeleteSession removes a session and all of its associated state. Used
// after archival, by which point the open-session index entry has
// already been released by the terminal status update
func (s *Store) DeleteSession(
	ctx context.Context, id api.SessionID,
) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(id))
		pipe.Del(ctx, s.sessionVarsKey(id))
		pipe.Del(ctx, s.logKey(id))
		pipe.Del(ctx, s.transcriptKey(id))
		pipe.ZRem(ctx, s.dueKey(), string(id))
		return nil
	})
	return err
}
