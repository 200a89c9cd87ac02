package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/talkweave/engine/pkg/api"
)

// PutGraphVersion stores an immutable graph version. Marking a version as
// production repoints the graph's production index at it; prior versions
// are left untouched
func (s *Store) PutGraphVersion(
	ctx context.Context, g *api.GraphVersion,
) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.graphKey(g.ID), data, 0)
		if g.Production {
			pipe.Set(ctx, s.prodKey(g.Graph), string(g.ID), 0)
		}
		return nil
	})
	return err
}

// GetGraphVersion retrieves one graph version by id
func (s *Store) GetGraphVersion(
	ctx context.Context, id api.VersionID,
) (*api.GraphVersion, error) {
	data, err := s.client.Get(ctx, s.graphKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
		}
		return nil, err
	}

	var g api.GraphVersion
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetProductionVersion resolves the production version of a graph. Drafts
// are unreachable through this path by construction
func (s *Store) GetProductionVersion(
	ctx context.Context, id api.GraphID,
) (*api.GraphVersion, error) {
	versionID, err := s.client.Get(ctx, s.prodKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNoProduction, id)
		}
		return nil, err
	}
	return s.GetGraphVersion(ctx, api.VersionID(versionID))
}

// PutBot stores a bot's runtime configuration
func (s *Store) PutBot(ctx context.Context, b *api.BotConfig) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.botKey(b.ID), data, 0).Err()
}

// GetBot retrieves a bot's runtime configuration
func (s *Store) GetBot(
	ctx context.Context, id api.BotID,
) (*api.BotConfig, error) {
	data, err := s.client.Get(ctx, s.botKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrBotNotFound, id)
		}
		return nil, err
	}

	var b api.BotConfig
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, err
	}
	return &b, nil
}
