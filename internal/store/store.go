package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/talkweave/engine/internal/config"
	"github.com/talkweave/engine/pkg/api"
)

type (
	// Store persists sessions, variables, graphs, bots, execution logs
	// and conversation transcripts in Redis. Session updates use WATCH
	// based compare-and-swap on the session's revision
	Store struct {
		client *redis.Client
		prefix string
	}
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("open session exists for identity")
	ErrConflict        = errors.New("session revision conflict")
	ErrGraphNotFound   = errors.New("graph version not found")
	ErrNoProduction    = errors.New("no production version for graph")
	ErrBotNotFound     = errors.New("bot not found")
)

// New creates a store backed by the configured Redis instance
func New(cfg config.RedisConfig) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{
		client: client,
		prefix: cfg.Prefix,
	}
}

// Ping verifies the Redis connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) sessionKey(id api.SessionID) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

func (s *Store) openKey(bot api.BotID, conv api.ConversationID) string {
	return fmt.Sprintf("%s:open:%s:%s", s.prefix, bot, conv)
}

func (s *Store) dueKey() string {
	return s.prefix + ":due"
}

func (s *Store) sessionVarsKey(id api.SessionID) string {
	return fmt.Sprintf("%s:vars:session:%s", s.prefix, id)
}

func (s *Store) botVarsKey(id api.BotID) string {
	return fmt.Sprintf("%s:vars:bot:%s", s.prefix, id)
}

func (s *Store) logKey(id api.SessionID) string {
	return fmt.Sprintf("%s:log:%s", s.prefix, id)
}

func (s *Store) transcriptKey(id api.SessionID) string {
	return fmt.Sprintf("%s:transcript:%s", s.prefix, id)
}

func (s *Store) graphKey(id api.VersionID) string {
	return fmt.Sprintf("%s:graph:%s", s.prefix, id)
}

func (s *Store) prodKey(id api.GraphID) string {
	return fmt.Sprintf("%s:prod:%s", s.prefix, id)
}

func (s *Store) botKey(id api.BotID) string {
	return fmt.Sprintf("%s:bot:%s", s.prefix, id)
}
