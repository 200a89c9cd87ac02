package helpers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/talkweave/engine/internal/config"
	"github.com/talkweave/engine/internal/engine"
	"github.com/talkweave/engine/internal/store"
	"github.com/talkweave/engine/pkg/api"
)

type (
	// TestEnv holds all the components needed for engine testing: an
	// in-memory Redis backend, scriptable external clients, a manual
	// clock, and a capture of asynchronously delivered responses
	TestEnv struct {
		Engine    *engine.Engine
		Store     *store.Store
		Redis     *miniredis.Miniredis
		Caller    *MockCaller
		Completer *MockCompleter
		Clock     *ManualClock
		Config    *config.Config
		Cleanup   func()

		mu        sync.Mutex
		delivered [][]*api.OutboundResponse
	}
)

const defaultStoreTimeout = 5 * time.Second

// NewTestEnv creates a fully configured test environment
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)

	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Store.Addr = server.Addr()
	cfg.Store.Prefix = "test"
	cfg.SweepInterval = 50 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second

	st := store.New(cfg.Store)
	caller := NewMockCaller()
	completer := NewMockCompleter()
	clock := NewManualClock(time.Now())

	env := &TestEnv{
		Store:     st,
		Redis:     server,
		Caller:    caller,
		Completer: completer,
		Clock:     clock,
		Config:    cfg,
	}
	env.Engine = engine.New(cfg, engine.Dependencies{
		Store:     st,
		Caller:    caller,
		Completer: completer,
		Clock:     clock.Now,
		Responder: env.captureResponses,
	})
	env.Engine.Start()
	env.Cleanup = func() {
		_ = env.Engine.Stop()
		_ = st.Close()
		server.Close()
	}
	return env
}

// WithTestEnv creates a test environment, executes the provided function
// with it, and ensures cleanup happens automatically
func WithTestEnv(t *testing.T, fn func(*TestEnv)) {
	t.Helper()
	env := NewTestEnv(t)
	defer env.Cleanup()
	fn(env)
}

// NewEngineInstance creates a second engine sharing the same store. Used
// to simulate a process restart after a crash
func (e *TestEnv) NewEngineInstance() *engine.Engine {
	return engine.New(e.Config, engine.Dependencies{
		Store:     e.Store,
		Caller:    e.Caller,
		Completer: e.Completer,
		Clock:     e.Clock.Now,
		Responder: e.captureResponses,
	})
}

// PutGraph stores a graph version, making it the production version when
// flagged as such
func (e *TestEnv) PutGraph(t *testing.T, gv *api.GraphVersion) {
	t.Helper()
	ctx, cancel := e.storeContext()
	defer cancel()
	assert.NoError(t, e.Store.PutGraphVersion(ctx, gv))
}

// PutBot stores a bot configuration
func (e *TestEnv) PutBot(t *testing.T, bot *api.BotConfig) {
	t.Helper()
	ctx, cancel := e.storeContext()
	defer cancel()
	assert.NoError(t, e.Store.PutBot(ctx, bot))
}

// Bot stores a minimal bot wired to the given main graph and returns it
func (e *TestEnv) Bot(
	t *testing.T, id api.BotID, main api.GraphID, keywords ...string,
) *api.BotConfig {
	t.Helper()
	bot := &api.BotConfig{
		ID:              id,
		MainGraph:       main,
		RestartKeywords: keywords,
	}
	e.PutBot(t, bot)
	return bot
}

// Send delivers a free-text event and returns the engine's responses
func (e *TestEnv) Send(
	bot api.BotID, conv api.ConversationID, text string,
) ([]*api.OutboundResponse, error) {
	ctx, cancel := e.storeContext()
	defer cancel()
	return e.Engine.HandleEvent(ctx, bot, &api.InboundEvent{
		Conversation: conv,
		Text:         text,
		Timestamp:    e.Clock.Now(),
	})
}

// Select delivers an option selection and returns the engine's responses
func (e *TestEnv) Select(
	bot api.BotID, conv api.ConversationID, option string,
) ([]*api.OutboundResponse, error) {
	ctx, cancel := e.storeContext()
	defer cancel()
	return e.Engine.HandleEvent(ctx, bot, &api.InboundEvent{
		Conversation:   conv,
		SelectedOption: option,
		Timestamp:      e.Clock.Now(),
	})
}

// OpenSession returns the open session for the given identity
func (e *TestEnv) OpenSession(
	t *testing.T, bot api.BotID, conv api.ConversationID,
) *api.Session {
	t.Helper()
	ctx, cancel := e.storeContext()
	defer cancel()
	sess, err := e.Store.FindOpenSession(ctx, bot, conv)
	assert.NoError(t, err)
	return sess
}

// Session returns a session by id regardless of status
func (e *TestEnv) Session(t *testing.T, id api.SessionID) *api.Session {
	t.Helper()
	ctx, cancel := e.storeContext()
	defer cancel()
	sess, err := e.Store.GetSession(ctx, id)
	assert.NoError(t, err)
	return sess
}

// SessionVars returns a session's variables
func (e *TestEnv) SessionVars(t *testing.T, id api.SessionID) api.Vars {
	t.Helper()
	ctx, cancel := e.storeContext()
	defer cancel()
	vars, err := e.Store.SessionVars(ctx, id)
	assert.NoError(t, err)
	return vars
}

// Delivered returns responses handed to the asynchronous responder, such
// as those produced by delay resumption
func (e *TestEnv) Delivered() [][]*api.OutboundResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	res := make([][]*api.OutboundResponse, len(e.delivered))
	copy(res, e.delivered)
	return res
}

func (e *TestEnv) captureResponses(
	_ api.BotID, _ api.ConversationID, responses []*api.OutboundResponse,
) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delivered = append(e.delivered, responses)
}

func (e *TestEnv) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultStoreTimeout)
}
