package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/talkweave/engine/internal/client"
	"github.com/talkweave/engine/internal/config"
	"github.com/talkweave/engine/internal/engine/scheduler"
	"github.com/talkweave/engine/pkg/api"
	"github.com/talkweave/engine/pkg/log"
)

type (
	// Store is the persistence surface the engine requires. The Redis
	// implementation lives in internal/store
	Store interface {
		CreateSession(context.Context, *api.Session) error
		GetSession(context.Context, api.SessionID) (*api.Session, error)
		FindOpenSession(
			context.Context, api.BotID, api.ConversationID,
		) (*api.Session, error)
		UpdateSession(context.Context, *api.Session) (*api.Session, error)
		DueSessions(context.Context, time.Time) ([]api.SessionID, error)

		SessionVars(context.Context, api.SessionID) (api.Vars, error)
		SetSessionVar(context.Context, api.SessionID, *api.Variable) error
		BotVars(context.Context, api.BotID) (api.Vars, error)
		SetBotVar(context.Context, api.BotID, *api.Variable) error

		GetGraphVersion(
			context.Context, api.VersionID,
		) (*api.GraphVersion, error)
		GetProductionVersion(
			context.Context, api.GraphID,
		) (*api.GraphVersion, error)
		GetBot(context.Context, api.BotID) (*api.BotConfig, error)

		AppendLog(context.Context, *api.ExecutionLogEntry) error
		GetLog(
			context.Context, api.SessionID,
		) ([]*api.ExecutionLogEntry, error)
		AppendTranscript(
			context.Context, api.SessionID, *api.TranscriptEntry,
		) error
		Transcript(
			context.Context, api.SessionID, int,
		) ([]*api.TranscriptEntry, error)
	}

	// Archiver receives terminated sessions for cold storage
	Archiver interface {
		Enqueue(*api.SessionArchive)
	}

	// Responder delivers outbound responses produced outside the inbound
	// request cycle, such as timer-driven delay resumption
	Responder func(api.BotID, api.ConversationID, []*api.OutboundResponse)

	// Dependencies collects the engine's collaborators
	Dependencies struct {
		Store     Store
		Caller    client.Caller
		Completer client.ChatCompleter
		Archiver  Archiver
		Clock     scheduler.Clock
		MakeTimer scheduler.TimerConstructor
		Responder Responder
	}

	// Engine is the conversational flow execution engine. One inbound
	// event drives one synchronous chain of node executions per session;
	// the engine itself relies on the transport to serialize events per
	// conversation identity
	Engine struct {
		store     Store
		caller    client.Caller
		completer client.ChatCompleter
		archiver  Archiver
		sched     *scheduler.Scheduler
		config    *config.Config
		clock     scheduler.Clock
		respond   Responder
		ctx       context.Context
		cancel    context.CancelFunc
		wg        sync.WaitGroup
		mu        sync.Mutex
		listeners map[chan *api.ExecutionLogEntry]struct{}
	}
)

var (
	ErrNodeNotFound    = errors.New("current node not found in graph")
	ErrStartNotFound   = errors.New("graph has no start node")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrIterationCap    = errors.New("dispatch iteration cap exceeded")
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
	ErrMissingSubflow  = errors.New("subflow has no production version")
	ErrMissingConfig   = errors.New("node config section missing")
)

// New creates an engine instance from its dependencies. Clock and timer
// default to the system implementations when unset
func New(cfg *config.Config, deps Dependencies) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	makeTimer := deps.MakeTimer
	if makeTimer == nil {
		makeTimer = scheduler.NewTimer
	}
	respond := deps.Responder
	if respond == nil {
		respond = func(
			bot api.BotID, conv api.ConversationID,
			responses []*api.OutboundResponse,
		) {
			slog.Warn("Dropped asynchronous responses",
				log.BotID(bot),
				slog.Int("count", len(responses)))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:     deps.Store,
		caller:    deps.Caller,
		completer: deps.Completer,
		archiver:  deps.Archiver,
		sched:     scheduler.New(clock, makeTimer),
		config:    cfg,
		clock:     clock,
		respond:   respond,
		ctx:       ctx,
		cancel:    cancel,
		listeners: map[chan *api.ExecutionLogEntry]struct{}{},
	}
}

// Start launches the delay scheduler and the reconciliation sweep. An
// immediate sweep pass resumes sessions whose timers were lost to a
// process restart
func (e *Engine) Start() {
	slog.Info("Engine starting")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.sched.Run(e.ctx)
	}()

	e.wg.Add(1)
	go e.sweepLoop()
}

// Stop gracefully shuts down the engine
func (e *Engine) Stop() error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.closeListeners()
		slog.Info("Engine stopped")
		return nil
	case <-time.After(e.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// GetSession exposes session lookup to the API server
func (e *Engine) GetSession(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	return e.store.GetSession(ctx, id)
}

// GetLog exposes the execution log to the API server
func (e *Engine) GetLog(
	ctx context.Context, id api.SessionID,
) ([]*api.ExecutionLogEntry, error) {
	return e.store.GetLog(ctx, id)
}

// Ping reports store connectivity for health checks
func (e *Engine) Ping(ctx context.Context) error {
	type pinger interface{ Ping(context.Context) error }
	if p, ok := e.store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Subscribe registers a listener for execution log entries. The returned
// cancel function must be called when the listener goes away
func (e *Engine) Subscribe() (<-chan *api.ExecutionLogEntry, func()) {
	ch := make(chan *api.ExecutionLogEntry, 64)

	e.mu.Lock()
	e.listeners[ch] = struct{}{}
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.listeners[ch]; ok {
			delete(e.listeners, ch)
			close(ch)
		}
	}
}

func (e *Engine) publish(entry *api.ExecutionLogEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.listeners {
		select {
		case ch <- entry:
		default:
		}
	}
}

func (e *Engine) closeListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.listeners {
		delete(e.listeners, ch)
		close(ch)
	}
}

func (e *Engine) archiveSession(
	ctx context.Context, sess *api.Session,
) {
	if e.archiver == nil || sess.IsTest {
		return
	}

	vars, err := e.store.SessionVars(ctx, sess.ID)
	if err != nil {
		slog.Warn("Failed to collect session variables for archive",
			log.SessionID(sess.ID), log.Error(err))
		return
	}
	entries, err := e.store.GetLog(ctx, sess.ID)
	if err != nil {
		slog.Warn("Failed to collect execution log for archive",
			log.SessionID(sess.ID), log.Error(err))
		return
	}
	transcript, err := e.store.Transcript(ctx, sess.ID, 0)
	if err != nil {
		slog.Warn("Failed to collect transcript for archive",
			log.SessionID(sess.ID), log.Error(err))
		return
	}

	e.archiver.Enqueue(&api.SessionArchive{
		Session:    sess,
		Vars:       vars,
		Log:        entries,
		Transcript: transcript,
		ArchivedAt: e.clock(),
	})
}

func sessionPath(sess *api.Session) []string {
	return []string{string(sess.Bot), string(sess.ID)}
}
