package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talkweave/engine/internal/store"
	"github.com/talkweave/engine/pkg/api"
	"github.com/talkweave/engine/pkg/log"
)

// HandleEvent is the engine's single entry point for inbound traffic. An
// event with no open session for its conversation identity starts a new
// session from the main graph's production version; otherwise it resumes
// the open session through the keyword interceptor
func (e *Engine) HandleEvent(
	ctx context.Context, botID api.BotID, ev *api.InboundEvent,
) ([]*api.OutboundResponse, error) {
	bot, err := e.store.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	sess, err := e.store.FindOpenSession(ctx, botID, ev.Conversation)
	if errors.Is(err, store.ErrSessionNotFound) {
		return e.startConversation(ctx, bot, ev, false)
	}
	if err != nil {
		return nil, err
	}
	return e.continueConversation(ctx, bot, sess, ev)
}

// StartTestSession begins a session against a specific graph version,
// bypassing production resolution. Test sessions are never archived
func (e *Engine) StartTestSession(
	ctx context.Context, botID api.BotID, version api.VersionID,
	conv api.ConversationID,
) ([]*api.OutboundResponse, *api.Session, error) {
	bot, err := e.store.GetBot(ctx, botID)
	if err != nil {
		return nil, nil, err
	}
	gv, err := e.store.GetGraphVersion(ctx, version)
	if err != nil {
		return nil, nil, err
	}
	r, err := e.beginSession(ctx, bot, gv, conv, true)
	if err != nil {
		return nil, nil, err
	}
	err = r.dispatch()
	return r.responses, r.session, err
}

func (e *Engine) startConversation(
	ctx context.Context, bot *api.BotConfig, ev *api.InboundEvent,
	isTest bool,
) ([]*api.OutboundResponse, error) {
	gv, err := e.store.GetProductionVersion(ctx, bot.MainGraph)
	if err != nil {
		return nil, err
	}
	r, err := e.beginSession(ctx, bot, gv, ev.Conversation, isTest)
	if err != nil {
		return nil, err
	}
	if text := strings.TrimSpace(ev.Text); text != "" {
		r.recordTranscript(api.RoleUser, text)
	}
	if err := r.dispatch(); err != nil {
		return r.responses, err
	}
	return r.responses, nil
}

func (e *Engine) beginSession(
	ctx context.Context, bot *api.BotConfig, gv *api.GraphVersion,
	conv api.ConversationID, isTest bool,
) (*run, error) {
	start, ok := gv.Start()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStartNotFound, gv.ID)
	}

	now := e.clock()
	sess := &api.Session{
		ID:           api.NewSessionID(),
		Bot:          bot.ID,
		Conversation: conv,
		Version:      gv.ID,
		CurrentNode:  start.ID,
		Status:       api.SessionActive,
		IsTest:       isTest,
		CreatedAt:    now,
		LastUpdated:  now,
	}
	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	slog.Info("Session started",
		log.SessionID(sess.ID), log.BotID(bot.ID), log.GraphID(gv.Graph))

	return e.newRun(ctx, bot, gv, sess, nil)
}

func (e *Engine) continueConversation(
	ctx context.Context, bot *api.BotConfig, sess *api.Session,
	ev *api.InboundEvent,
) ([]*api.OutboundResponse, error) {
	gv, err := e.store.GetGraphVersion(ctx, sess.Version)
	if err != nil {
		return nil, err
	}

	// Interceptor ordering: selections and free text captured by a paused
	// INPUT node bypass keyword handling entirely; remaining free text is
	// checked against the restart keywords; whatever is left either feeds
	// a paused choice node or draws the fallback without touching state
	text := strings.TrimSpace(ev.Text)
	if !ev.IsSelection() && !capturesText(gv, sess) &&
		isRestartKeyword(bot, text) {
		return e.restartConversation(ctx, bot, sess, ev)
	}
	if !deliverable(gv, sess, ev) {
		if ev.IsSelection() {
			return nil, nil
		}
		return []*api.OutboundResponse{
			api.Text(fallbackText(bot)),
		}, nil
	}

	r, err := e.newRun(ctx, bot, gv, sess, ev)
	if err != nil {
		return nil, err
	}
	if !ev.IsSelection() && text != "" {
		r.recordTranscript(api.RoleUser, text)
	}
	if err := r.dispatch(); err != nil {
		return r.responses, err
	}
	return r.responses, nil
}

func (e *Engine) restartConversation(
	ctx context.Context, bot *api.BotConfig, sess *api.Session,
	ev *api.InboundEvent,
) ([]*api.OutboundResponse, error) {
	closed := sess.
		SetStatus(api.SessionClosed).
		ClearResumeAt().
		ClearCallStack().
		SetLastUpdated(e.clock())
	closed, err := e.store.UpdateSession(ctx, closed)
	if err != nil {
		return nil, err
	}
	e.sched.CancelPrefix(ctx, sessionPath(closed))
	e.archiveSession(ctx, closed)
	slog.Info("Session restarted by keyword", log.SessionID(sess.ID))

	return e.startConversation(ctx, bot, ev, sess.IsTest)
}

// deliverable decides whether an event reaches dispatch or is answered
// with the bot fallback. Only a session paused at an input-capable node
// consumes events: choice nodes take selections and free text, input
// nodes take free text only. Everything else leaves session state alone
func deliverable(
	gv *api.GraphVersion, sess *api.Session, ev *api.InboundEvent,
) bool {
	if sess.Status != api.SessionPaused {
		return false
	}
	node, ok := gv.Node(sess.CurrentNode)
	if !ok {
		return false
	}
	switch node.Type {
	case api.NodeButton, api.NodeList:
		return true
	case api.NodeInput:
		return !ev.IsSelection()
	default:
		return false
	}
}

// capturesText reports whether the session is paused at an INPUT node,
// whose free-text capture takes precedence over restart keywords
func capturesText(gv *api.GraphVersion, sess *api.Session) bool {
	if sess.Status != api.SessionPaused {
		return false
	}
	node, ok := gv.Node(sess.CurrentNode)
	return ok && node.Type == api.NodeInput
}

func isRestartKeyword(bot *api.BotConfig, text string) bool {
	for _, kw := range bot.RestartKeywords {
		if strings.EqualFold(kw, text) {
			return true
		}
	}
	return false
}

func fallbackText(bot *api.BotConfig) string {
	if bot.Fallback != "" {
		return bot.Fallback
	}
	return api.DefaultFallback
}
