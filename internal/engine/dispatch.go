package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talkweave/engine/pkg/api"
	"github.com/talkweave/engine/pkg/log"
)

type (
	// run carries the state of one dispatch chain: the session being
	// advanced, its graph, the merged variable view and the pending
	// inbound event. The event is consumed by at most one node
	run struct {
		e         *Engine
		ctx       context.Context
		bot       *api.BotConfig
		graph     *api.GraphVersion
		session   *api.Session
		vars      api.Vars
		input     *api.InboundEvent
		resumed   bool
		responses []*api.OutboundResponse
	}

	// outcome is what a node executor reports back to the dispatch loop
	outcome struct {
		next     api.NodeID
		pause    bool
		terminal api.SessionStatus
	}
)

func (e *Engine) newRun(
	ctx context.Context, bot *api.BotConfig, gv *api.GraphVersion,
	sess *api.Session, ev *api.InboundEvent,
) (*run, error) {
	r := &run{
		e:       e,
		ctx:     ctx,
		bot:     bot,
		graph:   gv,
		session: sess,
		input:   ev,
	}
	if err := r.loadVars(); err != nil {
		return nil, err
	}
	return r, nil
}

// dispatch advances the session node by node until it pauses, terminates
// or hits the iteration cap. Session state is persisted after every node
func (r *run) dispatch() error {
	for i := 0; i < r.e.config.DispatchIterCap; i++ {
		node, ok := r.graph.Node(r.session.CurrentNode)
		if !ok {
			return r.fail(fmt.Errorf(
				"%w: %s", ErrNodeNotFound, r.session.CurrentNode,
			))
		}

		started := r.e.clock()
		out, err := r.execute(node)
		entry := &api.ExecutionLogEntry{
			Session:   r.session.ID,
			Node:      node.ID,
			NodeType:  node.Type,
			Duration:  r.e.clock().Sub(started).Milliseconds(),
			Timestamp: started,
		}
		if err != nil {
			entry.Error = err.Error()
			r.logEntry(entry)
			return r.fail(err)
		}
		if !out.pause {
			entry.Next = out.next
		}
		r.logEntry(entry)

		switch {
		case out.pause:
			r.session = r.session.SetStatus(api.SessionPaused)
			if err := r.persist(); err != nil {
				return err
			}
			if !r.session.ResumeAt.IsZero() {
				r.e.scheduleResume(r.session)
			}
			return nil

		case out.terminal != "":
			return r.terminate(out.terminal)

		case out.next == "":
			if err := r.returnFromFlow(); err != nil {
				return err
			}
			if r.session.Status.IsTerminal() {
				return nil
			}

		default:
			r.session = r.session.
				SetCurrentNode(out.next).
				SetStatus(api.SessionActive)
			if err := r.persist(); err != nil {
				return err
			}
		}
	}
	return r.fail(ErrIterationCap)
}

func (r *run) execute(node *api.Node) (*outcome, error) {
	switch node.Type {
	case api.NodeStart:
		return r.execStart(node)
	case api.NodeMessage:
		return r.execMessage(node)
	case api.NodeButton, api.NodeList:
		return r.execChoice(node)
	case api.NodeInput:
		return r.execInput(node)
	case api.NodeCondition:
		return r.execCondition(node)
	case api.NodeDelay:
		return r.execDelay(node)
	case api.NodeAPI:
		return r.execAPICall(node)
	case api.NodeAI:
		return r.execAI(node)
	case api.NodeLoop:
		return r.execLoop(node)
	case api.NodeEnd:
		return r.execEnd(node)
	case api.NodeSubflow:
		return r.execSubflow(node)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, node.Type)
	}
}

// returnFromFlow handles a node with no outgoing edge. A non-empty call
// stack pops back into the calling graph at the recorded return node; an
// empty stack is an implicit completion
func (r *run) returnFromFlow() error {
	sess, frame, ok := r.session.PopFrame()
	for ok && frame.ReturnNode == "" {
		sess, frame, ok = sess.PopFrame()
	}
	if !ok {
		r.session = sess
		return r.terminate(api.SessionCompleted)
	}

	gv, err := r.e.store.GetGraphVersion(r.ctx, frame.Version)
	if err != nil {
		return r.fail(err)
	}
	r.graph = gv
	r.session = sess.
		SetVersion(frame.Version).
		SetCurrentNode(frame.ReturnNode).
		SetStatus(api.SessionActive)
	slog.Debug("Returned from subflow",
		log.SessionID(r.session.ID), log.NodeID(frame.ReturnNode))
	return r.persist()
}

func (r *run) terminate(status api.SessionStatus) error {
	r.session = r.session.
		SetStatus(status).
		ClearCallStack().
		ClearResumeAt()
	if err := r.persist(); err != nil {
		return err
	}
	r.e.sched.CancelPrefix(r.ctx, sessionPath(r.session))
	r.e.archiveSession(r.ctx, r.session)
	slog.Info("Session terminated",
		log.SessionID(r.session.ID), log.Status(status))
	return nil
}

// fail marks the session FAILED with the causing error. The failure
// releases the conversation identity, so a later inbound event starts a
// fresh session
func (r *run) fail(cause error) error {
	slog.Error("Session failed",
		log.SessionID(r.session.ID),
		log.NodeID(r.session.CurrentNode),
		log.Error(cause))

	r.session = r.session.
		SetStatus(api.SessionFailed).
		SetError(cause.Error()).
		ClearCallStack().
		ClearResumeAt()
	if err := r.persist(); err != nil {
		slog.Error("Failed to persist session failure",
			log.SessionID(r.session.ID), log.Error(err))
		return cause
	}
	r.e.sched.CancelPrefix(r.ctx, sessionPath(r.session))
	r.e.archiveSession(r.ctx, r.session)
	return cause
}

func (r *run) persist() error {
	updated, err := r.e.store.UpdateSession(
		r.ctx, r.session.SetLastUpdated(r.e.clock()),
	)
	if err != nil {
		return err
	}
	r.session = updated
	return nil
}

func (r *run) logEntry(entry *api.ExecutionLogEntry) {
	if err := r.e.store.AppendLog(r.ctx, entry); err != nil {
		slog.Warn("Failed to append execution log",
			log.SessionID(entry.Session), log.Error(err))
	}
	r.e.publish(entry)
}

// takeInput consumes the pending inbound event. Each event is delivered
// to at most one node per dispatch chain
func (r *run) takeInput() *api.InboundEvent {
	ev := r.input
	r.input = nil
	return ev
}

func (r *run) send(resp *api.OutboundResponse) {
	r.responses = append(r.responses, resp)
	if resp.Content != "" {
		r.recordTranscript(api.RoleAssistant, resp.Content)
	}
}

func (r *run) recordTranscript(role, content string) {
	err := r.e.store.AppendTranscript(r.ctx, r.session.ID,
		&api.TranscriptEntry{Role: role, Content: content})
	if err != nil {
		slog.Warn("Failed to append transcript",
			log.SessionID(r.session.ID), log.Error(err))
	}
}

func (r *run) interpolate(text string) string {
	return Interpolate(text, r.vars)
}

// resolve renders a single {{...}} reference for expression evaluation
func (r *run) resolve(ref string) string {
	return resolveRef(ref, r.vars)
}

// firstNext resolves a single-exit node's successor: its first outgoing
// edge, falling back to the inline next reference
func (r *run) firstNext(node *api.Node) api.NodeID {
	if e, ok := r.graph.FirstEdge(node.ID); ok {
		return e.Target
	}
	return node.Config.Next
}

// handleNext resolves a branching node's successor for a specific handle
func (r *run) handleNext(node *api.Node, h api.Handle) api.NodeID {
	if e, ok := r.graph.EdgeFrom(node.ID, h); ok {
		return e.Target
	}
	return ""
}

func proceedTo(next api.NodeID) *outcome {
	return &outcome{next: next}
}

func pauseSession() *outcome {
	return &outcome{pause: true}
}

func endSession(status api.SessionStatus) *outcome {
	return &outcome{terminal: status}
}
