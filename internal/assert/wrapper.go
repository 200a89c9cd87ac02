package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talkweave/engine/pkg/api"
)

// Wrapper wraps testify assertions with Talkweave-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require
// from testify plus Talkweave-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// SessionStatus asserts the status of a session
func (w *Wrapper) SessionStatus(
	sess *api.Session, expected api.SessionStatus,
) {
	w.Helper()
	w.NotNil(sess)
	if sess != nil {
		w.Equal(expected, sess.Status)
	}
}

// SessionAt asserts that a session is positioned at the given node
func (w *Wrapper) SessionAt(sess *api.Session, node api.NodeID) {
	w.Helper()
	w.NotNil(sess)
	if sess != nil {
		w.Equal(node, sess.CurrentNode)
	}
}

// ResponseText asserts that the response at index idx is plain text with
// the expected content
func (w *Wrapper) ResponseText(
	responses []*api.OutboundResponse, idx int, expected string,
) {
	w.Helper()
	w.Require.Greater(len(responses), idx)
	w.Equal(api.ResponseText, responses[idx].Kind)
	w.Equal(expected, responses[idx].Content)
}

// ResponseOptions asserts that the response at index idx is an options
// prompt carrying the expected option ids in order
func (w *Wrapper) ResponseOptions(
	responses []*api.OutboundResponse, idx int, ids ...string,
) {
	w.Helper()
	w.Require.Greater(len(responses), idx)
	w.Equal(api.ResponseOptions, responses[idx].Kind)
	got := make([]string, 0, len(responses[idx].Options))
	for _, opt := range responses[idx].Options {
		got = append(got, opt.ID)
	}
	w.Equal(ids, got)
}

// VarEquals asserts that a variable exists with the expected value
func (w *Wrapper) VarEquals(vars api.Vars, name api.Name, expected any) {
	w.Helper()
	v, ok := vars.Get(name)
	w.True(ok, "variable should exist: %s", name)
	if ok {
		w.Equal(expected, v.Value)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
