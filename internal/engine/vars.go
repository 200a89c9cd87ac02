package engine

import (
	"github.com/talkweave/engine/pkg/api"
)

// loadVars builds the merged variable view for interpolation and
// evaluation. Session scope shadows bot scope on name collision
func (r *run) loadVars() error {
	botVars, err := r.e.store.BotVars(r.ctx, r.session.Bot)
	if err != nil {
		return err
	}
	sessVars, err := r.e.store.SessionVars(r.ctx, r.session.ID)
	if err != nil {
		return err
	}

	merged := make(api.Vars, len(botVars)+len(sessVars))
	for name, v := range botVars {
		merged[name] = v
	}
	for name, v := range sessVars {
		merged[name] = v
	}
	r.vars = merged
	return nil
}

// setVar writes a variable to its scope's store and refreshes the merged
// view so later nodes in the same chain observe the new value
func (r *run) setVar(scope api.VarScope, name api.Name, value any) error {
	v := api.NewVariable(name, scope, value)
	var err error
	if scope == api.ScopeBot {
		err = r.e.store.SetBotVar(r.ctx, r.session.Bot, v)
	} else {
		err = r.e.store.SetSessionVar(r.ctx, r.session.ID, v)
	}
	if err != nil {
		return err
	}
	r.vars[name] = v
	return nil
}

func (r *run) setSessionVar(name api.Name, value any) error {
	return r.setVar(api.ScopeSession, name, value)
}

// counter reads an integer-valued session variable, defaulting to zero.
// Loop indexes and input retry counts persist this way so they survive
// process restarts along with the session
func (r *run) counter(name api.Name) int {
	v, ok := r.vars.Get(name)
	if !ok {
		return 0
	}
	n, ok := v.Number()
	if !ok {
		return 0
	}
	return int(n)
}

func (r *run) setCounter(name api.Name, n int) error {
	return r.setSessionVar(name, float64(n))
}
