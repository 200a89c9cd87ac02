package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/talkweave/engine/pkg/api"
	"github.com/tidwall/gjson"
)

// Well-known loop variables exposed to the body on each iteration
const (
	loopItemVar    = api.Name("loop_item")
	loopIndexVar   = api.Name("loop_index")
	loopCountVar   = api.Name("loop_count")
	loopFirstVar   = api.Name("loop_first")
	loopLastVar    = api.Name("loop_last")
	loopCounterVar = api.Name("loop_counter")
)

var (
	ErrNoLoopBody  = errors.New("loop has no loop-body edge")
	ErrLoopEmpty   = errors.New("loop source is empty or not an array")
	ErrUnknownLoop = errors.New("unknown loop mode")
)

// execLoop drives all three loop modes. The iteration counter persists
// as a session variable so a process restart resumes mid-loop, and a
// body without an edge leading back to the loop node exits early to
// done instead of dead-ending after one pass
func (r *run) execLoop(node *api.Node) (*outcome, error) {
	cfg := node.Config.Loop
	if cfg == nil {
		return nil, ErrMissingConfig
	}

	counterVar := loopCounterName(node.ID)
	i := r.counter(counterVar)

	if i > 0 || r.graph.HasLoopback(node.ID) {
		switch cfg.Mode {
		case api.LoopForEach:
			return r.loopForEach(node, cfg, counterVar, i)
		case api.LoopCount:
			return r.loopCountBased(node, cfg, counterVar, i)
		case api.LoopCondition:
			return r.loopConditionBased(node, cfg, counterVar, i)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownLoop, cfg.Mode)
		}
	}
	return r.loopDone(node, counterVar)
}

func (r *run) loopForEach(
	node *api.Node, cfg *api.LoopConfig, counterVar api.Name, i int,
) (*outcome, error) {
	arr := r.loopSource(cfg)
	if len(arr) == 0 {
		if cfg.OnEmpty == api.LoopEmptyError {
			return r.loopError(node, ErrLoopEmpty)
		}
		return r.loopDone(node, counterVar)
	}

	if i > 0 {
		if err := r.accumulateResult(cfg); err != nil {
			return nil, err
		}
	}

	limit := min(len(arr), cfg.Iterations())
	if i >= limit {
		return r.loopDone(node, counterVar)
	}

	item := arr[i]
	if cfg.ExtractField != "" {
		item = extractField(item, cfg.ExtractField)
	}
	itemVar := cfg.ItemVar
	if itemVar == "" {
		itemVar = loopItemVar
	}
	if err := r.setSessionVar(itemVar, item); err != nil {
		return nil, err
	}
	if err := r.setIterationVars(cfg, i, i == limit-1); err != nil {
		return nil, err
	}
	if err := r.setCounter(counterVar, i+1); err != nil {
		return nil, err
	}
	return r.loopBody(node)
}

func (r *run) loopCountBased(
	node *api.Node, cfg *api.LoopConfig, counterVar api.Name, i int,
) (*outcome, error) {
	limit := min(cfg.Count, cfg.Iterations())
	if i >= limit {
		return r.loopDone(node, counterVar)
	}

	step := cfg.Step
	if step == 0 {
		step = 1
	}
	name := cfg.CounterVar
	if name == "" {
		name = loopCounterVar
	}
	value := float64(cfg.Start + i*step)
	if err := r.setSessionVar(name, value); err != nil {
		return nil, err
	}
	if err := r.setIterationVars(cfg, i, i == limit-1); err != nil {
		return nil, err
	}
	if err := r.setCounter(counterVar, i+1); err != nil {
		return nil, err
	}
	return r.loopBody(node)
}

func (r *run) loopConditionBased(
	node *api.Node, cfg *api.LoopConfig, counterVar api.Name, i int,
) (*outcome, error) {
	if i >= cfg.Iterations() {
		return r.loopDone(node, counterVar)
	}

	res, err := EvalExpression(cfg.Expression, r.resolve)
	if err != nil {
		return nil, err
	}
	if !res {
		return r.loopDone(node, counterVar)
	}

	if err := r.setIterationVars(cfg, i, false); err != nil {
		return nil, err
	}
	if err := r.setCounter(counterVar, i+1); err != nil {
		return nil, err
	}
	return r.loopBody(node)
}

func (r *run) loopSource(cfg *api.LoopConfig) []any {
	v, ok := r.vars.Get(cfg.Source)
	if !ok {
		return nil
	}
	arr, _ := v.Array()
	return arr
}

// setIterationVars exposes the index/count pair and first/last flags
func (r *run) setIterationVars(
	cfg *api.LoopConfig, i int, last bool,
) error {
	indexVar := cfg.IndexVar
	if indexVar == "" {
		indexVar = loopIndexVar
	}
	if err := r.setSessionVar(indexVar, float64(i)); err != nil {
		return err
	}
	if err := r.setSessionVar(loopCountVar, float64(i+1)); err != nil {
		return err
	}
	if err := r.setSessionVar(loopFirstVar, i == 0); err != nil {
		return err
	}
	return r.setSessionVar(loopLastVar, last)
}

// accumulateResult appends the body's result source value, produced by
// the previous iteration, to the configured result array
func (r *run) accumulateResult(cfg *api.LoopConfig) error {
	if cfg.ResultVar == "" || cfg.ResultSource == "" {
		return nil
	}
	src, ok := r.vars.Get(cfg.ResultSource)
	if !ok {
		return nil
	}

	var acc []any
	if prev, ok := r.vars.Get(cfg.ResultVar); ok {
		acc, _ = prev.Array()
	}
	acc = append(acc, src.Value)
	return r.setSessionVar(cfg.ResultVar, acc)
}

func (r *run) loopBody(node *api.Node) (*outcome, error) {
	if next := r.handleNext(node, api.HandleLoopBody); next != "" {
		return proceedTo(next), nil
	}
	return nil, ErrNoLoopBody
}

func (r *run) loopDone(
	node *api.Node, counterVar api.Name,
) (*outcome, error) {
	if r.counter(counterVar) != 0 {
		if err := r.setCounter(counterVar, 0); err != nil {
			return nil, err
		}
	}
	if next := r.handleNext(node, api.HandleDone); next != "" {
		return proceedTo(next), nil
	}
	// the first edge may be the loop body, so only the inline next
	// reference is a safe fallback here
	return proceedTo(node.Config.Next), nil
}

func (r *run) loopError(node *api.Node, cause error) (*outcome, error) {
	if next := r.handleNext(node, api.HandleError); next != "" {
		return proceedTo(next), nil
	}
	return nil, cause
}

// extractField narrows a structured item down to one of its fields
func extractField(item any, field string) any {
	data, err := json.Marshal(item)
	if err != nil {
		return item
	}
	res := gjson.GetBytes(data, field)
	if !res.Exists() {
		return nil
	}
	return res.Value()
}

func loopCounterName(id api.NodeID) api.Name {
	return api.Name("_loop:" + string(id))
}
