package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/talkweave/engine/pkg/api"
)

var (
	emailPattern = regexp.MustCompile(
		`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@` +
			`[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
			`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{6,18}[0-9]$`)
)

// execInput prompts for free text on the first visit and validates the
// reply on the next. A valid reply stores the typed value and routes to
// success; an invalid one re-prompts until the retry bound is exhausted,
// then routes to failure
func (r *run) execInput(node *api.Node) (*outcome, error) {
	cfg := node.Config.Input
	if cfg == nil {
		return nil, ErrMissingConfig
	}

	ev := r.takeInput()
	if ev == nil {
		r.send(api.Text(r.interpolate(cfg.Prompt)))
		return pauseSession(), nil
	}

	retryVar := inputRetryVar(node.ID)
	value, err := validateInput(cfg, strings.TrimSpace(ev.Text))
	if err == nil {
		if cfg.Variable != "" {
			if err := r.setSessionVar(cfg.Variable, value); err != nil {
				return nil, err
			}
		}
		if err := r.setCounter(retryVar, 0); err != nil {
			return nil, err
		}
		return proceedTo(r.inputSuccessNext(node, cfg)), nil
	}

	attempts := r.counter(retryVar) + 1
	if attempts >= cfg.Retries() {
		if cerr := r.setCounter(retryVar, 0); cerr != nil {
			return nil, cerr
		}
		return proceedTo(r.inputFailureNext(node, cfg)), nil
	}
	if cerr := r.setCounter(retryVar, attempts); cerr != nil {
		return nil, cerr
	}

	prompt := cfg.RetryPrompt
	if prompt == "" {
		prompt = cfg.Prompt
	}
	r.send(api.Text(r.interpolate(prompt)))
	return pauseSession(), nil
}

func (r *run) inputSuccessNext(
	node *api.Node, cfg *api.InputConfig,
) api.NodeID {
	if next := r.handleNext(node, api.HandleSuccess); next != "" {
		return next
	}
	if cfg.SuccessNext != "" {
		return cfg.SuccessNext
	}
	return r.firstNext(node)
}

func (r *run) inputFailureNext(
	node *api.Node, cfg *api.InputConfig,
) api.NodeID {
	if next := r.handleNext(node, api.HandleError); next != "" {
		return next
	}
	return cfg.FailureNext
}

// validateInput applies the configured rule and returns the value to
// store. Number validation stores the parsed number rather than its text
func validateInput(cfg *api.InputConfig, text string) (any, error) {
	switch cfg.Validation {
	case "", api.ValidateText:
		if cfg.MinLength > 0 && len(text) < cfg.MinLength {
			return nil, fmt.Errorf(
				"reply shorter than %d characters", cfg.MinLength)
		}
		if cfg.MaxLength > 0 && len(text) > cfg.MaxLength {
			return nil, fmt.Errorf(
				"reply longer than %d characters", cfg.MaxLength)
		}
		return text, nil

	case api.ValidateEmail:
		if !emailPattern.MatchString(text) {
			return nil, fmt.Errorf("not a valid email address: %q", text)
		}
		return text, nil

	case api.ValidatePhone:
		if !phonePattern.MatchString(text) {
			return nil, fmt.Errorf("not a valid phone number: %q", text)
		}
		return text, nil

	case api.ValidateNumber:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", text)
		}
		if cfg.Min != nil && n < *cfg.Min {
			return nil, fmt.Errorf("%v is below minimum %v", n, *cfg.Min)
		}
		if cfg.Max != nil && n > *cfg.Max {
			return nil, fmt.Errorf("%v is above maximum %v", n, *cfg.Max)
		}
		return n, nil

	case api.ValidateRegex:
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, err
		}
		if !re.MatchString(text) {
			return nil, fmt.Errorf("reply does not match pattern")
		}
		return text, nil

	default:
		return nil, fmt.Errorf("unknown validation kind: %q", cfg.Validation)
	}
}

func inputRetryVar(id api.NodeID) api.Name {
	return api.Name("_retries:" + string(id))
}
