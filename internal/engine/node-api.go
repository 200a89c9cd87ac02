package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talkweave/engine/internal/client"
	"github.com/talkweave/engine/pkg/api"
	"github.com/talkweave/engine/pkg/log"
	"github.com/tidwall/gjson"
)

var ErrNoCaller = errors.New("no HTTP caller configured")

// execAPICall performs the outbound HTTP request with per-attempt
// timeout and bounded retries. A 2xx response stores the configured
// variables and routes to success; transport errors and non-2xx
// statuses are retried alike, and after the last attempt the failure
// routes through the error edge
func (r *run) execAPICall(node *api.Node) (*outcome, error) {
	cfg := node.Config.API
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	if r.e.caller == nil {
		return nil, ErrNoCaller
	}

	req := r.buildCallRequest(cfg)
	attempts := cfg.Retries()
	timeout := cfg.Timeout()

	var (
		result  *client.CallResult
		lastErr error
	)
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(r.ctx, timeout)
		res, err := r.e.caller.Call(ctx, req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			result = res
			break
		}
		lastErr = fmt.Errorf("HTTP %d", res.StatusCode)
		result = res
	}

	if lastErr != nil && (result == nil ||
		result.StatusCode < 200 || result.StatusCode >= 300) {
		return r.apiFailure(node, cfg, result, lastErr)
	}

	if err := r.storeCallResult(cfg, result); err != nil {
		return nil, err
	}
	if next := r.handleNext(node, api.HandleSuccess); next != "" {
		return proceedTo(next), nil
	}
	return proceedTo(r.firstNext(node)), nil
}

func (r *run) buildCallRequest(cfg *api.APIConfig) *client.CallRequest {
	req := &client.CallRequest{
		Method: cfg.Method,
		URL:    r.interpolate(cfg.URL),
		Body:   r.interpolate(cfg.Body),
	}
	if len(cfg.Headers) > 0 || cfg.Auth != nil {
		req.Headers = map[string]string{}
		for k, v := range cfg.Headers {
			req.Headers[k] = r.interpolate(v)
		}
	}
	if len(cfg.Query) > 0 {
		req.Query = map[string]string{}
		for k, v := range cfg.Query {
			req.Query[k] = r.interpolate(v)
		}
	}
	if cfg.Auth != nil {
		applyAuth(req.Headers, cfg.Auth, r)
	}
	return req
}

func applyAuth(headers map[string]string, auth *api.AuthConfig, r *run) {
	switch strings.ToLower(auth.Type) {
	case "bearer":
		headers["Authorization"] = "Bearer " + r.interpolate(auth.Token)
	case "basic":
		creds := r.interpolate(auth.Username) + ":" +
			r.interpolate(auth.Password)
		headers["Authorization"] = "Basic " +
			base64.StdEncoding.EncodeToString([]byte(creds))
	case "header":
		if auth.Header != "" {
			headers[auth.Header] = r.interpolate(auth.Value)
		}
	}
}

// storeCallResult captures the status code, the decoded response body
// and any per-path extractions into their configured variables
func (r *run) storeCallResult(
	cfg *api.APIConfig, res *client.CallResult,
) error {
	if cfg.StatusVar != "" {
		if err := r.setSessionVar(
			cfg.StatusVar, float64(res.StatusCode),
		); err != nil {
			return err
		}
	}
	if cfg.ResponseVar != "" {
		if err := r.setSessionVar(
			cfg.ResponseVar, decodeBody(res.Body),
		); err != nil {
			return err
		}
	}
	for _, m := range cfg.Extract {
		value := gjson.GetBytes(res.Body, m.Path)
		if !value.Exists() {
			slog.Debug("Extraction path not found in response",
				slog.String("path", m.Path))
			continue
		}
		if err := r.setSessionVar(m.Variable, value.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) apiFailure(
	node *api.Node, cfg *api.APIConfig, res *client.CallResult, cause error,
) (*outcome, error) {
	slog.Warn("API call failed",
		log.SessionID(r.session.ID), log.NodeID(node.ID), log.Error(cause))

	if cfg.ErrorVar != "" {
		if err := r.setSessionVar(cfg.ErrorVar, cause.Error()); err != nil {
			return nil, err
		}
	}
	if cfg.StatusVar != "" && res != nil {
		if err := r.setSessionVar(
			cfg.StatusVar, float64(res.StatusCode),
		); err != nil {
			return nil, err
		}
	}
	if next := r.handleNext(node, api.HandleError); next != "" {
		return proceedTo(next), nil
	}
	return nil, cause
}

// decodeBody returns the parsed JSON value when the body is JSON, and
// the raw text otherwise
func decodeBody(body []byte) any {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return string(body)
	}
	return value
}
