package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type (
	// CallRequest is a fully interpolated outbound HTTP request built by
	// the API node executor
	CallRequest struct {
		Method  string
		URL     string
		Headers map[string]string
		Query   map[string]string
		Body    string
	}

	// CallResult is the raw outcome of one HTTP attempt
	CallResult struct {
		StatusCode int
		Body       []byte
		Duration   time.Duration
	}

	// Caller performs a single outbound HTTP call. Retry policy belongs
	// to the node executor, not the client
	Caller interface {
		Call(context.Context, *CallRequest) (*CallResult, error)
	}

	// HTTPCaller is the production Caller backed by net/http
	HTTPCaller struct {
		httpClient *http.Client
	}
)

var ErrNoURL = errors.New("call request has no URL")

var _ Caller = (*HTTPCaller)(nil)

// NewHTTPCaller creates the default HTTP caller. Per-call deadlines come
// from the request context, so no client-level timeout is set
func NewHTTPCaller() *HTTPCaller {
	return &HTTPCaller{
		httpClient: &http.Client{},
	}
}

// Call executes one HTTP request and returns its status and body. A non-2xx
// status is a result, not an error; only transport failures error out
func (c *HTTPCaller) Call(
	ctx context.Context, req *CallRequest,
) (*CallResult, error) {
	if req.URL == "" {
		return nil, ErrNoURL
	}

	target := req.URL
	if len(req.Query) > 0 {
		q := url.Values{}
		for k, v := range req.Query {
			q.Set(k, v)
		}
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target = target + sep + q.Encode()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	dur := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &CallResult{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Duration:   dur,
	}, nil
}
