package helpers

import (
	"context"
	"sync"

	"github.com/talkweave/engine/internal/client"
)

type (
	// MockCaller is a scriptable HTTP caller recording every request
	MockCaller struct {
		mu       sync.Mutex
		requests []*client.CallRequest
		handler  func(*client.CallRequest) (*client.CallResult, error)
	}

	// MockCompleter is a scriptable chat completer recording every request
	MockCompleter struct {
		mu       sync.Mutex
		requests []*client.ChatRequest
		handler  func(*client.ChatRequest) (*client.ChatResponse, error)
	}
)

var (
	_ client.Caller        = (*MockCaller)(nil)
	_ client.ChatCompleter = (*MockCompleter)(nil)
)

// NewMockCaller creates a caller that answers 200 with an empty object
func NewMockCaller() *MockCaller {
	c := &MockCaller{}
	c.Respond(200, `{}`)
	return c
}

// Respond scripts every subsequent call to return the given status and body
func (c *MockCaller) Respond(status int, body string) {
	c.Handle(func(*client.CallRequest) (*client.CallResult, error) {
		return &client.CallResult{
			StatusCode: status,
			Body:       []byte(body),
		}, nil
	})
}

// Fail scripts every subsequent call to return err
func (c *MockCaller) Fail(err error) {
	c.Handle(func(*client.CallRequest) (*client.CallResult, error) {
		return nil, err
	})
}

// Handle installs a custom response function
func (c *MockCaller) Handle(
	fn func(*client.CallRequest) (*client.CallResult, error),
) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// Call records the request and delegates to the scripted handler
func (c *MockCaller) Call(
	_ context.Context, req *client.CallRequest,
) (*client.CallResult, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	fn := c.handler
	c.mu.Unlock()
	return fn(req)
}

// Requests returns a copy of the recorded requests
func (c *MockCaller) Requests() []*client.CallRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]*client.CallRequest, len(c.requests))
	copy(res, c.requests)
	return res
}

// NewMockCompleter creates a completer that answers with a fixed reply
func NewMockCompleter() *MockCompleter {
	c := &MockCompleter{}
	c.Reply("ok")
	return c
}

// Reply scripts every subsequent completion to return the given text
func (c *MockCompleter) Reply(text string) {
	c.Handle(func(*client.ChatRequest) (*client.ChatResponse, error) {
		return &client.ChatResponse{
			Text: text,
			Raw:  `{"choices":[{"message":{"content":"` + text + `"}}]}`,
			Usage: client.ChatUsage{
				PromptTokens:     10,
				CompletionTokens: 5,
				TotalTokens:      15,
			},
		}, nil
	})
}

// Fail scripts every subsequent completion to return err
func (c *MockCompleter) Fail(err error) {
	c.Handle(func(*client.ChatRequest) (*client.ChatResponse, error) {
		return nil, err
	})
}

// Handle installs a custom response function
func (c *MockCompleter) Handle(
	fn func(*client.ChatRequest) (*client.ChatResponse, error),
) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// Complete records the request and delegates to the scripted handler
func (c *MockCompleter) Complete(
	_ context.Context, req *client.ChatRequest,
) (*client.ChatResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	fn := c.handler
	c.mu.Unlock()
	return fn(req)
}

// Requests returns a copy of the recorded requests
func (c *MockCompleter) Requests() []*client.ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]*client.ChatRequest, len(c.requests))
	copy(res, c.requests)
	return res
}
