package client_test

import (
	"context"
	"testing"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/internal/client"
)

type scriptedCompleter struct {
	text string
	last *client.ChatRequest
}

func (c *scriptedCompleter) Complete(
	_ context.Context, req *client.ChatRequest,
) (*client.ChatResponse, error) {
	c.last = req
	return &client.ChatResponse{Text: c.text}, nil
}

func TestCompleterSetRouting(t *testing.T) {
	as := assert.New(t)

	fallback := &scriptedCompleter{text: "from default"}
	azure := &scriptedCompleter{text: "from azure"}
	set := client.NewCompleterSet(fallback)
	set.Register("azure", azure)

	res, err := set.Complete(t.Context(), &client.ChatRequest{})
	as.NoError(err)
	as.Equal("from default", res.Text)
	as.Nil(azure.last)

	res, err = set.Complete(t.Context(), &client.ChatRequest{
		Provider: "azure",
		Model:    "gpt-4o",
	})
	as.NoError(err)
	as.Equal("from azure", res.Text)
	as.Require.NotNil(azure.last)
	as.Equal("gpt-4o", azure.last.Model)
}

func TestCompleterSetUnknownProvider(t *testing.T) {
	as := assert.New(t)

	set := client.NewCompleterSet(&scriptedCompleter{text: "ok"})
	_, err := set.Complete(t.Context(), &client.ChatRequest{
		Provider: "bedrock",
	})
	as.ErrorIs(err, client.ErrUnknownProvider)
}
