package api_test

import (
	"testing"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/pkg/api"
)

func TestTypeOf(t *testing.T) {
	as := assert.New(t)

	as.Equal(api.TypeString, api.TypeOf("hello"))
	as.Equal(api.TypeNumber, api.TypeOf(42.5))
	as.Equal(api.TypeNumber, api.TypeOf(7))
	as.Equal(api.TypeBoolean, api.TypeOf(true))
	as.Equal(api.TypeArray, api.TypeOf([]any{1, 2}))
	as.Equal(api.TypeObject, api.TypeOf(map[string]any{"a": 1}))
}

func TestVariableString(t *testing.T) {
	as := assert.New(t)

	as.Equal("hello",
		api.NewVariable("v", api.ScopeSession, "hello").String())
	as.Equal("42",
		api.NewVariable("v", api.ScopeSession, 42.0).String())
	as.Equal("42.5",
		api.NewVariable("v", api.ScopeSession, 42.5).String())
	as.Equal("true",
		api.NewVariable("v", api.ScopeSession, true).String())
	as.Equal(`{"a":1}`,
		api.NewVariable("v", api.ScopeSession,
			map[string]any{"a": 1}).String())
	as.Equal(`["x","y"]`,
		api.NewVariable("v", api.ScopeSession,
			[]any{"x", "y"}).String())
}

func TestVariableNumber(t *testing.T) {
	as := assert.New(t)

	n, ok := api.NewVariable("v", api.ScopeSession, 42.5).Number()
	as.True(ok)
	as.Equal(42.5, n)

	n, ok = api.NewVariable("v", api.ScopeSession, "17").Number()
	as.True(ok)
	as.Equal(17.0, n)

	_, ok = api.NewVariable("v", api.ScopeSession, "nope").Number()
	as.False(ok)

	_, ok = api.NewVariable("v", api.ScopeSession, true).Number()
	as.False(ok)
}

func TestVariableArray(t *testing.T) {
	as := assert.New(t)

	arr, ok := api.NewVariable("v", api.ScopeSession,
		[]any{"a", "b"}).Array()
	as.True(ok)
	as.Len(arr, 2)

	_, ok = api.NewVariable("v", api.ScopeSession, "a,b").Array()
	as.False(ok)
}
