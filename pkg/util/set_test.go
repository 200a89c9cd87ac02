package util_test

import (
	"testing"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/pkg/util"
)

func TestSet(t *testing.T) {
	as := assert.New(t)

	s := util.SetOf("a", "b")
	as.Equal(2, s.Len())
	as.True(s.Contains("a"))
	as.False(s.Contains("c"))

	s.Add("c")
	as.True(s.Contains("c"))

	s.Remove("a")
	as.False(s.Contains("a"))
	as.Equal(2, s.Len())

	s.Remove("b")
	s.Remove("c")
	as.True(s.IsEmpty())
}
