package engine_test

import (
	"testing"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/internal/engine"
)

func evalTrue(t *testing.T, input string) {
	t.Helper()
	as := assert.New(t)
	res, err := engine.EvalExpression(input, nil)
	as.NoError(err)
	as.True(res, "expected true: %s", input)
}

func evalFalse(t *testing.T, input string) {
	t.Helper()
	as := assert.New(t)
	res, err := engine.EvalExpression(input, nil)
	as.NoError(err)
	as.False(res, "expected false: %s", input)
}

func mapResolver(vars map[string]string) engine.Resolver {
	return func(ref string) string {
		return vars[ref]
	}
}

func TestEvalComparisons(t *testing.T) {
	evalTrue(t, "a == a")
	evalFalse(t, "a == b")
	evalTrue(t, "a != b")
	evalTrue(t, "10 > 9")
	evalFalse(t, "10 < 9")
	evalTrue(t, "10 >= 10")
	evalTrue(t, "9 <= 10")

	// numeric comparison applies only when both sides parse as numbers
	evalTrue(t, "10 == 10.0")
	evalFalse(t, "10 == 10x")
	evalTrue(t, "9 < 10")
	evalTrue(t, "'apple' < 'banana'")
	// lexicographic fallback when one side is not numeric
	evalTrue(t, "'9' > '10x'")
}

func TestEvalStringOperators(t *testing.T) {
	evalTrue(t, "'hello world' contains 'world'")
	evalFalse(t, "'hello' contains 'world'")
	evalTrue(t, "'hello world' starts with 'hello'")
	evalFalse(t, "'hello world' starts with 'world'")
	evalTrue(t, "'hello world' ends with 'world'")
	evalFalse(t, "'hello world' ends with 'hello'")
}

func TestEvalBooleanPrecedence(t *testing.T) {
	evalTrue(t, "a == a AND b == b")
	evalFalse(t, "a == a AND b == c")
	evalTrue(t, "a == b OR b == b")

	// AND binds tighter than OR
	evalTrue(t, "a == a OR b == c AND c == d")
	evalFalse(t, "a == b OR b == c AND c == c")
	evalTrue(t, "a == b OR b == b AND c == c")
}

func TestEvalQuotedOperands(t *testing.T) {
	evalTrue(t, `'two words' == 'two words'`)
	evalTrue(t, `"mixed quotes" == 'mixed quotes'`)
	evalFalse(t, `'' == 'x'`)
	evalTrue(t, `'AND' == 'AND'`)
}

func TestEvalVariableReferences(t *testing.T) {
	as := assert.New(t)
	vars := mapResolver(map[string]string{
		"reply": "yes please",
		"tone":  "AND",
		"n":     "10",
	})

	// a value with spaces stays a single operand
	res, err := engine.EvalExpression("{{reply}} == yes", vars)
	as.NoError(err)
	as.False(res)

	res, err = engine.EvalExpression("{{reply}} == 'yes please'", vars)
	as.NoError(err)
	as.True(res)

	// an unresolved reference is an empty operand, not a grammar break
	res, err = engine.EvalExpression("{{missing}} == yes", vars)
	as.NoError(err)
	as.False(res)

	res, err = engine.EvalExpression("{{missing}} == ''", vars)
	as.NoError(err)
	as.True(res)

	// resolved values are operands even when they spell a keyword
	res, err = engine.EvalExpression("{{tone}} == 'AND'", vars)
	as.NoError(err)
	as.True(res)

	res, err = engine.EvalExpression("{{n}} >= 9 AND {{n}} <= 10", vars)
	as.NoError(err)
	as.True(res)

	res, err = engine.EvalExpression("{{reply}} starts with yes", vars)
	as.NoError(err)
	as.True(res)

	// nil resolver renders every reference empty
	res, err = engine.EvalExpression("{{reply}} == ''", nil)
	as.NoError(err)
	as.True(res)
}

func TestEvalErrors(t *testing.T) {
	as := assert.New(t)

	_, err := engine.EvalExpression("a ==", nil)
	as.Error(err)

	_, err = engine.EvalExpression("a b c", nil)
	as.Error(err)

	_, err = engine.EvalExpression("'unterminated == x", nil)
	as.Error(err)

	_, err = engine.EvalExpression("a == b extra", nil)
	as.Error(err)

	_, err = engine.EvalExpression("{{broken == 1", nil)
	as.ErrorIs(err, engine.ErrExprRef)
}

func TestCompareSimpleForm(t *testing.T) {
	as := assert.New(t)

	cases := []struct {
		left, op, right string
		expect          bool
	}{
		{"a", "equals", "a", true},
		{"a", "not_equals", "b", true},
		{"10", "equals", "10.0", true},
		{"hello world", "contains", "world", true},
		{"10", "greater_than", "9", true},
		{"9", "less_than", "10", true},
		{"b", "greater_than", "a", true},
		{"abc123", "regex_match", `^[a-z]+\d+$`, true},
		{"abc", "regex_match", `^\d+$`, false},
	}
	for _, c := range cases {
		res, err := engine.Compare(c.left, c.op, c.right)
		as.NoError(err)
		as.Equal(c.expect, res, "%s %s %s", c.left, c.op, c.right)
	}

	_, err := engine.Compare("a", "bogus", "b")
	as.Error(err)

	_, err = engine.Compare("a", "regex_match", "([")
	as.Error(err)
}
