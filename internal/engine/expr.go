package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The branch expression grammar is deliberately small: comparisons over
// literals, quoted strings and {{...}} variable references, combined
// with AND and OR where AND binds tighter. A reference is always a
// single operand; its value is resolved after tokenization and never
// re-enters the grammar, no matter what it contains

type (
	// Resolver renders one {{...}} reference to its operand text
	Resolver func(ref string) string

	exprToken struct {
		text   string
		quoted bool
		ref    bool
	}

	exprParser struct {
		tokens  []exprToken
		pos     int
		resolve Resolver
	}
)

var (
	ErrExprOperand  = errors.New("expected operand")
	ErrExprOperator = errors.New("expected comparison operator")
	ErrExprTrailing = errors.New("unexpected trailing input")
	ErrExprQuote    = errors.New("unterminated quoted string")
	ErrExprRef      = errors.New("unterminated variable reference")
)

// EvalExpression evaluates a branch expression. Variable references are
// resolved through the provided Resolver; a nil Resolver renders every
// reference as the empty string
func EvalExpression(input string, resolve Resolver) (bool, error) {
	tokens, err := tokenizeExpr(input)
	if err != nil {
		return false, err
	}
	p := &exprParser{tokens: tokens, resolve: resolve}
	res, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.tokens) {
		return false, fmt.Errorf("%w: %q", ErrExprTrailing, p.rest())
	}
	return res, nil
}

// Compare applies the simple condition form's operator to two
// interpolated operands. Ordering comparisons are numeric when both
// sides parse as numbers, otherwise lexicographic
func Compare(left, op, right string) (bool, error) {
	switch op {
	case "equals", "==":
		return compareEqual(left, right), nil
	case "not_equals", "!=":
		return !compareEqual(left, right), nil
	case "contains":
		return strings.Contains(left, right), nil
	case "greater_than", ">":
		return compareOrder(left, right) > 0, nil
	case "less_than", "<":
		return compareOrder(left, right) < 0, nil
	case ">=":
		return compareOrder(left, right) >= 0, nil
	case "<=":
		return compareOrder(left, right) <= 0, nil
	case "regex_match":
		re, err := regexp.Compile(right)
		if err != nil {
			return false, err
		}
		return re.MatchString(left), nil
	default:
		return false, fmt.Errorf("unknown operator: %q", op)
	}
}

func compareEqual(left, right string) bool {
	if l, lok := parseNumber(left); lok {
		if r, rok := parseNumber(right); rok {
			return l == r
		}
	}
	return left == right
}

func compareOrder(left, right string) int {
	if l, lok := parseNumber(left); lok {
		if r, rok := parseNumber(right); rok {
			switch {
			case l < r:
				return -1
			case l > r:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(left, right)
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func (p *exprParser) parseOr() (bool, error) {
	res, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.matchKeyword("or") {
		rhs, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		res = res || rhs
	}
	return res, nil
}

func (p *exprParser) parseAnd() (bool, error) {
	res, err := p.parseComparison()
	if err != nil {
		return false, err
	}
	for p.matchKeyword("and") {
		rhs, err := p.parseComparison()
		if err != nil {
			return false, err
		}
		res = res && rhs
	}
	return res, nil
}

func (p *exprParser) parseComparison() (bool, error) {
	left, ok := p.operand()
	if !ok {
		return false, fmt.Errorf("%w at %q", ErrExprOperand, p.rest())
	}
	op, ok := p.operator()
	if !ok {
		return false, fmt.Errorf("%w at %q", ErrExprOperator, p.rest())
	}
	right, ok := p.operand()
	if !ok {
		return false, fmt.Errorf("%w at %q", ErrExprOperand, p.rest())
	}

	switch op {
	case "starts with":
		return strings.HasPrefix(left, right), nil
	case "ends with":
		return strings.HasSuffix(left, right), nil
	default:
		return Compare(left, op, right)
	}
}

func (p *exprParser) operand() (string, bool) {
	if p.pos >= len(p.tokens) {
		return "", false
	}
	t := p.tokens[p.pos]
	if !t.quoted && !t.ref && isExprKeyword(t.text) {
		return "", false
	}
	p.pos++
	if t.ref {
		if p.resolve == nil {
			return "", true
		}
		return p.resolve(t.text), true
	}
	return t.text, true
}

func (p *exprParser) operator() (string, bool) {
	if p.pos >= len(p.tokens) {
		return "", false
	}
	t := p.tokens[p.pos]
	if t.quoted || t.ref {
		return "", false
	}
	switch strings.ToLower(t.text) {
	case "==", "!=", ">", "<", ">=", "<=":
		p.pos++
		return t.text, true
	case "contains":
		p.pos++
		return "contains", true
	case "starts", "ends":
		if p.pos+1 < len(p.tokens) {
			w := p.tokens[p.pos+1]
			if !w.quoted && !w.ref && strings.EqualFold(w.text, "with") {
				p.pos += 2
				return strings.ToLower(t.text) + " with", true
			}
		}
	}
	return "", false
}

func (p *exprParser) matchKeyword(kw string) bool {
	if p.pos >= len(p.tokens) {
		return false
	}
	t := p.tokens[p.pos]
	if t.quoted || t.ref || !strings.EqualFold(t.text, kw) {
		return false
	}
	p.pos++
	return true
}

func (p *exprParser) rest() string {
	var sb strings.Builder
	for i := p.pos; i < len(p.tokens); i++ {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(p.tokens[i].text)
	}
	return sb.String()
}

func isExprKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "and", "or", "contains", "starts", "ends", "with",
		"==", "!=", ">", "<", ">=", "<=":
		return true
	}
	return false
}

func tokenizeExpr(input string) ([]exprToken, error) {
	var res []exprToken
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(input[i+1:], c)
			if end < 0 {
				return nil, ErrExprQuote
			}
			res = append(res, exprToken{
				text:   input[i+1 : i+1+end],
				quoted: true,
			})
			i += end + 2
		case strings.HasPrefix(input[i:], "{{"):
			end := strings.Index(input[i+2:], "}}")
			if end < 0 {
				return nil, ErrExprRef
			}
			res = append(res, exprToken{
				text: strings.TrimSpace(input[i+2 : i+2+end]),
				ref:  true,
			})
			i += end + 4
		case strings.HasPrefix(input[i:], "==") ||
			strings.HasPrefix(input[i:], "!=") ||
			strings.HasPrefix(input[i:], ">=") ||
			strings.HasPrefix(input[i:], "<="):
			res = append(res, exprToken{text: input[i : i+2]})
			i += 2
		case c == '>' || c == '<':
			res = append(res, exprToken{text: string(c)})
			i++
		default:
			j := i
			for j < len(input) && !isExprBoundary(input[j]) {
				j++
			}
			if j == i {
				j++
			}
			res = append(res, exprToken{text: input[i:j]})
			i = j
		}
	}
	return res, nil
}

func isExprBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\'', '"', '=', '!', '>', '<', '{', '}':
		return true
	}
	return false
}
