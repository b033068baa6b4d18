package evaluation

import (
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// conditionEnv supplies what a condition needs from the evaluator.
type conditionEnv interface {
	expandValue(value string) string
	exists(path string) bool
}

// evaluateCondition evaluates an MSBuild condition. Only comparisons, and, or,
// !, parentheses and Exists() are understood. A condition that cannot be
// parsed is treated as true.
func evaluateCondition(env conditionEnv, condition string) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return true, nil
	}

	toks, err := tokenizeCondition(condition)
	if err != nil {
		return true, err
	}

	p := &conditionParser{env: env, toks: toks}
	v, err := p.parseOr()
	if err != nil {
		return true, err
	}
	if !p.done() {
		return true, errors.Errorf("unexpected %q in condition %q", p.peek().text, condition)
	}
	return v, nil
}

type tokenKind int

const (
	tokString tokenKind = iota + 1
	tokWord
	tokOp
	tokLParen
	tokRParen
	tokNot
)

type token struct {
	kind tokenKind
	text string
}

func tokenizeCondition(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return nil, errors.Errorf("unterminated string in condition %q", s)
			}
			toks = append(toks, token{tokString, s[i+1 : i+1+end]})
			i += end + 2
		case (c == '$' || c == '@') && strings.HasPrefix(s[i+1:], "("):
			end := strings.IndexByte(s[i:], ')')
			if end < 0 {
				return nil, errors.Errorf("unterminated reference in condition %q", s)
			}
			toks = append(toks, token{tokWord, s[i : i+end+1]})
			i += end + 1
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case strings.HasPrefix(s[i:], "=="), strings.HasPrefix(s[i:], "!="),
			strings.HasPrefix(s[i:], "<="), strings.HasPrefix(s[i:], ">="):
			toks = append(toks, token{tokOp, s[i : i+2]})
			i += 2
		case c == '<' || c == '>':
			toks = append(toks, token{tokOp, s[i : i+1]})
			i++
		case c == '!':
			toks = append(toks, token{tokNot, "!"})
			i++
		default:
			start := i
			for i < len(s) && !strings.ContainsRune(" \t\r\n'()=!<>", rune(s[i])) {
				i++
			}
			if start == i {
				return nil, errors.Errorf("unexpected %q in condition %q", c, s)
			}
			toks = append(toks, token{tokWord, s[start:i]})
		}
	}
	return toks, nil
}

type conditionParser struct {
	env  conditionEnv
	toks []token
	pos  int
}

func (p *conditionParser) done() bool {
	return p.pos >= len(p.toks)
}

func (p *conditionParser) peek() token {
	if p.done() {
		return token{}
	}
	return p.toks[p.pos]
}

func (p *conditionParser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokWord && strings.EqualFold(t.text, word)
}

func (p *conditionParser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.isKeyword("or") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *conditionParser) parseAnd() (bool, error) {
	left, err := p.parseNot()
	if err != nil {
		return false, err
	}
	for p.isKeyword("and") {
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *conditionParser) parseNot() (bool, error) {
	if p.peek().kind == tokNot {
		p.pos++
		v, err := p.parseNot()
		return !v, err
	}
	return p.parseComparison()
}

func (p *conditionParser) parseComparison() (bool, error) {
	if p.peek().kind == tokLParen {
		p.pos++
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if p.peek().kind != tokRParen {
			return false, errors.New("missing closing parenthesis in condition")
		}
		p.pos++
		return v, nil
	}

	if p.isKeyword("exists") {
		p.pos++
		if p.peek().kind != tokLParen {
			return false, errors.New("Exists must be followed by a parenthesis")
		}
		p.pos++
		arg, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		if p.peek().kind != tokRParen {
			return false, errors.New("missing closing parenthesis after Exists")
		}
		p.pos++
		return p.env.exists(arg), nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return false, err
	}

	if p.peek().kind != tokOp {
		return asBool(left)
	}
	op := p.peek().text
	p.pos++

	right, err := p.parseOperand()
	if err != nil {
		return false, err
	}
	return compare(left, op, right)
}

func (p *conditionParser) parseOperand() (string, error) {
	t := p.peek()
	switch t.kind {
	case tokString, tokWord:
		p.pos++
		return p.env.expandValue(t.text), nil
	}
	if p.done() {
		return "", errors.New("condition ended early")
	}
	return "", errors.Errorf("unexpected %q in condition", t.text)
}

func asBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "yes":
		return true, nil
	case "false", "off", "no":
		return false, nil
	}
	return false, errors.Errorf("%q is not a boolean", v)
}

func compare(left, op, right string) (bool, error) {
	switch op {
	case "==":
		return strings.EqualFold(left, right), nil
	case "!=":
		return !strings.EqualFold(left, right), nil
	}

	l, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	r, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if lerr != nil || rerr != nil {
		return false, errors.Errorf("cannot compare %q %s %q as numbers", left, op, right)
	}
	switch op {
	case "<":
		return l < r, nil
	case ">":
		return l > r, nil
	case "<=":
		return l <= r, nil
	case ">=":
		return l >= r, nil
	}
	return false, errors.Errorf("unknown operator %q", op)
}
