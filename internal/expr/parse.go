// internal/expr/parse.go
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a compiled trigger expression. Compile once at startup; Eval per
// incoming signal update.
type Expr struct {
	src  string
	root Node
	vars []string
}

// Parse compiles a trigger expression. The grammar, lowest precedence first:
//
//	expr    = andExpr { ("or" | "||") andExpr }
//	andExpr = notExpr { ("and" | "&&") notExpr }
//	notExpr = ("not" | "!") notExpr | cmpExpr
//	cmpExpr = operand [ ("<" | "<=" | ">" | ">=" | "==" | "!=") operand ]
//	operand = "-" operand | number | identifier | "true" | "false" | "(" expr ")"
//
// Malformed input and type mismatches (comparing booleans, and-ing numbers,
// a bare numeric top level) are reported here rather than at evaluation time.
func Parse(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", src, err)
	}
	if tok := p.peek(); tok.typ != tokEOF {
		return nil, fmt.Errorf("parsing %q: unexpected %q", src, tok.text)
	}
	if root.kind() != kindBool {
		return nil, fmt.Errorf("parsing %q: expression is numeric, not a condition", src)
	}

	var vars []string
	collectVars(root, make(map[string]bool), &vars)
	return &Expr{src: src, root: root, vars: vars}, nil
}

// Eval evaluates the expression against the given signal bindings.
func (e *Expr) Eval(binds map[string]float64) (bool, error) {
	v, err := e.root.eval(binds)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", e.src, err)
	}
	return v.b, nil
}

// Vars returns the distinct variables referenced by the expression, in order
// of first appearance.
func (e *Expr) Vars() []string { return e.vars }

// Validate checks that every variable in the expression has a binding, so a
// bad expression fails at startup instead of on the first message.
func (e *Expr) Validate(binds map[string]float64) error {
	for _, name := range e.vars {
		if _, ok := binds[name]; !ok {
			return fmt.Errorf("expression %q references unbound signal %q", e.src, name)
		}
	}
	return nil
}

func (e *Expr) String() string { return e.src }

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokNumber
	tokCmp
	tokAnd
	tokOr
	tokNot
	tokTrue
	tokFalse
	tokLParen
	tokRParen
	tokMinus
)

type token struct {
	typ  tokenType
	text string
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '-':
			toks = append(toks, token{tokMinus, "-"})
			i++
		case c == '<' || c == '>':
			op := string(c)
			i++
			if i < len(src) && src[i] == '=' {
				op += "="
				i++
			}
			toks = append(toks, token{tokCmp, op})
		case c == '=' || c == '!':
			if i+1 < len(src) && src[i+1] == '=' {
				toks = append(toks, token{tokCmp, string(c) + "="})
				i += 2
			} else if c == '!' {
				toks = append(toks, token{tokNot, "!"})
				i++
			} else {
				return nil, fmt.Errorf("unexpected character %q", string(c))
			}
		case c == '&' || c == '|':
			if i+1 >= len(src) || src[i+1] != c {
				return nil, fmt.Errorf("unexpected character %q", string(c))
			}
			if c == '&' {
				toks = append(toks, token{tokAnd, "&&"})
			} else {
				toks = append(toks, token{tokOr, "||"})
			}
			i += 2
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, src[i:j]})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_') {
				j++
			}
			word := src[i:j]
			i = j
			switch strings.ToLower(word) {
			case "and":
				toks = append(toks, token{tokAnd, word})
			case "or":
				toks = append(toks, token{tokOr, word})
			case "not":
				toks = append(toks, token{tokNot, word})
			case "true":
				toks = append(toks, token{tokTrue, word})
			case "false":
				toks = append(toks, token{tokFalse, word})
			default:
				toks = append(toks, token{tokIdent, word})
			}
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.typ != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if left.kind() != kindBool || right.kind() != kindBool {
			return nil, fmt.Errorf("operands of %q must be conditions", "or")
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == tokAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if left.kind() != kindBool || right.kind() != kindBool {
			return nil, fmt.Errorf("operands of %q must be conditions", "and")
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.peek().typ == tokNot {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if operand.kind() != kindBool {
			return nil, fmt.Errorf("operand of %q must be a condition", "not")
		}
		return Not{Operand: operand}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (Node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokCmp {
		return left, nil
	}
	op := p.next()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if left.kind() != kindNum || right.kind() != kindNum {
		return nil, fmt.Errorf("operands of %q must be numeric", op.text)
	}
	// Disallow chained comparisons like a < b < c; the middle term is a
	// boolean on one side and numeric on the other.
	if p.peek().typ == tokCmp {
		return nil, fmt.Errorf("chained comparison after %q", op.text)
	}
	return Compare{Op: op.text, Left: left, Right: right}, nil
}

func (p *parser) parseOperand() (Node, error) {
	switch tok := p.next(); tok.typ {
	case tokMinus:
		operand, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if operand.kind() != kindNum {
			return nil, fmt.Errorf("operand of unary %q must be numeric", "-")
		}
		return neg{operand: operand}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", tok.text)
		}
		return Literal{Value: f}, nil
	case tokIdent:
		return Variable{Name: tok.text}, nil
	case tokTrue:
		return BoolLiteral{Value: true}, nil
	case tokFalse:
		return BoolLiteral{Value: false}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if tok := p.next(); tok.typ != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis, got %q", tok.text)
		}
		return paren{inner: inner}, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q", tok.text)
	}
}
