// internal/expr/ast.go
package expr

import "fmt"

// The trigger grammar is deliberately tiny: comparisons over numeric signal
// values combined with and/or/not. Nothing in it can call out of the tree, so
// evaluating a user-supplied expression is just a walk over these nodes.

// Node is a node of a parsed trigger expression.
type Node interface {
	eval(binds map[string]float64) (value, error)
	kind() valueKind
}

type valueKind int

const (
	kindNum valueKind = iota
	kindBool
)

func (k valueKind) String() string {
	if k == kindBool {
		return "boolean"
	}
	return "numeric"
}

// value is the result of evaluating a node: either a number or a boolean.
type value struct {
	kind valueKind
	num  float64
	b    bool
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

func (n Literal) kind() valueKind { return kindNum }

func (n Literal) eval(map[string]float64) (value, error) {
	return value{kind: kindNum, num: n.Value}, nil
}

// BoolLiteral is the keyword true or false.
type BoolLiteral struct {
	Value bool
}

func (n BoolLiteral) kind() valueKind { return kindBool }

func (n BoolLiteral) eval(map[string]float64) (value, error) {
	return value{kind: kindBool, b: n.Value}, nil
}

// Variable is a free signal identifier resolved against the bindings at
// evaluation time.
type Variable struct {
	Name string
}

func (n Variable) kind() valueKind { return kindNum }

func (n Variable) eval(binds map[string]float64) (value, error) {
	v, ok := binds[n.Name]
	if !ok {
		return value{}, fmt.Errorf("no value bound for %q", n.Name)
	}
	return value{kind: kindNum, num: v}, nil
}

// Compare applies a comparison operator to two numeric operands.
type Compare struct {
	Op    string // one of < <= > >= == !=
	Left  Node
	Right Node
}

func (n Compare) kind() valueKind { return kindBool }

func (n Compare) eval(binds map[string]float64) (value, error) {
	l, err := n.Left.eval(binds)
	if err != nil {
		return value{}, err
	}
	r, err := n.Right.eval(binds)
	if err != nil {
		return value{}, err
	}
	var b bool
	switch n.Op {
	case "<":
		b = l.num < r.num
	case "<=":
		b = l.num <= r.num
	case ">":
		b = l.num > r.num
	case ">=":
		b = l.num >= r.num
	case "==":
		b = l.num == r.num
	case "!=":
		b = l.num != r.num
	default:
		return value{}, fmt.Errorf("unknown comparison operator %q", n.Op)
	}
	return value{kind: kindBool, b: b}, nil
}

// And is the boolean conjunction of two operands. Both sides are evaluated;
// there are no side effects to short-circuit away.
type And struct {
	Left  Node
	Right Node
}

func (n And) kind() valueKind { return kindBool }

func (n And) eval(binds map[string]float64) (value, error) {
	l, err := n.Left.eval(binds)
	if err != nil {
		return value{}, err
	}
	r, err := n.Right.eval(binds)
	if err != nil {
		return value{}, err
	}
	return value{kind: kindBool, b: l.b && r.b}, nil
}

// Or is the boolean disjunction of two operands.
type Or struct {
	Left  Node
	Right Node
}

func (n Or) kind() valueKind { return kindBool }

func (n Or) eval(binds map[string]float64) (value, error) {
	l, err := n.Left.eval(binds)
	if err != nil {
		return value{}, err
	}
	r, err := n.Right.eval(binds)
	if err != nil {
		return value{}, err
	}
	return value{kind: kindBool, b: l.b || r.b}, nil
}

// Not negates a boolean operand.
type Not struct {
	Operand Node
}

func (n Not) kind() valueKind { return kindBool }

func (n Not) eval(binds map[string]float64) (value, error) {
	v, err := n.Operand.eval(binds)
	if err != nil {
		return value{}, err
	}
	return value{kind: kindBool, b: !v.b}, nil
}

// neg is unary minus on a numeric operand.
type neg struct {
	operand Node
}

func (n neg) kind() valueKind { return kindNum }

func (n neg) eval(binds map[string]float64) (value, error) {
	v, err := n.operand.eval(binds)
	if err != nil {
		return value{}, err
	}
	return value{kind: kindNum, num: -v.num}, nil
}

// paren wraps a parenthesized subexpression so kind checks pass through.
type paren struct {
	inner Node
}

func (n paren) kind() valueKind { return n.inner.kind() }

func (n paren) eval(binds map[string]float64) (value, error) {
	return n.inner.eval(binds)
}

func collectVars(n Node, seen map[string]bool, out *[]string) {
	switch t := n.(type) {
	case Variable:
		if !seen[t.Name] {
			seen[t.Name] = true
			*out = append(*out, t.Name)
		}
	case Compare:
		collectVars(t.Left, seen, out)
		collectVars(t.Right, seen, out)
	case And:
		collectVars(t.Left, seen, out)
		collectVars(t.Right, seen, out)
	case Or:
		collectVars(t.Left, seen, out)
		collectVars(t.Right, seen, out)
	case Not:
		collectVars(t.Operand, seen, out)
	case neg:
		collectVars(t.operand, seen, out)
	case paren:
		collectVars(t.inner, seen, out)
	}
}
