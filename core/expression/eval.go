package expression

import (
	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of decimal places kept by "/"
const DivisionPrecision = 16

// Evaluate parses and evaluates src against env
func Evaluate(src string, env Env) (Value, error) {
	prog, err := Parse(src)
	if err != nil {
		return Value{}, err
	}
	return prog.Eval(env)
}

// Eval evaluates the program against env. It never mutates env.
func (p *Program) Eval(env Env) (Value, error) {
	e := evaluator{src: p.source, env: env}
	return e.eval(p.root)
}

type evaluator struct {
	src string
	env Env
}

func (e *evaluator) eval(n Node) (Value, error) {
	switch node := n.(type) {
	case *Literal:
		return node.Value, nil
	case *Ident:
		v, ok := e.env.Lookup(node.Name)
		if !ok {
			return Value{}, newError(ErrUnknownIdentifier, e.src, node.Pos, "%q is not defined", node.Name)
		}
		return v, nil
	case *Unary:
		return e.evalUnary(node)
	case *Binary:
		return e.evalBinary(node)
	case *Ternary:
		cond, err := e.evalBool(node.Cond, node.Cond.span())
		if err != nil {
			return Value{}, err
		}
		if cond {
			return e.eval(node.Then)
		}
		return e.eval(node.Else)
	}
	return Value{}, newError(ErrSyntax, e.src, n.span(), "unsupported node %T", n)
}

func (e *evaluator) evalBool(n Node, at Span) (bool, error) {
	v, err := e.eval(n)
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	if err != nil {
		return false, newError(ErrTypeMismatch, e.src, at, "expected boolean, got %v", v.kind)
	}
	return b, nil
}

func (e *evaluator) evalUnary(n *Unary) (Value, error) {
	v, err := e.eval(n.Operand)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case "!":
		if v.kind != KindBool {
			return Value{}, newError(ErrTypeMismatch, e.src, n.Pos, "operator ! needs a boolean, got %v", v.kind)
		}
		return Bool(!v.boolean), nil
	case "-":
		if v.kind != KindNumber {
			return Value{}, newError(ErrTypeMismatch, e.src, n.Pos, "operator - needs a number, got %v", v.kind)
		}
		return Number(v.number.Neg()), nil
	}
	return Value{}, newError(ErrSyntax, e.src, n.Pos, "unknown unary operator %s", n.Op)
}

func (e *evaluator) evalBinary(n *Binary) (Value, error) {
	// && and || short-circuit: the right operand is only evaluated when needed
	switch n.Op {
	case "&&", "||":
		left, err := e.evalBool(n.Left, n.Left.span())
		if err != nil {
			return Value{}, err
		}
		if n.Op == "&&" && !left {
			return Bool(false), nil
		}
		if n.Op == "||" && left {
			return Bool(true), nil
		}
		right, err := e.evalBool(n.Right, n.Right.span())
		if err != nil {
			return Value{}, err
		}
		return Bool(right), nil
	}

	left, err := e.eval(n.Left)
	if err != nil {
		return Value{}, err
	}
	right, err := e.eval(n.Right)
	if err != nil {
		return Value{}, err
	}

	switch n.Op {
	case "+", "-", "*", "/":
		return e.arithmetic(n, left, right)
	case "==", "!=", "<", "<=", ">", ">=":
		ok, err := compare(n.Op, left, right)
		if err != nil {
			return Value{}, newError(ErrTypeMismatch, e.src, n.Pos, "%v", err)
		}
		return Bool(ok), nil
	}
	return Value{}, newError(ErrSyntax, e.src, n.Pos, "unknown operator %s", n.Op)
}

func (e *evaluator) arithmetic(n *Binary, left, right Value) (Value, error) {
	if left.kind != KindNumber || right.kind != KindNumber {
		return Value{}, newError(ErrTypeMismatch, e.src, n.Pos, "operator %s needs numbers, got %v and %v", n.Op, left.kind, right.kind)
	}
	a, b := left.number, right.number
	switch n.Op {
	case "+":
		return Number(a.Add(b)), nil
	case "-":
		return Number(a.Sub(b)), nil
	case "*":
		return Number(a.Mul(b)), nil
	default:
		if b.IsZero() {
			return Value{}, newError(ErrDivisionByZero, e.src, n.Pos, "divisor %s evaluates to zero", e.src[n.Right.span().Start:n.Right.span().End])
		}
		return Number(a.DivRound(b, DivisionPrecision)), nil
	}
}

// Compare applies a comparison operator to two values of the same kind.
// Ordering is defined for numbers, strings and dates; booleans support only == and !=.
func Compare(op string, left, right Value) (bool, error) {
	ok, err := compare(op, left, right)
	if err != nil {
		return false, &Error{
			Err:  ErrTypeMismatch,
			Expr: left.String() + " " + op + " " + right.String(),
			Msg:  err.Error(),
		}
	}
	return ok, nil
}

type compareError struct {
	msg string
}

func (c *compareError) Error() string { return c.msg }

func compare(op string, left, right Value) (bool, error) {
	if left.kind != right.kind {
		return false, &compareError{"cannot compare " + left.kind.String() + " with " + right.kind.String()}
	}

	var cmp int
	switch left.kind {
	case KindNumber:
		cmp = left.number.Cmp(right.number)
	case KindString:
		switch {
		case left.str < right.str:
			cmp = -1
		case left.str > right.str:
			cmp = 1
		}
	case KindDate:
		cmp = left.date.Compare(right.date)
	case KindBool:
		switch op {
		case "==":
			return left.boolean == right.boolean, nil
		case "!=":
			return left.boolean != right.boolean, nil
		}
		return false, &compareError{"operator " + op + " is not defined for booleans"}
	}

	switch op {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, &compareError{"unknown comparison operator " + op}
}

// NumberResult evaluates the program and requires a numeric result
func (p *Program) NumberResult(env Env) (decimal.Decimal, error) {
	v, err := p.Eval(env)
	if err != nil {
		return decimal.Zero, err
	}
	n, err := v.AsNumber()
	if err != nil {
		return decimal.Zero, newError(ErrTypeMismatch, p.source, p.root.span(), "expression must produce a number, got %v", v.kind)
	}
	return n, nil
}
