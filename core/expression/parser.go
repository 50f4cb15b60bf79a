package expression

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	// MaxSourceLength bounds the size of a stored expression
	MaxSourceLength = 4096

	// MaxDepth bounds operator nesting
	MaxDepth = 64
)

// Span is a byte range in the expression source
type Span struct {
	Start int
	End   int
}

// Node is an AST node
type Node interface {
	span() Span
}

// Literal is a constant number, boolean or string
type Literal struct {
	Value Value
	Pos   Span
}

// Ident references a named parameter
type Ident struct {
	Name string
	Pos  Span
}

// Unary is "!x" or "-x"
type Unary struct {
	Op      string
	Operand Node
	Pos     Span
}

// Binary is an arithmetic, comparison or boolean operation
type Binary struct {
	Op    string
	Left  Node
	Right Node
	Pos   Span
}

// Ternary is "cond ? then : else"
type Ternary struct {
	Cond Node
	Then Node
	Else Node
	Pos  Span
}

func (n *Literal) span() Span { return n.Pos }
func (n *Ident) span() Span   { return n.Pos }
func (n *Unary) span() Span   { return n.Pos }
func (n *Binary) span() Span  { return n.Pos }
func (n *Ternary) span() Span { return n.Pos }

// Program is a parsed expression, safe for concurrent evaluation
type Program struct {
	source string
	root   Node
	idents []string
}

// Source returns the original expression text
func (p *Program) Source() string {
	return p.source
}

// Identifiers returns the sorted, de-duplicated names the expression references
func (p *Program) Identifiers() []string {
	out := make([]string, len(p.idents))
	copy(out, p.idents)
	return out
}

// Parse compiles src into a Program
func Parse(src string) (*Program, error) {
	if len(src) > MaxSourceLength {
		return nil, newError(ErrSyntax, src, Span{0, 0}, "expression longer than %d bytes", MaxSourceLength)
	}
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, tokens: tokens, seen: make(map[string]bool)}
	if p.peek().kind == tokEOF {
		return nil, newError(ErrSyntax, src, Span{0, len(src)}, "empty expression")
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, newError(ErrSyntax, src, tok.span, "unexpected %s", tok.kind)
	}

	idents := make([]string, 0, len(p.seen))
	for name := range p.seen {
		idents = append(idents, name)
	}
	sort.Strings(idents)

	return &Program{source: src, root: root, idents: idents}, nil
}

// MustParse is Parse for expressions known to be valid at compile time
func MustParse(src string) *Program {
	p, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return p
}

type parser struct {
	src    string
	tokens []token
	pos    int
	depth  int
	seen   map[string]bool
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) enter(at Span) error {
	p.depth++
	if p.depth > MaxDepth {
		return newError(ErrSyntax, p.src, at, "expression nested deeper than %d", MaxDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseExpr() (Node, error) {
	return p.parseTernary()
}

func (p *parser) parseTernary() (Node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokQuestion {
		return cond, nil
	}
	q := p.next()
	if err := p.enter(q.span); err != nil {
		return nil, err
	}
	defer p.leave()

	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokColon {
		return nil, newError(ErrSyntax, p.src, tok.span, "expected ':' in conditional, found %s", tok.kind)
	}
	p.next()
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &Ternary{Cond: cond, Then: then, Else: els, Pos: Span{cond.span().Start, els.span().End}}, nil
}

// binaryLevel parses a left-associative chain of operators at one precedence level
func (p *parser) binaryLevel(operand func() (Node, error), ops ...tokenKind) (Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if !containsKind(ops, tok.kind) {
			return left, nil
		}
		p.next()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.kind.String(), Left: left, Right: right, Pos: Span{left.span().Start, right.span().End}}
	}
}

func (p *parser) parseOr() (Node, error) {
	return p.binaryLevel(p.parseAnd, tokOr)
}

func (p *parser) parseAnd() (Node, error) {
	return p.binaryLevel(p.parseEquality, tokAnd)
}

func (p *parser) parseEquality() (Node, error) {
	return p.binaryLevel(p.parseComparison, tokEq, tokNeq)
}

func (p *parser) parseComparison() (Node, error) {
	return p.binaryLevel(p.parseAdditive, tokLt, tokLte, tokGt, tokGte)
}

func (p *parser) parseAdditive() (Node, error) {
	return p.binaryLevel(p.parseMultiplicative, tokPlus, tokMinus)
}

func (p *parser) parseMultiplicative() (Node, error) {
	return p.binaryLevel(p.parseUnary, tokStar, tokSlash)
}

func (p *parser) parseUnary() (Node, error) {
	tok := p.peek()
	if tok.kind != tokNot && tok.kind != tokMinus {
		return p.parsePrimary()
	}
	p.next()
	if err := p.enter(tok.span); err != nil {
		return nil, err
	}
	defer p.leave()

	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Unary{Op: tok.kind.String(), Operand: operand, Pos: Span{tok.span.Start, operand.span().End}}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		d, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, newError(ErrSyntax, p.src, tok.span, "invalid number: %v", err)
		}
		return &Literal{Value: Number(d), Pos: tok.span}, nil
	case tokString:
		return &Literal{Value: String(tok.text), Pos: tok.span}, nil
	case tokTrue:
		return &Literal{Value: Bool(true), Pos: tok.span}, nil
	case tokFalse:
		return &Literal{Value: Bool(false), Pos: tok.span}, nil
	case tokIdent:
		p.seen[tok.text] = true
		return &Ident{Name: tok.text, Pos: tok.span}, nil
	case tokLParen:
		if err := p.enter(tok.span); err != nil {
			return nil, err
		}
		defer p.leave()

		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokRParen {
			return nil, newError(ErrSyntax, p.src, closing.span, "expected ')', found %s", closing.kind)
		}
		return widen(inner, Span{tok.span.Start, closing.span.End}), nil
	default:
		return nil, newError(ErrSyntax, p.src, tok.span, "unexpected %s", tok.kind)
	}
}

// widen stretches a parenthesized node's span over its parentheses
func widen(n Node, s Span) Node {
	switch n := n.(type) {
	case *Literal:
		n.Pos = s
	case *Ident:
		n.Pos = s
	case *Unary:
		n.Pos = s
	case *Binary:
		n.Pos = s
	case *Ternary:
		n.Pos = s
	}
	return n
}

func containsKind(kinds []tokenKind, k tokenKind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}
