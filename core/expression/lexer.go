package expression

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokTrue
	tokFalse
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokAnd
	tokOr
	tokNot
	tokQuestion
	tokColon
	tokLParen
	tokRParen
)

var tokenText = map[tokenKind]string{
	tokEOF:      "end of expression",
	tokNumber:   "number",
	tokString:   "string",
	tokIdent:    "identifier",
	tokTrue:     "true",
	tokFalse:    "false",
	tokPlus:     "+",
	tokMinus:    "-",
	tokStar:     "*",
	tokSlash:    "/",
	tokEq:       "==",
	tokNeq:      "!=",
	tokLt:       "<",
	tokLte:      "<=",
	tokGt:       ">",
	tokGte:      ">=",
	tokAnd:      "&&",
	tokOr:       "||",
	tokNot:      "!",
	tokQuestion: "?",
	tokColon:    ":",
	tokLParen:   "(",
	tokRParen:   ")",
}

func (k tokenKind) String() string {
	return tokenText[k]
}

type token struct {
	kind tokenKind
	// text is the literal text; for strings the unescaped content
	text string
	span Span
}

// lex splits src into tokens. It stops at the first invalid character.
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' {
				i++
				if i >= len(src) || !isDigit(src[i]) {
					return nil, newError(ErrSyntax, src, Span{start, i}, "expected digit after decimal point")
				}
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[start:i], span: Span{start, i}})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			word := src[start:i]
			kind := tokIdent
			switch word {
			case "true":
				kind = tokTrue
			case "false":
				kind = tokFalse
			}
			tokens = append(tokens, token{kind: kind, text: word, span: Span{start, i}})
		case c == '"' || c == '\'':
			tok, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		default:
			kind, width := lexOperator(src, i)
			if width == 0 {
				return nil, newError(ErrSyntax, src, Span{i, i + 1}, "unexpected character %q", c)
			}
			tokens = append(tokens, token{kind: kind, text: src[i : i+width], span: Span{i, i + width}})
			i += width
		}
	}
	tokens = append(tokens, token{kind: tokEOF, span: Span{len(src), len(src)}})
	return tokens, nil
}

func lexString(src string, start int) (token, int, error) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\\':
			if i+1 >= len(src) {
				return token{}, 0, newError(ErrSyntax, src, Span{start, len(src)}, "unterminated escape")
			}
			switch esc := src[i+1]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '"', '\'':
				b.WriteByte(esc)
			default:
				return token{}, 0, newError(ErrSyntax, src, Span{i, i + 2}, "unknown escape \\%c", esc)
			}
			i += 2
		case c == quote:
			return token{kind: tokString, text: b.String(), span: Span{start, i + 1}}, i + 1, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return token{}, 0, newError(ErrSyntax, src, Span{start, len(src)}, "unterminated string")
}

func lexOperator(src string, i int) (tokenKind, int) {
	two := ""
	if i+1 < len(src) {
		two = src[i : i+2]
	}
	switch two {
	case "==":
		return tokEq, 2
	case "!=":
		return tokNeq, 2
	case "<=":
		return tokLte, 2
	case ">=":
		return tokGte, 2
	case "&&":
		return tokAnd, 2
	case "||":
		return tokOr, 2
	}
	switch src[i] {
	case '+':
		return tokPlus, 1
	case '-':
		return tokMinus, 1
	case '*':
		return tokStar, 1
	case '/':
		return tokSlash, 1
	case '<':
		return tokLt, 1
	case '>':
		return tokGt, 1
	case '!':
		return tokNot, 1
	case '?':
		return tokQuestion, 1
	case ':':
		return tokColon, 1
	case '(':
		return tokLParen, 1
	case ')':
		return tokRParen, 1
	}
	return tokEOF, 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
