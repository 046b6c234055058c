package logic

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNull
	tokAnd
	tokOr
	tokNot
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return "'" + t.text + "'"
	}
}

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"true":  tokTrue,
	"false": tokFalse,
	"null":  tokNull,
	"nil":   tokNull,
}

func lex(input string) ([]token, error) {
	var tokens []token
	i := 0

	emit := func(kind tokenKind, start, end int) {
		tokens = append(tokens, token{kind: kind, text: input[start:end], pos: start})
	}

	for i < len(input) {
		ch := input[i]
		start := i

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			i++
			emit(tokLParen, start, i)
		case ch == ')':
			i++
			emit(tokRParen, start, i)
		case ch == ',':
			i++
			emit(tokComma, start, i)
		case ch == '!':
			i++
			if i < len(input) && input[i] == '=' {
				i++
				emit(tokNeq, start, i)
				continue
			}
			emit(tokNot, start, i)
		case ch == '=':
			if i+1 >= len(input) || input[i+1] != '=' {
				return nil, parseErr(start, "unexpected '='; use '=='")
			}
			i += 2
			emit(tokEq, start, i)
		case ch == '&':
			if i+1 >= len(input) || input[i+1] != '&' {
				return nil, parseErr(start, "unexpected '&'; use '&&'")
			}
			i += 2
			emit(tokAnd, start, i)
		case ch == '|':
			if i+1 >= len(input) || input[i+1] != '|' {
				return nil, parseErr(start, "unexpected '|'; use '||'")
			}
			i += 2
			emit(tokOr, start, i)
		case ch == '<' || ch == '>':
			i++
			kind := tokLt
			if ch == '>' {
				kind = tokGt
			}
			if i < len(input) && input[i] == '=' {
				i++
				kind++
			}
			emit(kind, start, i)
		case ch == '"' || ch == '\'':
			value, end, err := lexString(input, start)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: value, pos: start})
			i = end
		case isDigit(ch) || (ch == '-' && i+1 < len(input) && isDigit(input[i+1])):
			i++
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			raw := input[start:i]
			num, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, parseErr(start, "invalid number %q", raw)
			}
			tokens = append(tokens, token{kind: tokNumber, text: raw, num: num, pos: start})
		case isIdentStart(ch):
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			raw := input[start:i]
			if kind, ok := keywords[strings.ToLower(raw)]; ok {
				emit(kind, start, i)
				continue
			}
			if strings.HasSuffix(raw, ".") || strings.Contains(raw, "..") {
				return nil, parseErr(start, "invalid identifier %q", raw)
			}
			emit(tokIdent, start, i)
		default:
			r, _ := utf8.DecodeRuneInString(input[i:])
			return nil, parseErr(start, "unexpected character %q", r)
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: len(input)})
	return tokens, nil
}

// lexString scans a quoted literal starting at input[start] and returns the
// unescaped value and the offset just past the closing quote.
func lexString(input string, start int) (string, int, error) {
	quote := input[start]
	var b strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\':
			if i+1 >= len(input) {
				return "", 0, parseErr(i, "unterminated escape sequence")
			}
			switch esc := input[i+1]; esc {
			case '\\', '"', '\'':
				b.WriteByte(esc)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				return "", 0, parseErr(i, "unknown escape sequence \\%c", esc)
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, parseErr(start, "unterminated string literal")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}
