// Package pddl extracts typed facts from PDDL problem descriptions.
//
// The text is tokenized once and parsed by a small recursive-descent parser
// into s-expressions; the problem structure is then read off the tree. All
// malformed input fails at this single boundary with a *types.ParseError.
package pddl

import (
	"strings"

	"plansynth/internal/types"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenLParen
	TokenRParen
	TokenSymbol
)

func (k TokenKind) String() string {
	switch k {
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenSymbol:
		return "symbol"
	default:
		return "end of input"
	}
}

// Token is one lexical unit with its source position (1-based).
type Token struct {
	Kind TokenKind
	Text string
	Line int
	Col  int
}

// Lex splits src into tokens. Symbols are lower-cased; ';' starts a comment
// that runs to the end of the line.
func Lex(src string) []Token {
	var tokens []Token
	line, col := 1, 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			col = 1
			i++
		case c == ' ' || c == '\t' || c == '\r':
			col++
			i++
		case c == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Line: line, Col: col})
			col++
			i++
		case c == ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Line: line, Col: col})
			col++
			i++
		default:
			start, startCol := i, col
			for i < len(src) && !isDelimiter(src[i]) {
				i++
				col++
			}
			tokens = append(tokens, Token{
				Kind: TokenSymbol,
				Text: strings.ToLower(src[start:i]),
				Line: line,
				Col:  startCol,
			})
		}
	}
	return append(tokens, Token{Kind: TokenEOF, Line: line, Col: col})
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', ';', ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

func errorAt(tok Token, msg string) *types.ParseError {
	return &types.ParseError{Line: tok.Line, Col: tok.Col, Msg: msg}
}
