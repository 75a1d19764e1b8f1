package pddl

import (
	"fmt"
	"strings"
)

// Node is an s-expression: either a symbol or a parenthesized list.
type Node struct {
	Symbol string
	List   []*Node
	IsList bool
	Tok    Token
}

// Head returns the first symbol of a list node, or "".
func (n *Node) Head() string {
	if !n.IsList || len(n.List) == 0 || n.List[0].IsList {
		return ""
	}
	return n.List[0].Symbol
}

func (n *Node) String() string {
	if !n.IsList {
		return n.Symbol
	}
	parts := make([]string, len(n.List))
	for i, c := range n.List {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token { return p.tokens[p.pos] }

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Kind != TokenEOF {
		p.pos++
	}
	return t
}

// ParseSExpr parses exactly one s-expression from src.
func ParseSExpr(src string) (*Node, error) {
	p := &parser{tokens: Lex(src)}
	n, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind != TokenEOF {
		return nil, errorAt(t, fmt.Sprintf("unexpected %s %q after top-level expression", t.Kind, t.Text))
	}
	return n, nil
}

func (p *parser) parseNode() (*Node, error) {
	t := p.next()
	switch t.Kind {
	case TokenSymbol:
		return &Node{Symbol: t.Text, Tok: t}, nil
	case TokenLParen:
		n := &Node{IsList: true, Tok: t}
		for {
			switch p.peek().Kind {
			case TokenRParen:
				p.next()
				return n, nil
			case TokenEOF:
				return nil, errorAt(t, "unbalanced parenthesis")
			}
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			n.List = append(n.List, child)
		}
	case TokenRParen:
		return nil, errorAt(t, "unexpected ')'")
	default:
		return nil, errorAt(t, "unexpected end of input")
	}
}
