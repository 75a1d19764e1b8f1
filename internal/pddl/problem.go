package pddl

import (
	"fmt"
	"sort"
	"strings"

	"plansynth/internal/types"
)

// Kind identifies the domain family a problem belongs to.
type Kind string

const (
	KindBlocks    Kind = "blocksworld"
	KindLogistics Kind = "logistics"
)

// Problem is the fact-level content of a PDDL problem file.
type Problem struct {
	Name   string
	Domain string
	// Objects maps each declared object to its type ("" when untyped).
	Objects map[string]string
	Init    []types.Fact
	Goal    []types.Fact
}

// ObjectNames returns the declared objects in sorted order.
func (p *Problem) ObjectNames() []string {
	names := make([]string, 0, len(p.Objects))
	for n := range p.Objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Kind resolves the domain family from the domain name, falling back to the
// predicates used in the initial state.
func (p *Problem) Kind() (Kind, error) {
	d := p.Domain
	switch {
	case strings.Contains(d, "logistics"):
		return KindLogistics, nil
	case strings.Contains(d, "blocks") || strings.HasPrefix(d, "bw"):
		return KindBlocks, nil
	}
	for _, f := range p.Init {
		switch f.Predicate {
		case "on-table", "arm-empty", "handempty", "holding":
			return KindBlocks, nil
		case "in-city", "airport":
			return KindLogistics, nil
		}
	}
	return "", &types.ParseError{Msg: fmt.Sprintf("cannot determine domain family of problem %q (domain %q)", p.Name, p.Domain)}
}

// ParseProblem parses a PDDL problem definition.
func ParseProblem(src string) (*Problem, error) {
	root, err := ParseSExpr(src)
	if err != nil {
		return nil, err
	}
	if root.Head() != "define" {
		return nil, errorAt(root.Tok, "expected (define ...)")
	}

	p := &Problem{Objects: make(map[string]string)}
	var sawInit, sawGoal bool
	for _, section := range root.List[1:] {
		if !section.IsList {
			return nil, errorAt(section.Tok, fmt.Sprintf("unexpected symbol %q in define", section.Symbol))
		}
		switch section.Head() {
		case "problem":
			if len(section.List) != 2 || section.List[1].IsList {
				return nil, errorAt(section.Tok, "malformed (problem NAME)")
			}
			p.Name = section.List[1].Symbol
		case ":domain":
			if len(section.List) != 2 || section.List[1].IsList {
				return nil, errorAt(section.Tok, "malformed (:domain NAME)")
			}
			p.Domain = section.List[1].Symbol
		case ":objects":
			if err := parseObjects(section.List[1:], p.Objects); err != nil {
				return nil, err
			}
		case ":init":
			sawInit = true
			for _, n := range section.List[1:] {
				if n.IsList && n.Head() == "=" {
					// numeric fluents such as (= (total-cost) 0) carry no state
					continue
				}
				f, err := parseFact(n)
				if err != nil {
					return nil, err
				}
				p.Init = append(p.Init, f)
			}
		case ":goal":
			sawGoal = true
			if len(section.List) != 2 {
				return nil, errorAt(section.Tok, "(:goal ...) must hold exactly one formula")
			}
			goal, err := parseGoal(section.List[1])
			if err != nil {
				return nil, err
			}
			p.Goal = goal
		case ":requirements", ":metric":
		default:
			return nil, errorAt(section.Tok, fmt.Sprintf("unknown section %q", section.Head()))
		}
	}

	if !sawInit {
		return nil, errorAt(root.Tok, "missing :init section")
	}
	if !sawGoal {
		return nil, errorAt(root.Tok, "missing :goal section")
	}
	return p, nil
}

// parseObjects reads "a b - type c" style declarations.
func parseObjects(nodes []*Node, into map[string]string) error {
	var pending []string
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if n.IsList {
			return errorAt(n.Tok, "unexpected list in :objects")
		}
		if n.Symbol == "-" {
			if i+1 >= len(nodes) || nodes[i+1].IsList {
				return errorAt(n.Tok, "missing type after '-'")
			}
			typ := nodes[i+1].Symbol
			for _, name := range pending {
				into[name] = typ
			}
			pending = pending[:0]
			i++
			continue
		}
		pending = append(pending, n.Symbol)
	}
	for _, name := range pending {
		into[name] = ""
	}
	return nil
}

func parseGoal(n *Node) ([]types.Fact, error) {
	if n.Head() != "and" {
		f, err := parseFact(n)
		if err != nil {
			return nil, err
		}
		return []types.Fact{f}, nil
	}
	facts := make([]types.Fact, 0, len(n.List)-1)
	for _, c := range n.List[1:] {
		f, err := parseFact(c)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}

func parseFact(n *Node) (types.Fact, error) {
	if !n.IsList || len(n.List) == 0 {
		return types.Fact{}, errorAt(n.Tok, "expected a parenthesized fact")
	}
	args := make([]string, 0, len(n.List)-1)
	for _, c := range n.List {
		if c.IsList {
			return types.Fact{}, errorAt(c.Tok, fmt.Sprintf("nested expression in fact %s", n))
		}
	}
	for _, c := range n.List[1:] {
		args = append(args, c.Symbol)
	}
	return types.Fact{Predicate: n.List[0].Symbol, Args: args}, nil
}
