package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// End is the implicit terminal node.
const End = "end"

// Node is one named stage. Run mutates the state in place. When Run fails,
// the orchestrator calls Fallback to leave the state in the stage's safe
// default before moving on.
type Node interface {
	Name() string
	Run(ctx context.Context, st *State) error
	Fallback(st *State)
}

type Predicate func(*State) bool

type transition struct {
	to        string
	when      Predicate
	otherwise string
}

// Graph is a small directed acyclic graph of stages. Each node has at most
// one outgoing transition: unconditional, or a two-way branch.
type Graph struct {
	name  string
	entry string
	nodes map[string]Node
	order []string
	edges map[string]transition
	err   error
}

func NewGraph(name string) *Graph {
	return &Graph{
		name:  name,
		nodes: make(map[string]Node),
		edges: make(map[string]transition),
	}
}

func (g *Graph) Name() string { return g.name }

// AddNode registers n. The first node added becomes the entry.
func (g *Graph) AddNode(n Node) *Graph {
	name := n.Name()
	if name == "" || name == End {
		g.err = errors.Join(g.err, fmt.Errorf("invalid node name %q", name))
		return g
	}
	if _, dup := g.nodes[name]; dup {
		g.err = errors.Join(g.err, fmt.Errorf("duplicate node %q", name))
		return g
	}
	g.nodes[name] = n
	g.order = append(g.order, name)
	if g.entry == "" {
		g.entry = name
	}
	return g
}

func (g *Graph) Edge(from, to string) *Graph {
	return g.setTransition(from, transition{to: to})
}

// Branch routes to ifTrue when when(state) holds after from ran, otherwise
// to ifFalse.
func (g *Graph) Branch(from string, when Predicate, ifTrue, ifFalse string) *Graph {
	if when == nil {
		g.err = errors.Join(g.err, fmt.Errorf("branch from %q has no predicate", from))
		return g
	}
	return g.setTransition(from, transition{to: ifTrue, when: when, otherwise: ifFalse})
}

func (g *Graph) setTransition(from string, t transition) *Graph {
	if _, dup := g.edges[from]; dup {
		g.err = errors.Join(g.err, fmt.Errorf("node %q already has an outgoing edge", from))
		return g
	}
	g.edges[from] = t
	return g
}

// Nodes returns node names in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Validate checks that every edge endpoint exists and that the graph is
// acyclic.
func (g *Graph) Validate() error {
	if g.err != nil {
		return fmt.Errorf("graph %s: %w", g.name, g.err)
	}
	if g.entry == "" {
		return fmt.Errorf("graph %s: no nodes", g.name)
	}
	known := func(n string) bool {
		_, ok := g.nodes[n]
		return ok || n == End
	}
	for from, t := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("graph %s: edge from unknown node %q", g.name, from)
		}
		if !known(t.to) {
			return fmt.Errorf("graph %s: edge %s -> unknown node %q", g.name, from, t.to)
		}
		if t.when != nil && !known(t.otherwise) {
			return fmt.Errorf("graph %s: branch %s -> unknown node %q", g.name, from, t.otherwise)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	mark := make(map[string]int, len(g.nodes))
	var visit func(n string) error
	visit = func(n string) error {
		if n == End {
			return nil
		}
		switch mark[n] {
		case visiting:
			return fmt.Errorf("graph %s: cycle through %q", g.name, n)
		case done:
			return nil
		}
		mark[n] = visiting
		if t, ok := g.edges[n]; ok {
			if err := visit(t.to); err != nil {
				return err
			}
			if t.when != nil {
				if err := visit(t.otherwise); err != nil {
					return err
				}
			}
		}
		mark[n] = done
		return nil
	}
	for _, n := range g.order {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) next(from string, st *State) string {
	t, ok := g.edges[from]
	if !ok {
		return End
	}
	if t.when == nil || t.when(st) {
		return t.to
	}
	return t.otherwise
}
