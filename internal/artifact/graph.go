package artifact

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrIllegalDerivation marks a (source, target) pair outside the legality map.
	ErrIllegalDerivation = errors.New("illegal derivation")
	// ErrInvalidEdge marks an edge that would break the artifact DAG.
	ErrInvalidEdge = errors.New("invalid artifact edge")
)

// GraphError wraps deterministic legality and DAG validation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

// Graph is an immutable adjacency map from an artifact type to the set of
// target types it may produce. Build one with NewGraph; there are no
// mutating methods.
type Graph struct {
	adj map[Type][]Type
}

// NewGraph copies adjacency into a Graph. Target lists are de-duplicated and
// sorted. Edges into the root type are rejected.
func NewGraph(adjacency map[Type][]Type) (Graph, error) {
	adj := make(map[Type][]Type, len(adjacency))
	for src, targets := range adjacency {
		if !src.Valid() {
			return Graph{}, fmt.Errorf("legality map: unknown source type %q", src)
		}
		list := make([]Type, 0, len(targets))
		for _, tgt := range targets {
			if tgt == TypeKnowledgeCore {
				return Graph{}, fmt.Errorf("legality map: %s may not target %s", src, tgt)
			}
			if !tgt.IsGenerated() {
				return Graph{}, fmt.Errorf("legality map: %q is not a generated type", tgt)
			}
			if !slices.Contains(list, tgt) {
				list = append(list, tgt)
			}
		}
		slices.Sort(list)
		adj[src] = list
	}
	return Graph{adj: adj}, nil
}

// MustGraph is NewGraph for package-level tables.
func MustGraph(adjacency map[Type][]Type) Graph {
	g, err := NewGraph(adjacency)
	if err != nil {
		panic(err)
	}
	return g
}

// AllowedGenerations is the single source of truth for derivation legality:
// the knowledge core feeds every generated type, and generated types convert
// into each other but never into themselves. Ingested sources derive nothing
// directly.
var AllowedGenerations = MustGraph(map[Type][]Type{
	TypeKnowledgeCore: {TypeQuiz, TypeExam, TypeNotes, TypeSlides, TypeFlashcards},
	TypeQuiz:          {TypeExam, TypeNotes, TypeSlides, TypeFlashcards},
	TypeExam:          {TypeQuiz, TypeNotes, TypeSlides, TypeFlashcards},
	TypeNotes:         {TypeQuiz, TypeExam, TypeSlides, TypeFlashcards},
	TypeSlides:        {TypeQuiz, TypeExam, TypeNotes, TypeFlashcards},
	TypeFlashcards:    {TypeQuiz, TypeExam, TypeNotes, TypeSlides},
})

// Allows reports whether target may be derived from source.
func (g Graph) Allows(source, target Type) bool {
	return slices.Contains(g.adj[source], target)
}

// Targets returns a copy of the legal targets for source.
func (g Graph) Targets(source Type) []Type {
	return slices.Clone(g.adj[source])
}

// Sources returns every type that appears as a key, sorted.
func (g Graph) Sources() []Type {
	out := make([]Type, 0, len(g.adj))
	for src := range g.adj {
		out = append(out, src)
	}
	slices.Sort(out)
	return out
}

// Check returns a GraphError when source may not produce target.
func (g Graph) Check(source, target Type) error {
	targets, ok := g.adj[source]
	if !ok {
		return &GraphError{Kind: ErrIllegalDerivation, Msg: fmt.Sprintf("%s artifacts cannot be used as a generation source", source)}
	}
	if !slices.Contains(targets, target) {
		return &GraphError{Kind: ErrIllegalDerivation, Msg: fmt.Sprintf("%s cannot be derived from %s (allowed: %s)", target, source, joinTypes(targets))}
	}
	return nil
}

// ValidateEdges checks a bundle's proposed edges against the DAG rules:
// every child is one of the bundle's new artifacts, no edge targets the root
// type, parent and child differ, the relationship is derived_from, every
// pair is legal in g, and bundle-internal edges form no cycle. typeOf
// resolves parent types that live outside the bundle.
func (g Graph) ValidateEdges(created []Artifact, edges []Edge, typeOf func(id string) (Type, bool)) error {
	inBundle := make(map[string]Type, len(created))
	for _, a := range created {
		inBundle[a.ID] = a.Type
	}
	lookup := func(id string) (Type, bool) {
		if t, ok := inBundle[id]; ok {
			return t, true
		}
		if typeOf == nil {
			return "", false
		}
		return typeOf(id)
	}
	internal := make(map[string][]string)
	for i, e := range edges {
		childType, ok := inBundle[e.ChildID]
		switch {
		case e.ParentID == "" || e.ChildID == "":
			return edgeErr(i, "parent and child ids are required")
		case e.ParentID == e.ChildID:
			return edgeErr(i, "artifact %s cannot derive from itself", e.ChildID)
		case e.Relationship != RelationDerivedFrom:
			return edgeErr(i, "unsupported relationship %q", e.Relationship)
		case !ok:
			return edgeErr(i, "child %s is not part of the bundle", e.ChildID)
		case childType == TypeKnowledgeCore:
			return edgeErr(i, "%s artifacts must have no parents", TypeKnowledgeCore)
		}
		parentType, ok := lookup(e.ParentID)
		if !ok {
			return edgeErr(i, "parent %s does not exist", e.ParentID)
		}
		if !g.Allows(parentType, childType) {
			return edgeErr(i, "%s cannot be derived from %s", childType, parentType)
		}
		if _, ok := inBundle[e.ParentID]; ok {
			internal[e.ParentID] = append(internal[e.ParentID], e.ChildID)
		}
	}
	if path := findCycle(internal); len(path) > 0 {
		return &GraphError{Kind: ErrInvalidEdge, Msg: "cycle: " + strings.Join(path, " -> ")}
	}
	return nil
}

func edgeErr(index int, format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidEdge, Msg: fmt.Sprintf("edges[%d]: ", index) + fmt.Sprintf(format, args...)}
}

func findCycle(adj map[string][]string) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(adj))
	var stack []string
	var visit func(string) []string
	visit = func(node string) []string {
		state[node] = visiting
		stack = append(stack, node)
		for _, next := range adj[node] {
			switch state[next] {
			case visiting:
				start := slices.Index(stack, next)
				return append(slices.Clone(stack[start:]), next)
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}
	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		if state[n] == unvisited {
			if cycle := visit(n); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func joinTypes(types []Type) string {
	if len(types) == 0 {
		return "none"
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
