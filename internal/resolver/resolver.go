package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codewithboateng/riskrule/internal/model"
)

// Graph is the resolved dependency view of a rule model. Nodes appear in
// document order; inline sub-evaluations are materialized as synthesized
// nodes named after their parent ("parent#0", "parent#1", ...).
type Graph struct {
	Nodes []string

	kinds map[string]model.Kind
	index map[string]int // node name -> position in Nodes
	adj   map[string][]string
	order []string
	depth int
}

// Kind returns the evaluation kind of a node, or "" for an unknown name.
func (g *Graph) Kind(name string) model.Kind { return g.kinds[name] }

// DependsOn returns the direct dependencies of a node in document order.
func (g *Graph) DependsOn(name string) []string { return g.adj[name] }

// Adjacency returns a copy of the full edge map.
func (g *Graph) Adjacency() map[string][]string {
	out := make(map[string][]string, len(g.adj))
	for k, v := range g.adj {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// TopoOrder returns a dependency-first evaluation order. Nodes that are
// caught in a cycle are omitted. Ties break on document order, so the
// result is stable across runs.
func (g *Graph) TopoOrder() []string { return g.order }

// MaxDepth is the length in edges of the longest dependency chain.
func (g *Graph) MaxDepth() int { return g.depth }

// EdgeCount totals the direct dependencies across all nodes.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, deps := range g.adj {
		n += len(deps)
	}
	return n
}

// Resolve builds the dependency graph for a parsed model and reports
// every missing reference and cycle it finds. The graph is usable even
// when errors are returned: edges to unknown names are dropped, and
// cyclic nodes are excluded from the topological order.
func Resolve(m *model.RuleModel) (*Graph, []error) {
	r := &resolver{
		g: &Graph{
			kinds: make(map[string]model.Kind),
			index: make(map[string]int),
			adj:   make(map[string][]string),
		},
	}

	// First pass registers every node, synthesized inline nodes included,
	// so forward references resolve.
	for _, ev := range m.Evaluations {
		r.registerTree(ev, ev.EvalName())
	}
	// Second pass wires edges.
	for _, ev := range m.Evaluations {
		r.collectEdges(ev, ev.EvalName())
	}

	r.detectCycles()
	r.g.order = r.topoSort()
	r.g.depth = r.longestChain()
	return r.g, r.errs
}

type resolver struct {
	g    *Graph
	errs []error
}

func (r *resolver) addNode(name string, kind model.Kind) {
	if _, ok := r.g.index[name]; ok {
		return // duplicate names are the validator's problem
	}
	r.g.index[name] = len(r.g.Nodes)
	r.g.Nodes = append(r.g.Nodes, name)
	r.g.kinds[name] = kind
}

// registerTree adds ev and every inline descendant under synthesized
// names derived from the parent.
func (r *resolver) registerTree(ev model.Evaluation, name string) {
	r.addNode(name, ev.EvalKind())
	n := 0
	synth := func(child model.Evaluation) string {
		s := fmt.Sprintf("%s#%d", name, n)
		n++
		r.registerTree(child, s)
		return s
	}
	switch e := ev.(type) {
	case *model.Logical:
		for _, op := range e.Operands {
			if op.Inline != nil {
				synth(op.Inline)
			}
		}
	case *model.Conditional:
		if e.If.Inline != nil {
			synth(e.If.Inline)
		}
		if e.Then.Inline != nil {
			synth(e.Then.Inline)
		}
		if e.Else.Inline != nil {
			synth(e.Else.Inline)
		}
	}
}

func (r *resolver) addEdge(from, to string) {
	if _, ok := r.g.index[to]; !ok {
		r.errs = append(r.errs, &MissingReference{From: from, To: to})
		return
	}
	for _, d := range r.g.adj[from] {
		if d == to {
			return
		}
	}
	r.g.adj[from] = append(r.g.adj[from], to)
}

// collectEdges wires the dependencies of one node. Inline descendants are
// walked under the same synthesized names the registration pass assigned.
func (r *resolver) collectEdges(ev model.Evaluation, name string) {
	n := 0
	synth := func(child model.Evaluation) {
		s := fmt.Sprintf("%s#%d", name, n)
		n++
		r.addEdge(name, s)
		r.collectEdges(child, s)
	}

	switch e := ev.(type) {
	case *model.Comparison:
		r.markerEdges(name, e.Left)
		r.valueMarkerEdges(name, e.Right)
	case *model.TimeBased:
		r.markerEdges(name, e.Left)
		r.valueMarkerEdges(name, e.Right)
	case *model.Aggregation:
		r.markerEdges(name, e.Field)
		for _, c := range e.Conditions {
			r.markerEdges(name, c.Left)
			r.valueMarkerEdges(name, c.Right)
		}
	case *model.Logical:
		for _, op := range e.Operands {
			if op.Inline != nil {
				synth(op.Inline)
			} else {
				// Bare operand names are always references.
				r.addEdge(name, op.Ref)
			}
		}
	case *model.Conditional:
		if e.If.Inline != nil {
			synth(e.If.Inline)
		} else if e.If.Ref != "" {
			r.addEdge(name, e.If.Ref)
		}
		r.branchEdges(name, e.Then, synth)
		r.branchEdges(name, e.Else, synth)
	}
}

func (r *resolver) branchEdges(from string, b model.Branch, synth func(model.Evaluation)) {
	switch {
	case b.Inline != nil:
		synth(b.Inline)
	case b.Ref != "":
		r.addEdge(from, b.Ref)
	case b.Literal != nil && b.Literal.IsString():
		// A string branch is a reference when marked with @ or when it
		// names an existing evaluation; otherwise it stays a literal.
		if ref, ok := refMarker(b.Literal.Str); ok {
			r.addEdge(from, ref)
		} else if _, known := r.g.index[b.Literal.Str]; known {
			r.addEdge(from, b.Literal.Str)
		}
	}
}

// markerEdges adds an edge when s is an @-marked reference.
func (r *resolver) markerEdges(from, s string) {
	if ref, ok := refMarker(s); ok {
		r.addEdge(from, ref)
	}
}

func (r *resolver) valueMarkerEdges(from string, v model.Value) {
	switch v.Kind {
	case model.ValueString:
		r.markerEdges(from, v.Str)
	case model.ValueArray:
		for _, item := range v.Arr {
			r.valueMarkerEdges(from, item)
		}
	}
}

// refMarker recognizes the "@Name" reference form inside string literals.
func refMarker(s string) (string, bool) {
	if strings.HasPrefix(s, "@") && len(s) > 1 {
		return s[1:], true
	}
	return "", false
}

// detectCycles runs a DFS over the edge map keeping the active path, so
// each reported cycle lists its members in traversal order.
func (r *resolver) detectCycles() {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(r.g.Nodes))
	var path []string

	var visit func(n string)
	visit = func(n string) {
		color[n] = gray
		path = append(path, n)
		for _, dep := range r.g.adj[n] {
			switch color[dep] {
			case white:
				visit(dep)
			case gray:
				// Slice the active path from the first occurrence of dep
				// and close the loop.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle := append([]string(nil), path[start:]...)
				cycle = append(cycle, dep)
				r.errs = append(r.errs, &CyclicReference{Cycle: cycle})
			}
		}
		path = path[:len(path)-1]
		color[n] = black
	}

	for _, n := range r.g.Nodes {
		if color[n] == white {
			visit(n)
		}
	}
}

// topoSort produces a dependency-first order via Kahn's algorithm,
// breaking ties on document position.
func (r *resolver) topoSort() []string {
	indeg := make(map[string]int, len(r.g.Nodes))
	dependents := make(map[string][]string, len(r.g.Nodes))
	for _, n := range r.g.Nodes {
		indeg[n] = len(r.g.adj[n])
	}
	for from, deps := range r.g.adj {
		for _, to := range deps {
			dependents[to] = append(dependents[to], from)
		}
	}

	var ready []string
	for _, n := range r.g.Nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]string, 0, len(r.g.Nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return r.g.index[ready[i]] < r.g.index[ready[j]]
		})
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, dep := range dependents[n] {
			indeg[dep]--
			if indeg[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order // cyclic nodes never reach indegree zero and drop out
}

// longestChain measures the deepest dependency path in edges. Nodes on a
// cycle are skipped rather than looped over.
func (r *resolver) longestChain() int {
	memo := make(map[string]int, len(r.g.Nodes))
	active := make(map[string]bool)

	var depth func(n string) int
	depth = func(n string) int {
		if d, ok := memo[n]; ok {
			return d
		}
		if active[n] {
			return 0
		}
		active[n] = true
		best := 0
		for _, dep := range r.g.adj[n] {
			if d := depth(dep) + 1; d > best {
				best = d
			}
		}
		active[n] = false
		memo[n] = best
		return best
	}

	max := 0
	for _, n := range r.g.Nodes {
		if d := depth(n); d > max {
			max = d
		}
	}
	return max
}
