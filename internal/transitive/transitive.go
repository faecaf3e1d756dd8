// Package transitive implements the TransitiveReasoner (SPEC_FULL.md
// §4.3): a lazily-rebuilt, per-relation forward/reverse adjacency cache
// with BFS reachability, targets-from, sources-to, and all-pairs
// queries.
//
// The cache is materialised with github.com/dominikbraun/graph, the
// same library the teacher uses in internal/modes/graph.go for its
// Graph-of-Thoughts controller: a directed graph keyed by plain string
// vertices (graph.StringHash), rebuilt on bundleVersion mismatch by a
// single linear pass over FactStore.GetByOperator(R). The BFS itself
// walks plain adjacency maps derived from the graph (dominikbraun/graph
// does not expose a depth-tracking BFS with per-step string logs, which
// this component needs), matching the teacher's own pattern of reading
// back AddVertex/AddEdge bookkeeping into parallel plain maps.
package transitive

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"unified-thinking/internal/store"
	"unified-thinking/internal/types"
)

// Hop is one reachable node with its discovery depth and the BFS step
// trail leading to it.
type Hop struct {
	Value string
	Depth int
	Steps []string
}

// Pair is one (subject, target) reachable pair for all_pairs.
type Pair struct {
	Subject string
	Target  string
	Depth   int
	Steps   []string
}

type relationCache struct {
	version uint64
	g       graph.Graph[string, string]
	forward map[string]map[string]bool
	reverse map[string]map[string]bool
}

// Reasoner owns the per-relation edge caches for one Session.
type Reasoner struct {
	facts  *store.FactStore
	caches map[types.Identifier]*relationCache
}

// New constructs a Reasoner over the given FactStore.
func New(facts *store.FactStore) *Reasoner {
	return &Reasoner{
		facts:  facts,
		caches: make(map[types.Identifier]*relationCache),
	}
}

// cacheFor returns the up-to-date cache for relation R, rebuilding it
// if the Session's bundleVersion has advanced since the last build.
func (r *Reasoner) cacheFor(rel types.Identifier) *relationCache {
	version := r.facts.BundleVersion()
	c, ok := r.caches[rel]
	if ok && c.version == version {
		return c
	}

	g := graph.New(graph.StringHash, graph.Directed())
	forward := make(map[string]map[string]bool)
	reverse := make(map[string]map[string]bool)

	for _, f := range r.facts.GetByOperator(rel) {
		if len(f.Args) != 2 || f.Polarity == types.Negated {
			continue
		}
		src := f.Args[0].Text()
		dst := f.Args[1].Text()
		if types.IsReserved(types.Identifier(src)) || types.IsReserved(types.Identifier(dst)) {
			continue
		}
		if src == dst {
			// Self-loops are tolerated in storage but never traversed
			// (§4.3 edge cases, B3).
			_ = g.AddVertex(src)
			continue
		}

		_ = g.AddVertex(src)
		_ = g.AddVertex(dst)
		_ = g.AddEdge(src, dst) // duplicate edges are a harmless no-op error

		if forward[src] == nil {
			forward[src] = make(map[string]bool)
		}
		forward[src][dst] = true
		if reverse[dst] == nil {
			reverse[dst] = make(map[string]bool)
		}
		reverse[dst][src] = true
	}

	c = &relationCache{version: version, g: g, forward: forward, reverse: reverse}
	r.caches[rel] = c
	return c
}

// Reachable reports whether b is reachable from a over relation R via
// BFS with a visited set (cycle-safe). Reachable(a, a) is always false,
// even when a self-loop fact `R a a` is stored: self-loops are never
// traversed, so there is no phantom reflexivity (Invariant I1).
func (r *Reasoner) Reachable(rel types.Identifier, a, b string) bool {
	if a == b {
		return false
	}
	c := r.cacheFor(rel)
	visited := map[string]bool{a: true}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range sortedKeys(c.forward[cur]) {
			if next == b {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// TargetsFrom enumerates every node reachable from a over relation R,
// each emitted once at its first-discovery BFS depth (Invariant I2: no
// value appears twice).
func (r *Reasoner) TargetsFrom(rel types.Identifier, a string) []Hop {
	return bfs(r.cacheFor(rel).forward, a, rel, true)
}

// SourcesTo enumerates every node that can reach b over relation R via
// a reverse-adjacency BFS; step strings are built in forward textual
// order ("R src dst") regardless of traversal direction.
func (r *Reasoner) SourcesTo(rel types.Identifier, b string) []Hop {
	return bfs(r.cacheFor(rel).reverse, b, rel, false)
}

// sortedKeys returns m's keys in ascending order, so neighbour
// expansion and subject enumeration over a map[string]bool is
// deterministic (§5, §4.3: same state must yield the same BFS
// discovery order on every query).
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bfs runs a single BFS from start over adj, emitting each newly
// discovered node at its first depth, with a visited set for cycle
// safety. forwardDir controls whether step strings read "R cur next"
// (TargetsFrom) or "R next cur" (SourcesTo, since adj is the reverse
// map but steps must read in forward textual order).
func bfs(adj map[string]map[string]bool, start string, rel types.Identifier, forwardDir bool) []Hop {
	visited := map[string]bool{start: true}
	type frontierNode struct {
		value string
		depth int
		steps []string
	}
	queue := []frontierNode{{value: start, depth: 0}}
	var out []Hop

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range sortedKeys(adj[cur.value]) {
			if next == start || visited[next] {
				continue
			}
			visited[next] = true
			var step string
			if forwardDir {
				step = fmt.Sprintf("%s %s %s", rel, cur.value, next)
			} else {
				step = fmt.Sprintf("%s %s %s", rel, next, cur.value)
			}
			steps := append(append([]string{}, cur.steps...), step)
			depth := cur.depth + 1
			out = append(out, Hop{Value: next, Depth: depth, Steps: steps})
			queue = append(queue, frontierNode{value: next, depth: depth, steps: steps})
		}
	}
	return out
}

// AllPairs unions TargetsFrom over every subject that has at least one
// outgoing edge for relation R; each (src,dst) pair is emitted once at
// its shortest depth.
func (r *Reasoner) AllPairs(rel types.Identifier) []Pair {
	c := r.cacheFor(rel)
	var out []Pair
	for _, src := range sortedKeys(c.forward) {
		for _, hop := range bfs(c.forward, src, rel, true) {
			out = append(out, Pair{Subject: src, Target: hop.Value, Depth: hop.Depth, Steps: hop.Steps})
		}
	}
	return out
}

// TransitiveScore implements §4.3's scoring rule for non-all-pairs
// transitive matches: max(0.1, 0.9 - 0.05*depth).
func TransitiveScore(depth int) float64 {
	s := 0.9 - 0.05*float64(depth)
	if s < 0.1 {
		return 0.1
	}
	return s
}

// AllPairsScore implements §4.3's scoring rule for all-pairs matches:
// base 0.85 instead of 0.9.
func AllPairsScore(depth int) float64 {
	s := 0.85 - 0.05*float64(depth)
	if s < 0.1 {
		return 0.1
	}
	return s
}
