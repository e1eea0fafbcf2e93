package segment

import "math"

const flowEpsilon = 1e-9

// graph is an s/t flow network over pixel nodes solved with Dinic's
// algorithm. Edges are stored in pairs so e^1 is always the reverse of e.
type graph struct {
	nodes int
	head  []int32
	next  []int32
	to    []int32
	cap   []float64
	level []int32
	iter  []int32
	queue []int32
	flow  float64
}

func newGraph(nodes, edgeHint int) *graph {
	g := &graph{
		nodes: nodes,
		head:  make([]int32, nodes+2),
		next:  make([]int32, 0, edgeHint),
		to:    make([]int32, 0, edgeHint),
		cap:   make([]float64, 0, edgeHint),
		level: make([]int32, nodes+2),
		iter:  make([]int32, nodes+2),
		queue: make([]int32, 0, nodes+2),
	}
	for i := range g.head {
		g.head[i] = -1
	}
	return g
}

func (g *graph) source() int32 { return int32(g.nodes) }
func (g *graph) sink() int32   { return int32(g.nodes + 1) }

func (g *graph) link(u, v int32, c float64) {
	g.to = append(g.to, v)
	g.cap = append(g.cap, c)
	g.next = append(g.next, g.head[u])
	g.head[u] = int32(len(g.to) - 1)
}

// addEdge connects u and v with capacity c from u to v and rc back.
func (g *graph) addEdge(u, v int, c, rc float64) {
	g.link(int32(u), int32(v), c)
	g.link(int32(v), int32(u), rc)
}

// addTerminal sets the source and sink capacities of node u. Only the
// difference is stored; the common part is saturated up front.
func (g *graph) addTerminal(u int, src, snk float64) {
	switch {
	case src > snk:
		g.flow += snk
		g.link(g.source(), int32(u), src-snk)
		g.link(int32(u), g.source(), 0)
	case snk > src:
		g.flow += src
		g.link(int32(u), g.sink(), snk-src)
		g.link(g.sink(), int32(u), 0)
	default:
		g.flow += src
	}
}

// maxFlow saturates the network and returns the total flow.
func (g *graph) maxFlow() float64 {
	s, t := g.source(), g.sink()
	for g.bfs(s, t) {
		copy(g.iter, g.head)
		for {
			f := g.dfs(s, t, math.Inf(1))
			if f <= flowEpsilon {
				break
			}
			g.flow += f
		}
	}
	return g.flow
}

// inSourceSegment reports whether u is still reachable from the source in
// the residual network. Valid after maxFlow.
func (g *graph) inSourceSegment(u int) bool {
	return g.level[u] >= 0
}

func (g *graph) bfs(s, t int32) bool {
	for i := range g.level {
		g.level[i] = -1
	}
	g.level[s] = 0
	q := append(g.queue[:0], s)
	for len(q) > 0 {
		u := q[0]
		q = q[1:]
		for e := g.head[u]; e != -1; e = g.next[e] {
			v := g.to[e]
			if g.cap[e] > flowEpsilon && g.level[v] < 0 {
				g.level[v] = g.level[u] + 1
				q = append(q, v)
			}
		}
	}
	return g.level[t] >= 0
}

func (g *graph) dfs(u, t int32, f float64) float64 {
	if u == t {
		return f
	}
	for ; g.iter[u] != -1; g.iter[u] = g.next[g.iter[u]] {
		e := g.iter[u]
		v := g.to[e]
		if g.cap[e] <= flowEpsilon || g.level[v] != g.level[u]+1 {
			continue
		}
		if d := g.dfs(v, t, min(f, g.cap[e])); d > flowEpsilon {
			g.cap[e] -= d
			g.cap[e^1] += d
			return d
		}
	}
	return 0
}
