package matching

import "time"

// adjacency builds an undirected adjacency list from the graph's edges,
// ignoring edge type (spec §4.9: "BFS on the undirected projection of
// matchGraph.edges, ignoring edge types").
func adjacency(g MatchGraph) map[int][]int {
	adj := make(map[int][]int, len(g.Edges)*2)
	for _, e := range g.Edges {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}
	return adj
}

// hopDistances runs a BFS from `from` over the undirected projection of the
// graph, returning distances to every reachable persona within maxHops.
// Unreachable personas (or those beyond maxHops) are absent from the map.
func hopDistances(adj map[int][]int, from int, maxHops int) map[int]int {
	dist := map[int]int{from: 0}
	frontier := []int{from}
	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []int
		for _, node := range frontier {
			for _, nb := range adj[node] {
				if _, seen := dist[nb]; seen {
					continue
				}
				dist[nb] = hop
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return dist
}

// graphDistanceCache memoizes BFS results for a tick (spec §4.9:
// "computed at most once per persona per tick and cached for that tick").
// Not safe for concurrent writers; the orchestrator only reads/writes it
// from the single goroutine applying results, never from the bounded LLM
// fan-out workers.
type graphDistanceCache struct {
	adj     map[int][]int
	hops    int
	byFrom  map[int]map[int]int
}

func newGraphDistanceCache(g MatchGraph, hops int) *graphDistanceCache {
	return &graphDistanceCache{
		adj:    adjacency(g),
		hops:   hops,
		byFrom: make(map[int]map[int]int),
	}
}

// distance returns the hop count from `from` to `to`, and whether `to` is
// reachable within the configured hop budget.
func (c *graphDistanceCache) distance(from, to int) (int, bool) {
	if from == to {
		return 0, true
	}
	d, ok := c.byFrom[from]
	if !ok {
		d = hopDistances(c.adj, from, c.hops)
		c.byFrom[from] = d
	}
	hops, reachable := d[to]
	return hops, reachable
}

// appendEdge appends one edge to the graph. Its only caller is recordMatch,
// for `match` edges (spec §3 invariant: "every MatchRecord produces exactly
// one edge of type match"); the feedback processor adds no edges.
func appendEdge(g *MatchGraph, from, to int, weight float64, typ EdgeType, createdAt time.Time) {
	g.Edges = append(g.Edges, GraphEdge{From: from, To: to, Weight: weight, Type: typ, CreatedAt: createdAt})
}
