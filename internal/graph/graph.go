// Package graph holds the facility map: rooms as vertices joined by
// undirected weighted passages.
package graph

import (
	"fmt"
	"sort"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

// Graph is an undirected weighted graph keyed by room id. It references
// rooms by id only and never owns room state.
type Graph struct {
	adj map[int]map[int]float64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[int]map[int]float64)}
}

// AddVertex registers a room id. Adding an existing id is a no-op.
func (g *Graph) AddVertex(id int) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[int]float64)
	}
}

// HasVertex reports whether id is a vertex.
func (g *Graph) HasVertex(id int) bool {
	_, ok := g.adj[id]
	return ok
}

// AddEdge connects two existing vertices. Re-adding a pair replaces its
// weight, so there is at most one passage per pair.
func (g *Graph) AddEdge(e models.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !g.HasVertex(e.Room1) {
		return fmt.Errorf("edge endpoint room %d: %w", e.Room1, models.ErrNotFound)
	}
	if !g.HasVertex(e.Room2) {
		return fmt.Errorf("edge endpoint room %d: %w", e.Room2, models.ErrNotFound)
	}
	g.adj[e.Room1][e.Room2] = e.Weight
	g.adj[e.Room2][e.Room1] = e.Weight
	return nil
}

// Weight returns the weight of the passage between a and b.
func (g *Graph) Weight(a, b int) (float64, bool) {
	w, ok := g.adj[a][b]
	return w, ok
}

// Adjacent reports whether a passage joins a and b.
func (g *Graph) Adjacent(a, b int) bool {
	_, ok := g.Weight(a, b)
	return ok
}

// Neighbors returns the ids adjacent to id in ascending order.
func (g *Graph) Neighbors(id int) []int {
	out := make([]int, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Vertices returns all vertex ids in ascending order.
func (g *Graph) Vertices() []int {
	out := make([]int, 0, len(g.adj))
	for id := range g.adj {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.adj) }

// Edges returns every passage once, normalized and sorted.
func (g *Graph) Edges() []models.Edge {
	var out []models.Edge
	for a, ns := range g.adj {
		for b, w := range ns {
			if a < b {
				out = append(out, models.Edge{Room1: a, Room2: b, Weight: w})
			}
		}
	}
	models.SortEdges(out)
	return out
}

// Reachable returns the vertices reachable from start in breadth-first
// order, start included. Neighbors are visited in ascending id order.
func (g *Graph) Reachable(start int) ([]int, error) {
	if !g.HasVertex(start) {
		return nil, fmt.Errorf("room %d: %w", start, models.ErrNotFound)
	}
	seen := map[int]bool{start: true}
	order := []int{start}
	for i := 0; i < len(order); i++ {
		for _, n := range g.Neighbors(order[i]) {
			if !seen[n] {
				seen[n] = true
				order = append(order, n)
			}
		}
	}
	return order, nil
}
