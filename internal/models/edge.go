package models

import (
	"fmt"
	"sort"
)

// Edge is an undirected weighted passage between two rooms.
type Edge struct {
	Room1  int     `json:"room1"`
	Room2  int     `json:"room2"`
	Weight float64 `json:"weight"`
}

// Validate rejects self-loops and negative weights.
func (e Edge) Validate() error {
	if e.Room1 == e.Room2 {
		return fmt.Errorf("%w: self-loop on room %d", ErrInvalidEdge, e.Room1)
	}
	if e.Weight < 0 {
		return fmt.Errorf("%w: negative weight %g between %d and %d", ErrInvalidEdge, e.Weight, e.Room1, e.Room2)
	}
	return nil
}

// Normalized returns the edge with Room1 < Room2.
func (e Edge) Normalized() Edge {
	if e.Room1 > e.Room2 {
		e.Room1, e.Room2 = e.Room2, e.Room1
	}
	return e
}

// SortEdges orders normalized edges by their endpoints.
func SortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Room1 != edges[j].Room1 {
			return edges[i].Room1 < edges[j].Room1
		}
		return edges[i].Room2 < edges[j].Room2
	})
}
