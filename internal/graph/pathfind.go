package graph

import (
	"container/heap"
	"fmt"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

// NearestExit runs Dijkstra from start and returns the cheapest route to
// any vertex for which isExit holds. Exits at equal cost resolve to the
// lowest room id. ok is false when no exit is reachable; that is a normal
// outcome, not an error. An unknown start returns ErrNotFound.
func (g *Graph) NearestExit(start int, isExit func(id int) bool) (models.Route, bool, error) {
	if !g.HasVertex(start) {
		return models.Route{}, false, fmt.Errorf("start room %d: %w", start, models.ErrNotFound)
	}
	route, ok := g.search(start, isExit)
	return route, ok, nil
}

// ShortestPath returns the cheapest route between two vertices.
func (g *Graph) ShortestPath(from, to int) (models.Route, bool, error) {
	if !g.HasVertex(from) {
		return models.Route{}, false, fmt.Errorf("start room %d: %w", from, models.ErrNotFound)
	}
	if !g.HasVertex(to) {
		return models.Route{}, false, fmt.Errorf("target room %d: %w", to, models.ErrNotFound)
	}
	route, ok := g.search(from, func(id int) bool { return id == to })
	return route, ok, nil
}

// search pops vertices in (distance, id) order. Once a goal is popped the
// search keeps draining vertices at the same distance, since zero-weight
// passages can still surface a goal with a lower id.
func (g *Graph) search(start int, goal func(int) bool) (models.Route, bool) {
	dist := map[int]float64{start: 0}
	cameFrom := make(map[int]int)
	closed := make(map[int]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{node: start, priority: 0})

	best, found := 0, false
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.node
		if closed[current] {
			continue
		}
		if found && dist[current] > dist[best] {
			break
		}
		closed[current] = true

		if goal(current) && (!found || current < best) {
			best, found = current, true
		}

		for _, n := range g.Neighbors(current) {
			if closed[n] {
				continue
			}
			tentative := dist[current] + g.adj[current][n]
			if old, ok := dist[n]; !ok || tentative < old {
				dist[n] = tentative
				cameFrom[n] = current
				heap.Push(pq, &pqItem{node: n, priority: tentative})
			}
		}
	}
	if !found {
		return models.Route{}, false
	}
	return models.Route{
		Start:  start,
		Exit:   best,
		Weight: dist[best],
		Path:   reconstructPath(cameFrom, best),
	}, true
}

func reconstructPath(cameFrom map[int]int, current int) []int {
	path := []int{current}
	for {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		path = append(path, prev)
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pqItem struct {
	node     int
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(*pqItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
