package routing

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

const (
	DefaultWalkingSpeed    = 1.4
	DefaultMaxSnapDistance = 250.0
	// Vertices closer than roughly a centimetre are merged.
	vertexPrecision = 1e7
)

type vertexKey struct {
	lat, lng int64
}

func keyOf(p orb.Point) vertexKey {
	return vertexKey{lat: int64(math.Round(p.Lat() * vertexPrecision)), lng: int64(math.Round(p.Lon() * vertexPrecision))}
}

type vertex struct {
	id    int
	point orb.Point
}

func (v *vertex) Point() orb.Point {
	return v.point
}

type edge struct {
	to     int
	length float64
}

// Graph routes over the campus walkway network.
type Graph struct {
	vertices     []*vertex
	adjacency    [][]edge
	index        *quadtree.Quadtree
	walkingSpeed float64
	maxSnap      float64
}

type GraphOptions struct {
	// WalkingSpeed is in meters per second.
	WalkingSpeed float64
	// MaxSnapDistance is the furthest, in meters, an endpoint may be from the network.
	MaxSnapDistance float64
}

// NewGraph joins consecutive vertices of every line with a bidirectional
// edge. Lines sharing a vertex are connected through it.
func NewGraph(lines []orb.LineString, opts GraphOptions) *Graph {
	if opts.WalkingSpeed <= 0 {
		opts.WalkingSpeed = DefaultWalkingSpeed
	}
	if opts.MaxSnapDistance <= 0 {
		opts.MaxSnapDistance = DefaultMaxSnapDistance
	}
	g := &Graph{walkingSpeed: opts.WalkingSpeed, maxSnap: opts.MaxSnapDistance}

	ids := make(map[vertexKey]int)
	vertexFor := func(p orb.Point) int {
		k := keyOf(p)
		if id, ok := ids[k]; ok {
			return id
		}
		id := len(g.vertices)
		ids[k] = id
		g.vertices = append(g.vertices, &vertex{id: id, point: p})
		g.adjacency = append(g.adjacency, nil)
		return id
	}

	for _, line := range lines {
		prev := -1
		for _, p := range line {
			id := vertexFor(p)
			if prev >= 0 && prev != id {
				length := geo.Distance(geo.FromPoint(g.vertices[prev].point), geo.FromPoint(p))
				g.adjacency[prev] = append(g.adjacency[prev], edge{to: id, length: length})
				g.adjacency[id] = append(g.adjacency[id], edge{to: prev, length: length})
			}
			prev = id
		}
	}

	if len(g.vertices) > 0 {
		points := make(orb.MultiPoint, len(g.vertices))
		for i, v := range g.vertices {
			points[i] = v.point
		}
		g.index = quadtree.New(points.Bound().Pad(1e-6))
		for _, v := range g.vertices {
			// Every vertex is inside the padded bound.
			_ = g.index.Add(v)
		}
	}
	return g
}

func (g *Graph) Vertices() int {
	return len(g.vertices)
}

func (g *Graph) snap(c geo.Coordinate) (int, float64, bool) {
	nearest := g.index.Find(c.Point())
	if nearest == nil {
		return 0, 0, false
	}
	v := nearest.(*vertex)
	d := geo.Distance(c, geo.FromPoint(v.point))
	return v.id, d, d <= g.maxSnap
}

type queueItem struct {
	vertex int
	cost   float64
	index  int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].cost < pq[j].cost
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// shortestPath returns the vertex ids from start to end and the path length.
func (g *Graph) shortestPath(ctx context.Context, start, end int) ([]int, float64, error) {
	dist := make([]float64, len(g.vertices))
	prev := make([]int, len(g.vertices))
	visited := make([]bool, len(g.vertices))
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[start] = 0

	pq := priorityQueue{}
	heap.Push(&pq, &queueItem{vertex: start})
	for steps := 0; pq.Len() > 0; steps++ {
		if steps%1024 == 0 && ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		current := heap.Pop(&pq).(*queueItem)
		if visited[current.vertex] {
			continue
		}
		visited[current.vertex] = true
		if current.vertex == end {
			break
		}
		for _, e := range g.adjacency[current.vertex] {
			cost := dist[current.vertex] + e.length
			if cost < dist[e.to] {
				dist[e.to] = cost
				prev[e.to] = current.vertex
				heap.Push(&pq, &queueItem{vertex: e.to, cost: cost})
			}
		}
	}

	if math.IsInf(dist[end], 1) {
		return nil, 0, ErrNoRouteFound
	}
	path := []int{}
	for at := end; at != -1; at = prev[at] {
		path = append(path, at)
		if at == start {
			break
		}
	}
	slices.Reverse(path)
	return path, dist[end], nil
}

// ComputeRoute snaps both endpoints onto the network and walks the shortest
// path between them. The legs from each endpoint to its snapped vertex are
// part of the returned path and distance.
func (g *Graph) ComputeRoute(ctx context.Context, from, to geo.Coordinate) (*Route, error) {
	if g.index == nil {
		return nil, fmt.Errorf("%w: walkway network is empty", ErrRoutingUnavailable)
	}
	start, startSnap, ok := g.snap(from)
	if !ok {
		return nil, fmt.Errorf("%w: start is %.0fm from the nearest walkway", ErrNoRouteFound, startSnap)
	}
	end, endSnap, ok := g.snap(to)
	if !ok {
		return nil, fmt.Errorf("%w: destination is %.0fm from the nearest walkway", ErrNoRouteFound, endSnap)
	}

	ids, length, err := g.shortestPath(ctx, start, end)
	if err != nil {
		return nil, err
	}

	path := make(orb.LineString, 0, len(ids)+2)
	path = append(path, from.Point())
	for _, id := range ids {
		path = append(path, g.vertices[id].point)
	}
	path = append(path, to.Point())

	distance := startSnap + length + endSnap
	return &Route{
		Path:     path,
		Distance: distance,
		Duration: time.Duration(distance / g.walkingSpeed * float64(time.Second)),
	}, nil
}
