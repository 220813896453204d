// Package planner computes an update plan: the shortest sequence of
// packages carrying a workspace from its current revision to a goal
// revision, searched over the package-edge multigraph described by a
// repository's published packages.
package planner

import (
	"container/heap"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/model"
)

// Plan is the sequence of packages an executor should apply, in order,
// to take a workspace from its current revision to goal.
type Plan struct {
	From *model.CleanName
	Goal model.CleanName
	// Packages is empty when From == Goal (spec.md's "UP TO DATE").
	Packages []*model.PackageMetadata
}

// UpToDate reports whether the plan requires no work.
func (p *Plan) UpToDate() bool {
	return len(p.Packages) == 0
}

// edge is one directed package-edge in the revision graph: applying
// pkg moves a workspace from pkg.From (nil meaning "any New workspace")
// to pkg.To.
type edge struct {
	pkg  *model.PackageMetadata
	from string // "" stands for the synthetic empty-workspace node
	to   string
}

// ComputePlan builds a directed multigraph with nodes = revisions (plus a
// synthetic empty-workspace node for complete packages) and edges =
// available packages, then finds the shortest path (by edge count,
// ties broken by total package size, and further ties broken by the
// lexicographically smallest sequence of package names for a fully
// deterministic result - Open Question (a)) from from to goal.
//
// No graph/shortest-path library appears anywhere in the retrieval
// pack for this shape of problem, so this search is built directly on
// container/heap.
func ComputePlan(packages []*model.PackageMetadata, from *model.CleanName, goal *model.CleanName, currentRemoteVersion model.CleanName) (*Plan, error) {
	resolvedGoal := currentRemoteVersion
	if goal != nil {
		resolvedGoal = *goal
	}

	fromNode := ""
	if from != nil {
		fromNode = string(*from)
	}
	goalNode := string(resolvedGoal)

	if fromNode == goalNode {
		return &Plan{From: from, Goal: resolvedGoal}, nil
	}

	edges := buildEdges(packages)
	seq, err := shortestPath(edges, fromNode, goalNode)
	if err != nil {
		log.Debug(log.Planner, "no path from %q to %q over %d package(s)", fromNode, goalNode, len(packages))
		return nil, model.NewError(model.KindNoAvailablePath, "no update path from %q to %q", fromNode, goalNode).WithRevision(goalNode)
	}

	log.Debug(log.Planner, "planned %s -> %s via %d package(s)", fromNode, goalNode, len(seq))
	return &Plan{From: from, Goal: resolvedGoal, Packages: seq}, nil
}

func buildEdges(packages []*model.PackageMetadata) map[string][]edge {
	adj := make(map[string][]edge)
	for _, pkg := range packages {
		from := ""
		if pkg.From != nil {
			from = string(*pkg.From)
		}
		to := string(pkg.To)
		adj[from] = append(adj[from], edge{pkg: pkg, from: from, to: to})
	}
	return adj
}

// searchState is one node on the priority queue: how we got there, and
// by what accumulated cost.
type searchState struct {
	node       string
	edgeCount  int
	totalSize  uint64
	names      []string // package names along the path so far, for the final tie-break
	path       []*model.PackageMetadata
	queueIndex int
}

type priorityQueue []*searchState

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return less(pq[i], pq[j])
}

func lexLess(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].queueIndex = i
	pq[j].queueIndex = j
}

func (pq *priorityQueue) Push(x interface{}) {
	s := x.(*searchState)
	s.queueIndex = len(*pq)
	*pq = append(*pq, s)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return s
}

// shortestPath runs a Dijkstra-shaped search (edge weight is always 1,
// broken by size then name) over adj from start to goal.
func shortestPath(adj map[string][]edge, start, goal string) ([]*model.PackageMetadata, error) {
	best := map[string]*searchState{
		start: {node: start},
	}

	pq := &priorityQueue{best[start]}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*searchState)
		if cur.node == goal {
			return cur.path, nil
		}
		if existing, ok := best[cur.node]; ok && existing != cur {
			continue
		}

		for _, e := range adj[cur.node] {
			candidate := &searchState{
				node:      e.to,
				edgeCount: cur.edgeCount + 1,
				totalSize: cur.totalSize + e.pkg.Size,
				names:     append(append([]string{}, cur.names...), string(e.pkg.PackageDataName)),
				path:      append(append([]*model.PackageMetadata{}, cur.path...), e.pkg),
			}
			existing, ok := best[e.to]
			if !ok || less(candidate, existing) {
				best[e.to] = candidate
				heap.Push(pq, candidate)
			}
		}
	}

	return nil, model.NewError(model.KindNoAvailablePath, "no path found")
}

func less(a, b *searchState) bool {
	if a.edgeCount != b.edgeCount {
		return a.edgeCount < b.edgeCount
	}
	if a.totalSize != b.totalSize {
		return a.totalSize < b.totalSize
	}
	return lexLess(a.names, b.names)
}
