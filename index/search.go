package index

import (
	"container/heap"
	"sort"
)

var _ heap.Interface = (*resultHeap)(nil)

// resultHeap is a max-heap on distance holding the best k candidates.
type resultHeap []Result

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[i].Distance > h[j].Distance }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(Result))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h resultHeap) worst() float32 {
	return h[0].Distance
}

type searcher struct {
	query     []float32
	k         int
	dimension int
	best      resultHeap
}

func (s *searcher) full() bool {
	return len(s.best) >= s.k
}

func (s *searcher) offer(r Result) {
	if !s.full() {
		heap.Push(&s.best, r)
		return
	}

	if r.Distance < s.best.worst() {
		s.best[0] = r
		heap.Fix(&s.best, 0)
	}
}

func (s *searcher) search(n *node, depth int) {
	s.offer(Result{ID: n.id, Distance: distance(n.point, s.query)})

	axis := depth % s.dimension

	near, far := n.right, n.left
	if goesLeft(s.query, n.point, axis) {
		near, far = n.left, n.right
	}

	if near != nil {
		s.search(near, depth+1)
	}

	if far == nil {
		return
	}

	diff := s.query[axis] - n.point[axis]
	if diff < 0 {
		diff = -diff
	}

	// The splitting plane bounds the distance to anything on the far side.
	if !s.full() || diff <= s.best.worst() {
		s.search(far, depth+1)
	}
}

// Query returns up to k points closest to query, nearest first. An empty
// index, a non-positive k or a query of the wrong dimension yields an empty
// result rather than an error.
func (idx *Index) Query(query []float32, k int) []Result {
	if idx.root == nil || k <= 0 || len(query) != idx.dimension {
		return []Result{}
	}

	s := &searcher{
		query:     query,
		k:         k,
		dimension: idx.dimension,
		best:      make(resultHeap, 0, min(k, idx.nextID)),
	}

	s.search(idx.root, 0)

	results := []Result(s.best)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	return results
}

// QueryBatch runs Query for every query.
func (idx *Index) QueryBatch(queries [][]float32, k int) [][]Result {
	results := make([][]Result, len(queries))
	for i, query := range queries {
		results[i] = idx.Query(query, k)
	}

	return results
}
