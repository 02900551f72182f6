// Package index implements an in-memory KD-tree over fixed-dimension float32
// vectors with opaque string metadata. It answers exact k-nearest-neighbor
// queries under Euclidean distance.
//
// An Index does no locking. Callers serialize mutations against queries.
package index

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrDeserialize       = errors.New("malformed index stream")
)

type node struct {
	point    []float32
	id       int
	metadata string
	left     *node
	right    *node
}

// Point is a vector and its metadata, as accepted by Build.
type Point struct {
	Vector   []float32 `json:"vector"`
	Metadata string    `json:"metadata"`
}

// Result is a single k-NN hit.
type Result struct {
	ID       int     `json:"id"`
	Distance float32 `json:"distance"`
}

type Index struct {
	dimension int
	root      *node
	nextID    int

	// vectors[id] is the vector inserted as id. Metadata lookup replays the
	// insertion descent with it, so it must never diverge from node.point.
	vectors [][]float32
}

// New returns an empty index for vectors of the given dimension.
func New(dimension int) *Index {
	return &Index{
		dimension: dimension,
		vectors:   make([][]float32, 0),
	}
}

func (idx *Index) Dimension() int {
	return idx.dimension
}

// Size returns the number of points inserted since creation or the last Clear.
func (idx *Index) Size() int {
	return idx.nextID
}

// Insert adds vec with its metadata and returns the assigned id.
func (idx *Index) Insert(vec []float32, metadata string) (int, error) {
	if idx.dimension <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDimension, idx.dimension)
	}

	if len(vec) != idx.dimension {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, idx.dimension, len(vec))
	}

	point := make([]float32, len(vec))
	copy(point, vec)

	id := idx.nextID
	idx.nextID++
	idx.vectors = append(idx.vectors, point)

	n := &node{
		point:    point,
		id:       id,
		metadata: metadata,
	}

	if idx.root == nil {
		idx.root = n
		return id, nil
	}

	curr := idx.root
	for depth := 0; ; depth++ {
		if goesLeft(point, curr.point, depth%idx.dimension) {
			if curr.left == nil {
				curr.left = n
				return id, nil
			}
			curr = curr.left
		} else {
			if curr.right == nil {
				curr.right = n
				return id, nil
			}
			curr = curr.right
		}
	}
}

// goesLeft is the single descent rule shared by insertion, lookup and bulk
// build: strictly less on the axis goes left, everything else goes right.
func goesLeft(p, split []float32, axis int) bool {
	return p[axis] < split[axis]
}

// Metadata returns the metadata stored with id.
func (idx *Index) Metadata(id int) (string, bool) {
	n := idx.find(id)
	if n == nil {
		return "", false
	}

	return n.metadata, true
}

// find replays the insertion descent for the vector stored under id.
func (idx *Index) find(id int) *node {
	if id < 0 || id >= idx.nextID || id >= len(idx.vectors) {
		return nil
	}

	target := idx.vectors[id]

	curr := idx.root
	for depth := 0; curr != nil; depth++ {
		if curr.id == id {
			return curr
		}

		if goesLeft(target, curr.point, depth%idx.dimension) {
			curr = curr.left
		} else {
			curr = curr.right
		}
	}

	return nil
}

// Clear drops every point and restarts id assignment at zero.
func (idx *Index) Clear() {
	idx.root = nil
	idx.nextID = 0
	idx.vectors = make([][]float32, 0)
}

// Depth returns the height of the tree; zero when empty.
func (idx *Index) Depth() int {
	return height(idx.root)
}

func height(n *node) int {
	if n == nil {
		return 0
	}

	return 1 + max(height(n.left), height(n.right))
}

func distance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return float32(math.Sqrt(float64(sum)))
}
