package index

import (
	"fmt"
	"sort"
)

// Build bulk-loads points into a balanced tree by recursive median split.
// Ids are assigned in input order, exactly as if each point had been passed
// to Insert, but the resulting depth is logarithmic.
func Build(dimension int, points []Point) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dimension)
	}

	idx := New(dimension)

	nodes := make([]*node, len(points))
	for i, p := range points {
		if len(p.Vector) != dimension {
			return nil, fmt.Errorf("%w: point %d: expected %d, got %d",
				ErrDimensionMismatch, i, dimension, len(p.Vector))
		}

		point := make([]float32, dimension)
		copy(point, p.Vector)

		idx.vectors = append(idx.vectors, point)
		nodes[i] = &node{
			point:    point,
			id:       i,
			metadata: p.Metadata,
		}
	}

	idx.nextID = len(points)
	idx.root = idx.build(nodes, 0)

	return idx, nil
}

func (idx *Index) build(nodes []*node, depth int) *node {
	if len(nodes) == 0 {
		return nil
	}

	axis := depth % idx.dimension
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].point[axis] < nodes[j].point[axis]
	})

	median := nodes[len(nodes)/2]

	// Partition with the descent rule itself so points equal to the split
	// value land on the right, where lookup will search for them.
	left := make([]*node, 0, len(nodes)/2)
	right := make([]*node, 0, len(nodes)/2)
	for _, n := range nodes {
		if n == median {
			continue
		}

		if goesLeft(n.point, median.point, axis) {
			left = append(left, n)
		} else {
			right = append(right, n)
		}
	}

	median.left = idx.build(left, depth+1)
	median.right = idx.build(right, depth+1)

	return median
}
