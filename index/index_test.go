package index

import (
	"math/rand"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bruteForce(points [][]float32, query []float32, k int) []Result {
	results := make([]Result, len(points))
	for id, p := range points {
		results[id] = Result{ID: id, Distance: distance(p, query)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}

	return results
}

// assertNeighbours checks got against the brute force answer. Points at equal
// distance may come back in any order, and a run of equal distances cut by k
// may keep any of its members, so ids are compared per distance run.
func assertNeighbours(t *testing.T, points [][]float32, query []float32, k int, got []Result) {
	t.Helper()

	want := bruteForce(points, query, k)
	if !assert.Len(t, got, len(want)) {
		return
	}

	seen := make(map[int]bool, len(got))
	for i := range want {
		assert.Equal(t, want[i].Distance, got[i].Distance, "distance at %d", i)
		assert.False(t, seen[got[i].ID], "id %d returned twice", got[i].ID)
		seen[got[i].ID] = true

		assert.Equal(t, distance(points[got[i].ID], query), got[i].Distance, "id %d", got[i].ID)
	}

	for start := 0; start < len(want); {
		end := start + 1
		for end < len(want) && want[end].Distance == want[start].Distance {
			end++
		}

		// The run at the cut may continue past k in the full ordering.
		if end < len(want) {
			wantIDs := make([]int, 0, end-start)
			gotIDs := make([]int, 0, end-start)
			for i := start; i < end; i++ {
				wantIDs = append(wantIDs, want[i].ID)
				gotIDs = append(gotIDs, got[i].ID)
			}

			assert.ElementsMatch(t, wantIDs, gotIDs, "ids at distance %v", want[start].Distance)
		}

		start = end
	}
}

func randomPoints(rng *rand.Rand, n, dim int) [][]float32 {
	points := make([][]float32, n)
	for i := range points {
		p := make([]float32, dim)
		for j := range p {
			p[j] = rng.Float32()*200 - 100
		}
		points[i] = p
	}

	return points
}

func TestQueryScenario(t *testing.T) {
	assert := assert.New(t)

	idx := New(2)

	id, err := idx.Insert([]float32{0, 0}, "a")
	assert.NoError(err)
	assert.Equal(0, id)

	id, err = idx.Insert([]float32{10, 10}, "b")
	assert.NoError(err)
	assert.Equal(1, id)

	id, err = idx.Insert([]float32{1, 1}, "c")
	assert.NoError(err)
	assert.Equal(2, id)

	results := idx.Query([]float32{0, 0}, 2)
	if !assert.Len(results, 2) {
		return
	}

	assert.Equal(0, results[0].ID)
	assert.Equal(float32(0), results[0].Distance)
	assert.Equal(2, results[1].ID)
	assert.InDelta(1.41421, results[1].Distance, 1e-4)
}

func TestQuerySinglePoint(t *testing.T) {
	assert := assert.New(t)

	idx := New(3)

	vec := []float32{0.25, -3, 7.5}
	id, err := idx.Insert(vec, `{"text":"only"}`)
	assert.NoError(err)

	results := idx.Query(vec, 10)
	if !assert.Len(results, 1) {
		return
	}

	assert.Equal(id, results[0].ID)
	assert.InDelta(0, results[0].Distance, 1e-6)
}

func TestInsertDimensionMismatch(t *testing.T) {
	assert := assert.New(t)

	idx := New(3)

	_, err := idx.Insert([]float32{1, 2}, "short")
	assert.ErrorIs(err, ErrDimensionMismatch)
	assert.Equal(0, idx.Size())

	id, err := idx.Insert([]float32{1, 2, 3}, "ok")
	assert.NoError(err)
	assert.Equal(0, id, "a rejected insert must not consume an id")
}

func TestInsertInvalidDimension(t *testing.T) {
	_, err := New(0).Insert(nil, "")
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestQueryEmptyResults(t *testing.T) {
	assert := assert.New(t)

	idx := New(2)
	assert.Empty(idx.Query([]float32{0, 0}, 3), "empty index")

	idx.Insert([]float32{1, 1}, "a")
	assert.Empty(idx.Query([]float32{0, 0, 0}, 3), "wrong dimension")
	assert.Empty(idx.Query([]float32{0, 0}, 0), "zero k")
	assert.NotNil(idx.Query([]float32{0}, 1))
}

func TestQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, dim := range []int{1, 2, 3, 8} {
		t.Run("dim="+strconv.Itoa(dim), func(t *testing.T) {
			points := randomPoints(rng, 500, dim)

			idx := New(dim)
			for i, p := range points {
				id, err := idx.Insert(p, strconv.Itoa(i))
				require.NoError(t, err)
				require.Equal(t, i, id)
			}

			for _, query := range randomPoints(rng, 50, dim) {
				for _, k := range []int{1, 5, 17, 600} {
					assertNeighbours(t, points, query, k, idx.Query(query, k))
				}
			}
		})
	}
}

func TestQueryAdversarialOrder(t *testing.T) {
	assert := assert.New(t)

	// Monotonic coordinates degrade the tree into a list; results stay exact.
	points := make([][]float32, 200)
	for i := range points {
		points[i] = []float32{float32(i), float32(i) * 0.5}
	}

	idx := New(2)
	for _, p := range points {
		idx.Insert(p, "")
	}

	assert.Equal(200, idx.Depth())

	query := []float32{73.2, 36.9}
	assertNeighbours(t, points, query, 7, idx.Query(query, 7))
}

func TestQueryResultsSorted(t *testing.T) {
	assert := assert.New(t)

	rng := rand.New(rand.NewSource(7))

	idx := New(4)
	for _, p := range randomPoints(rng, 300, 4) {
		idx.Insert(p, "")
	}

	results := idx.Query([]float32{0, 0, 0, 0}, 25)
	assert.Len(results, 25)
	assert.True(sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	}))
}

func TestQueryIdempotent(t *testing.T) {
	assert := assert.New(t)

	rng := rand.New(rand.NewSource(3))

	idx := New(3)
	for _, p := range randomPoints(rng, 100, 3) {
		idx.Insert(p, "")
	}

	query := []float32{1, 2, 3}
	first := idx.Query(query, 10)
	second := idx.Query(query, 10)

	assert.Equal(first, second)
	assert.Equal(100, idx.Size())
}

func TestQueryDuplicatePoints(t *testing.T) {
	assert := assert.New(t)

	idx := New(2)
	for i := 0; i < 5; i++ {
		idx.Insert([]float32{1, 1}, strconv.Itoa(i))
	}
	idx.Insert([]float32{5, 5}, "far")

	results := idx.Query([]float32{1, 1}, 5)
	assert.Len(results, 5)
	for _, r := range results {
		assert.Equal(float32(0), r.Distance)
		assert.Less(r.ID, 5)
	}

	for i := 0; i < 5; i++ {
		meta, ok := idx.Metadata(i)
		assert.True(ok)
		assert.Equal(strconv.Itoa(i), meta)
	}
}

func TestQueryBatch(t *testing.T) {
	assert := assert.New(t)

	idx := New(2)
	idx.Insert([]float32{0, 0}, "a")
	idx.Insert([]float32{10, 10}, "b")

	results := idx.QueryBatch([][]float32{{0, 0}, {9, 9}, {1}}, 1)
	if !assert.Len(results, 3) {
		return
	}

	assert.Equal(0, results[0][0].ID)
	assert.Equal(1, results[1][0].ID)
	assert.Empty(results[2])
}

func TestMetadata(t *testing.T) {
	assert := assert.New(t)

	rng := rand.New(rand.NewSource(11))

	idx := New(3)
	points := randomPoints(rng, 300, 3)

	// Repeated split values exercise the >= branch of the descent.
	points = append(points, points[0], points[1], points[0])

	for i, p := range points {
		idx.Insert(p, "meta-"+strconv.Itoa(i))
	}

	for id := 0; id < idx.Size(); id++ {
		meta, ok := idx.Metadata(id)
		assert.True(ok, "id %d", id)
		assert.Equal("meta-"+strconv.Itoa(id), meta)
	}

	_, ok := idx.Metadata(idx.Size())
	assert.False(ok)

	_, ok = idx.Metadata(-1)
	assert.False(ok)
}

func TestClear(t *testing.T) {
	assert := assert.New(t)

	idx := New(2)
	idx.Insert([]float32{1, 2}, "a")
	idx.Insert([]float32{3, 4}, "b")

	idx.Clear()

	assert.Equal(0, idx.Size())
	assert.Equal(0, idx.Depth())
	assert.Empty(idx.Query([]float32{1, 2}, 5))

	_, ok := idx.Metadata(0)
	assert.False(ok)

	id, err := idx.Insert([]float32{5, 6}, "c")
	assert.NoError(err)
	assert.Equal(0, id)

	meta, ok := idx.Metadata(0)
	assert.True(ok)
	assert.Equal("c", meta)
}

func TestInsertCopiesVector(t *testing.T) {
	assert := assert.New(t)

	idx := New(2)

	vec := []float32{1, 1}
	idx.Insert(vec, "a")
	vec[0] = 100

	meta, ok := idx.Metadata(0)
	assert.True(ok)
	assert.Equal("a", meta)

	results := idx.Query([]float32{1, 1}, 1)
	assert.Equal(float32(0), results[0].Distance)
}
