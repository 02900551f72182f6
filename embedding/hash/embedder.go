// Package hash provides an offline embedder based on feature hashing. Each
// lower-cased word is hashed into one of the output buckets with a hashed
// sign, and the result is scaled to unit length. Identical text always maps
// to an identical vector, and texts sharing words land close together.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/flarexio/kdvector/embedding"
)

func NewHashEmbedder(dimension int) embedding.Embedder {
	return &embedder{dimension}
}

type embedder struct {
	dimension int
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.dimension <= 0 {
		return nil, embedding.ErrEmptyEmbedding
	}

	vec := make([]float32, e.dimension)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		sum := h.Sum64()

		bucket := int(sum % uint64(e.dimension))
		if sum>>63 == 1 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		return vec, nil
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}

	return vec, nil
}

func (e *embedder) Dimension() int {
	return e.dimension
}
