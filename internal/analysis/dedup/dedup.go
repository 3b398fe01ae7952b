// Package dedup collapses near-duplicate chunks by embedding similarity.
package dedup

import (
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// DefaultThreshold is the cosine similarity at which two chunks are duplicates.
const DefaultThreshold = 0.92

// Result holds the chunks that survived deduplication.
type Result struct {
	// Chunks are the survivors in their original relative order.
	Chunks []domain.Chunk

	// Embeddings are parallel to Chunks.
	Embeddings [][]float32

	// Removed is the number of chunks discarded.
	Removed int
}

// Dedupe groups chunks whose embeddings have cosine similarity >= threshold
// (transitively) and keeps one chunk per group: the longest text, ties going
// to the earliest index. Comparison is pairwise, O(n^2).
//
// chunks and embeddings must be parallel; a length mismatch panics.
func Dedupe(chunks []domain.Chunk, embeddings [][]float32, threshold float64) Result {
	if len(chunks) != len(embeddings) {
		panic(fmt.Sprintf("dedup: %d chunks but %d embeddings", len(chunks), len(embeddings)))
	}

	n := len(chunks)
	sets := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if sets.find(i) == sets.find(j) {
				continue
			}
			if domain.CosineSimilarity(embeddings[i], embeddings[j]) >= threshold {
				sets.union(i, j)
			}
		}
	}

	// Pick the representative of each class
	keep := make(map[int]int, n)
	for i := 0; i < n; i++ {
		root := sets.find(i)
		best, ok := keep[root]
		if !ok || len(chunks[i].Text) > len(chunks[best].Text) {
			keep[root] = i
		}
	}

	survivor := make([]bool, n)
	for _, i := range keep {
		survivor[i] = true
	}

	res := Result{
		Chunks:     make([]domain.Chunk, 0, len(keep)),
		Embeddings: make([][]float32, 0, len(keep)),
	}
	for i := 0; i < n; i++ {
		if survivor[i] {
			res.Chunks = append(res.Chunks, chunks[i])
			res.Embeddings = append(res.Embeddings, embeddings[i])
		}
	}
	res.Removed = n - len(res.Chunks)

	return res
}

// unionFind is a disjoint-set forest with path compression and union by size.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
		u.size[i] = 1
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}
