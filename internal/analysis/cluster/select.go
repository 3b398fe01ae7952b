package cluster

import (
	"fmt"
	"math/rand"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// Selection is the clustering chosen by SelectOptimalK.
type Selection struct {
	// K is the chosen number of clusters.
	K int

	// Score is the mean silhouette of the chosen clustering.
	Score float64

	// Result is the k-means run for K.
	Result Result
}

// SelectOptimalK runs k-means once for every k in [minK, maxK] and keeps the
// k with the highest mean silhouette, the smaller k winning ties.
// minK is raised to 2 and maxK lowered to n-1. With two points or fewer
// clustering is skipped and everything lands in a single cluster.
func SelectOptimalK(embeddings [][]float32, minK, maxK, maxIter int, rng *rand.Rand) (Selection, error) {
	n := len(embeddings)
	if n == 0 {
		return Selection{}, fmt.Errorf("%w: no embeddings to cluster", domain.ErrInvalidInput)
	}
	if minK < 0 || maxK < 0 {
		return Selection{}, fmt.Errorf("%w: k range [%d, %d]", domain.ErrInvalidInput, minK, maxK)
	}
	if maxIter <= 0 {
		return Selection{}, fmt.Errorf("%w: maxIter=%d", domain.ErrInvalidInput, maxIter)
	}

	if n <= 2 {
		return Selection{
			K: 1,
			Result: Result{
				Assignments: make([]int, n),
				Centroids:   [][]float32{domain.Mean(embeddings)},
			},
		}, nil
	}

	lo := min(max(minK, 2), n-1)
	hi := max(min(maxK, n-1), lo)

	d := newDistances(embeddings)
	var best Selection
	for k := lo; k <= hi; k++ {
		res, err := KMeans(embeddings, k, maxIter, rng)
		if err != nil {
			return Selection{}, err
		}
		score := silhouette(d, res.Assignments, k)
		if best.K == 0 || score > best.Score {
			best = Selection{K: k, Score: score, Result: res}
		}
	}

	return best, nil
}
