package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// DefaultMaxIterations bounds a k-means run.
const DefaultMaxIterations = 50

// Result is the outcome of one k-means run.
type Result struct {
	// Assignments maps each point to a cluster in [0, k).
	Assignments []int

	// Centroids are unit-normalised cluster centres.
	Centroids [][]float32

	// Iterations is the number of assignment passes performed.
	Iterations int
}

// distance is cosine distance clamped at zero against rounding.
func distance(a, b []float32) float64 {
	d := domain.CosineDistance(a, b)
	if d < 0 {
		return 0
	}
	return d
}

// InitPlusPlus picks k initial centroids with k-means++.
// The first is chosen uniformly; each next one is sampled with probability
// proportional to the squared distance to its nearest chosen centroid.
func InitPlusPlus(embeddings [][]float32, k int, rng *rand.Rand) ([][]float32, error) {
	n := len(embeddings)
	if k <= 0 || k > n {
		return nil, fmt.Errorf("%w: k=%d for %d points", domain.ErrInvalidInput, k, n)
	}

	centroids := make([][]float32, 0, k)
	centroids = append(centroids, domain.Normalize(embeddings[rng.Intn(n)]))

	nearest := make([]float64, n)
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}

	for len(centroids) < k {
		last := centroids[len(centroids)-1]
		var total float64
		for i, e := range embeddings {
			d := distance(e, last)
			if d*d < nearest[i] {
				nearest[i] = d * d
			}
			total += nearest[i]
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			for i, w := range nearest {
				target -= w
				if target < 0 && w > 0 {
					next = i
					break
				}
			}
			if next < 0 {
				// Rounding left target just above zero; take the last candidate
				for i := n - 1; i >= 0; i-- {
					if nearest[i] > 0 {
						next = i
						break
					}
				}
			}
		} else {
			// Every point coincides with a chosen centroid
			next = rng.Intn(n)
		}
		centroids = append(centroids, domain.Normalize(embeddings[next]))
	}

	return centroids, nil
}

// Assign maps every point to its nearest centroid by cosine distance.
// Ties go to the lowest centroid index.
func Assign(embeddings, centroids [][]float32) []int {
	assignments := make([]int, len(embeddings))
	for i, e := range embeddings {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := distance(e, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		assignments[i] = best
	}
	return assignments
}

// KMeans clusters embeddings into k groups, running at most maxIter
// assignment passes and stopping early once no point changes cluster.
// A centroid that loses all its members keeps its previous position.
func KMeans(embeddings [][]float32, k, maxIter int, rng *rand.Rand) (Result, error) {
	if maxIter <= 0 {
		return Result{}, fmt.Errorf("%w: maxIter=%d", domain.ErrInvalidInput, maxIter)
	}
	centroids, err := InitPlusPlus(embeddings, k, rng)
	if err != nil {
		return Result{}, err
	}

	assignments := make([]int, len(embeddings))
	for i := range assignments {
		assignments[i] = -1
	}

	res := Result{}
	for res.Iterations < maxIter {
		res.Iterations++

		next := Assign(embeddings, centroids)
		changed := false
		for i := range next {
			if next[i] != assignments[i] {
				changed = true
				break
			}
		}
		assignments = next
		if !changed {
			break
		}

		members := make([][][]float32, k)
		for i, c := range assignments {
			members[c] = append(members[c], embeddings[i])
		}
		for c := range centroids {
			if len(members[c]) > 0 {
				centroids[c] = domain.Mean(members[c])
			}
		}
	}

	res.Assignments = assignments
	res.Centroids = centroids
	return res, nil
}

// Sizes returns the number of members of each of k clusters.
func Sizes(assignments []int, k int) []int {
	sizes := make([]int, k)
	for _, c := range assignments {
		sizes[c]++
	}
	return sizes
}
