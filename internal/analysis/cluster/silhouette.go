package cluster

import "github.com/custodia-labs/sercha-kb/internal/core/domain"

// maxCachedPoints caps the cached distance matrix. The lower triangle holds
// n(n-1)/2 float32 values, about 32 MiB at this size; larger inputs compute
// each distance when asked.
const maxCachedPoints = 4096

// distances answers pairwise cosine distances, from a cached lower
// triangle when the input is small enough to hold one.
type distances struct {
	embeddings [][]float32
	data       []float32
}

func newDistances(embeddings [][]float32) *distances {
	return cachedDistances(embeddings, maxCachedPoints)
}

func cachedDistances(embeddings [][]float32, limit int) *distances {
	n := len(embeddings)
	d := &distances{embeddings: embeddings}
	if n > limit {
		return d
	}
	d.data = make([]float32, n*(n-1)/2)
	for i := 1; i < n; i++ {
		row := i * (i - 1) / 2
		for j := 0; j < i; j++ {
			d.data[row+j] = float32(distance(embeddings[i], embeddings[j]))
		}
	}
	return d
}

func (d *distances) at(i, j int) float64 {
	if i == j {
		return 0
	}
	if d.data == nil {
		return distance(d.embeddings[i], d.embeddings[j])
	}
	if i < j {
		i, j = j, i
	}
	return float64(d.data[i*(i-1)/2+j])
}

// Silhouette returns the mean silhouette coefficient of a clustering.
// Points in clusters with fewer than two members are left out of the mean.
// It returns 0 when no point qualifies.
func Silhouette(embeddings [][]float32, assignments []int, k int) float64 {
	if len(embeddings) != len(assignments) {
		panic(domain.ErrInvalidInput)
	}
	return silhouette(newDistances(embeddings), assignments, k)
}

func silhouette(d *distances, assignments []int, k int) float64 {
	sizes := Sizes(assignments, k)

	var total float64
	var counted int
	sums := make([]float64, k)
	for i, own := range assignments {
		if sizes[own] < 2 {
			continue
		}

		for c := range sums {
			sums[c] = 0
		}
		for j, c := range assignments {
			if j != i {
				sums[c] += d.at(i, j)
			}
		}

		a := sums[own] / float64(sizes[own]-1)
		b := -1.0
		for c, size := range sizes {
			if c == own || size == 0 {
				continue
			}
			if mean := sums[c] / float64(size); b < 0 || mean < b {
				b = mean
			}
		}

		var s float64
		if b >= 0 {
			if m := max(a, b); m > 0 {
				s = (b - a) / m
			}
		}
		total += s
		counted++
	}

	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}
