package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_LengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	})
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{3, 4}, []float32{3, 4}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	out := Normalize(zero)
	assert.Equal(t, zero, out)
	out[0] = 1
	assert.Equal(t, float32(0), zero[0], "Normalize must copy")
}

func TestMean(t *testing.T) {
	assert.Nil(t, Mean(nil))

	m := Mean([][]float32{{1, 0}, {0, 1}})
	assert.InDelta(t, math.Sqrt2/2, m[0], 1e-6)
	assert.InDelta(t, math.Sqrt2/2, m[1], 1e-6)
}

func TestIsUsableVector(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	assert.True(t, IsUsableVector([]float32{0, 0.5}))
	assert.False(t, IsUsableVector(nil))
	assert.False(t, IsUsableVector([]float32{0, 0}))
	assert.False(t, IsUsableVector([]float32{1, nan}))
	assert.False(t, IsUsableVector([]float32{inf, 1}))
}
