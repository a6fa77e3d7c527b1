package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"magnitude independent", []float32{3, 4}, []float32{6, 8}, 1},
		{"general case", []float32{0.6, 0.8}, []float32{0.8, 0.6}, 0.96},
		{"different lengths use common prefix", []float32{1, 2, 3}, []float32{1, 2}, 1},
		{"empty vectors", []float32{}, []float32{}, 0},
		{"one empty", []float32{1, 2}, nil, 0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"NaN component", []float32{float32(math.NaN()), 1}, []float32{1, 1}, 0},
		{"infinite component", []float32{float32(math.Inf(1)), 1}, []float32{1, 1}, 0},
		{"both infinite", []float32{float32(math.Inf(1))}, []float32{float32(math.Inf(-1))}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 0.0001)
			assert.GreaterOrEqual(t, got, float32(-1))
			assert.LessOrEqual(t, got, float32(1))
		})
	}
}
