package memory_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/rasad8686/agentcore/memory"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"mismatched lengths", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, memory.CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarityProperties(t *testing.T) {
	t.Parallel()

	vecGen := rapid.SliceOfN(rapid.Float64Range(-100, 100), 1, 16)

	t.Run("symmetric", rapid.MakeCheck(func(t *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(t, "n")
		a := rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n).Draw(t, "a")
		b := rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n).Draw(t, "b")
		ab := memory.CosineSimilarity(a, b)
		ba := memory.CosineSimilarity(b, a)
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("not symmetric: %v vs %v", ab, ba)
		}
	}))

	t.Run("bounded", rapid.MakeCheck(func(t *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(t, "n")
		a := rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n).Draw(t, "a")
		b := rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n).Draw(t, "b")
		sim := memory.CosineSimilarity(a, b)
		if sim < -1-1e-9 || sim > 1+1e-9 {
			t.Fatalf("similarity out of range: %v", sim)
		}
	}))

	t.Run("self similarity is one for nonzero vectors", rapid.MakeCheck(func(t *rapid.T) {
		a := vecGen.Draw(t, "a")
		nonzero := false
		for _, v := range a {
			if v != 0 {
				nonzero = true
				break
			}
		}
		sim := memory.CosineSimilarity(a, a)
		if nonzero {
			if math.Abs(sim-1) > 1e-9 {
				t.Fatalf("self similarity = %v", sim)
			}
		} else if sim != 0 {
			t.Fatalf("zero vector self similarity = %v", sim)
		}
	}))

	t.Run("mismatched lengths are zero", rapid.MakeCheck(func(t *rapid.T) {
		a := vecGen.Draw(t, "a")
		b := vecGen.Draw(t, "b")
		if len(a) == len(b) {
			b = append(b, 1)
		}
		if memory.CosineSimilarity(a, b) != 0 {
			t.Fatal("mismatched lengths must score zero")
		}
	}))
}
