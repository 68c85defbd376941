package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDotAndNorm(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{4, 5, 6}
	assert.Equal(t, float64(32), Dot(a, b))
	assert.InDelta(t, math.Sqrt(14), Norm(a), 1e-9)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-5))
	assert.Equal(t, 1.0, Clamp01(5))
	assert.Equal(t, 0.5, Clamp01(0.5))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite([]float64{1, 2, 3}))
	assert.False(t, Finite([]float64{1, math.NaN()}))
	assert.False(t, Finite([]float64{math.Inf(1)}))
}
