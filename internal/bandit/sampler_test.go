package bandit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestSamplerDrawInRange(t *testing.T) {
	s := NewSamplerWithSource(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		p := s.Draw(float64(i), 100, 10)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestSamplerDeterministicWithSeed(t *testing.T) {
	a := NewSamplerWithSource(rand.NewSource(7))
	b := NewSamplerWithSource(rand.NewSource(7))

	require.Equal(t, a.Draw(80, 100, 100), b.Draw(80, 100, 100))
}

func TestSamplerMeanTracksSuccessRate(t *testing.T) {
	s := NewSamplerWithSource(rand.NewSource(42))

	// Holding trials fixed, more success must raise the estimate.
	high := s.Draw(80, 100, 5000)
	low := s.Draw(20, 100, 5000)

	assert.Greater(t, high, low)
	assert.InDelta(t, 0.8, high, 0.05)
	assert.InDelta(t, 0.2, low, 0.05)
}

func TestSamplerClampsExcessSuccess(t *testing.T) {
	s := NewSamplerWithSource(rand.NewSource(3))

	// Weighted success can exceed raw impressions; the failure count
	// floors at zero instead of producing an invalid posterior.
	p := s.Draw(150, 100, 100)
	assert.Greater(t, p, 0.9)
	assert.LessOrEqual(t, p, 1.0)
}

func TestSamplerDefaultsSampleCount(t *testing.T) {
	s := NewSamplerWithSource(rand.NewSource(5))

	p := s.Draw(10, 100, 0)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}
