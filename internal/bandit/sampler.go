package bandit

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSampleCount is how many Beta draws are averaged per item when
// no override is given. Averaging trades exploration strength for
// per-call stability; a count of 1 is classic Thompson sampling.
const DefaultSampleCount = 100

// Sampler draws stabilized success-probability estimates from Beta
// posteriors. Safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	src rand.Source
}

// NewSampler creates a time-seeded sampler.
func NewSampler() *Sampler {
	return NewSamplerWithSource(rand.NewSource(uint64(time.Now().UnixNano())))
}

// NewSamplerWithSource creates a sampler with an explicit random
// source, for deterministic tests.
func NewSamplerWithSource(src rand.Source) *Sampler {
	return &Sampler{src: src}
}

// Draw returns the arithmetic mean of n independent samples from
// Beta(1+success, 1+trials-success). The failure count is floored at
// zero for the degenerate case where weighted success exceeds trials.
func (s *Sampler) Draw(success, trials float64, n int) float64 {
	if n < 1 {
		n = DefaultSampleCount
	}

	failures := trials - success
	if failures < 0 {
		failures = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dist := distuv.Beta{
		Alpha: 1 + success,
		Beta:  1 + failures,
		Src:   s.src,
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += dist.Rand()
	}
	return sum / float64(n)
}
