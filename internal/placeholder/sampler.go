package placeholder

import (
	"math/rand"
	"sync"
)

// DefaultWindow is the number of recent picks the sampler avoids.
const DefaultWindow = 200

// Sampler prefers candidates absent from a sliding window of recent picks.
// The window is shared by every conversation in a run; the frequency
// counter keeps every pick for auditing.
type Sampler struct {
	mu       sync.Mutex
	size     int
	recent   []string
	inWindow map[string]int
	counts   map[string]int
}

// NewSampler creates a Sampler with the given window size.
func NewSampler(window int) *Sampler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Sampler{
		size:     window,
		recent:   make([]string, 0, window),
		inWindow: make(map[string]int),
		counts:   make(map[string]int),
	}
}

// SampleUnique returns up to k distinct values from candidates, preferring
// ones not seen in the recent window, and records them.
func (s *Sampler) SampleUnique(candidates []string, k int, rng *rand.Rand) []string {
	pool := dedupe(candidates)
	if len(pool) == 0 || k <= 0 {
		return nil
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	s.mu.Lock()
	defer s.mu.Unlock()

	picked := make([]string, 0, min(k, len(pool)))
	var seen []string
	for _, v := range pool {
		if len(picked) == k {
			break
		}
		if s.inWindow[v] > 0 {
			seen = append(seen, v)
			continue
		}
		picked = append(picked, v)
	}
	for _, v := range seen {
		if len(picked) == k {
			break
		}
		picked = append(picked, v)
	}
	for _, v := range picked {
		s.record(v)
	}
	return picked
}

// Pick returns one value, or "" when candidates is empty.
func (s *Sampler) Pick(candidates []string, rng *rand.Rand) string {
	picked := s.SampleUnique(candidates, 1, rng)
	if len(picked) == 0 {
		return ""
	}
	return picked[0]
}

// record must be called with mu held.
func (s *Sampler) record(v string) {
	if len(s.recent) == s.size {
		evicted := s.recent[0]
		s.recent = s.recent[1:]
		if s.inWindow[evicted]--; s.inWindow[evicted] <= 0 {
			delete(s.inWindow, evicted)
		}
	}
	s.recent = append(s.recent, v)
	s.inWindow[v]++
	s.counts[v]++
}

// window returns the window contents, oldest first.
func (s *Sampler) window() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recent...)
}

// Frequencies returns a copy of the global pick counter.
func (s *Sampler) Frequencies() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
