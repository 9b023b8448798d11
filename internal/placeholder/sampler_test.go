package placeholder

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerPrefersValuesOutsideWindow(t *testing.T) {
	s := NewSampler(3)
	rng := rand.New(rand.NewSource(5))
	candidates := []string{"a", "b", "c", "d"}

	first := s.SampleUnique(candidates, 3, rng)
	require.Len(t, first, 3)

	next := s.Pick(candidates, rng)
	for _, v := range first {
		assert.NotEqual(t, v, next, "value in the recent window must not be preferred")
	}
}

func TestSamplerFallsBackWhenAllSeen(t *testing.T) {
	s := NewSampler(10)
	rng := rand.New(rand.NewSource(1))
	s.SampleUnique([]string{"a", "b"}, 2, rng)

	got := s.SampleUnique([]string{"a", "b", "a"}, 5, rng)
	assert.ElementsMatch(t, []string{"a", "b"}, got)
	assert.Equal(t, map[string]int{"a": 2, "b": 2}, s.Frequencies())
}

func TestSamplerWindowEvictsFIFO(t *testing.T) {
	s := NewSampler(2)
	rng := rand.New(rand.NewSource(1))
	s.Pick([]string{"x"}, rng)
	s.Pick([]string{"y"}, rng)
	s.Pick([]string{"z"}, rng)

	assert.Equal(t, []string{"y", "z"}, s.window())
	assert.Equal(t, "x", s.Pick([]string{"x", "y", "z"}, rng))
	assert.Equal(t, 2, s.Frequencies()["x"])
}

func TestSamplerEmptyCandidates(t *testing.T) {
	s := NewSampler(0)
	rng := rand.New(rand.NewSource(1))
	assert.Empty(t, s.SampleUnique(nil, 1, rng))
	assert.Equal(t, "", s.Pick([]string{""}, rng))
}

func TestDiversityReport(t *testing.T) {
	report := Diversity(map[string]int{"a": 2, "b": 1, "c": 1}, 2)
	assert.Equal(t, 4, report.TotalPicks)
	assert.Equal(t, 3, report.Unique)
	assert.InDelta(t, 1.5, report.Entropy, 1e-9)
	assert.InDelta(t, 75.0, report.UniquePercent, 1e-9)
	require.Len(t, report.MostCommon, 2)
	assert.Equal(t, ValueCount{Value: "a", Count: 2}, report.MostCommon[0])
	assert.Equal(t, ValueCount{Value: "b", Count: 1}, report.MostCommon[1])

	empty := Diversity(nil, 5)
	assert.Zero(t, empty.Entropy)
}
