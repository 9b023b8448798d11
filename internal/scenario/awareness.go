package scenario

import (
	"fmt"
	"math/rand"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// WeightedAwareness draws awareness levels from a weight table.
type WeightedAwareness struct {
	levels []types.Awareness
	cumul  []float64
	total  float64
}

// NewWeightedAwareness validates weights. Levels are iterated in canonical
// order so draws are reproducible for a fixed seed.
func NewWeightedAwareness(weights map[types.Awareness]float64) (*WeightedAwareness, error) {
	w := &WeightedAwareness{}
	for _, level := range types.AwarenessLevels {
		weight, ok := weights[level]
		if !ok || weight <= 0 {
			continue
		}
		w.total += weight
		w.levels = append(w.levels, level)
		w.cumul = append(w.cumul, w.total)
	}
	if len(w.levels) == 0 {
		return nil, fmt.Errorf("awareness weights must contain a positive weight")
	}
	return w, nil
}

// Draw picks a level.
func (w *WeightedAwareness) Draw(rng *rand.Rand) types.Awareness {
	target := rng.Float64() * w.total
	for i, c := range w.cumul {
		if target < c {
			return w.levels[i]
		}
	}
	return w.levels[len(w.levels)-1]
}
