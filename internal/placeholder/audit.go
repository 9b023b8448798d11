package placeholder

import (
	"math"
	"sort"
)

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DiversityReport summarizes how evenly values were picked.
type DiversityReport struct {
	TotalPicks        int          `json:"total_picks"`
	Unique            int          `json:"unique"`
	UniquePercent     float64      `json:"unique_percent"`
	Entropy           float64      `json:"entropy_bits"`
	MaxEntropy        float64      `json:"max_entropy_bits"`
	NormalizedEntropy float64      `json:"normalized_entropy"`
	MostCommon        []ValueCount `json:"most_common"`
}

// Diversity computes a DiversityReport over counts, keeping the top n values.
func Diversity(counts map[string]int, top int) DiversityReport {
	var report DiversityReport
	values := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		if c <= 0 {
			continue
		}
		report.TotalPicks += c
		values = append(values, ValueCount{Value: v, Count: c})
	}
	report.Unique = len(values)
	if report.TotalPicks == 0 {
		return report
	}

	total := float64(report.TotalPicks)
	for _, vc := range values {
		p := float64(vc.Count) / total
		report.Entropy -= p * math.Log2(p)
	}
	report.UniquePercent = 100 * float64(report.Unique) / total
	if report.Unique > 1 {
		report.MaxEntropy = math.Log2(float64(report.Unique))
		report.NormalizedEntropy = report.Entropy / report.MaxEntropy
	}

	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	if top > 0 && len(values) > top {
		values = values[:top]
	}
	report.MostCommon = values
	return report
}
