// Package catalog loads the static entity catalogs a run is built from.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// ErrNotFound is returned when a catalog file does not exist.
var ErrNotFound = errors.New("catalog file not found")

// rawSeed accepts both seed document dialects.
type rawSeed struct {
	SeedID           string   `json:"seed_id"`
	RecordID         *int     `json:"record_id"`
	ScamTag          string   `json:"scam_tag"`
	ScamCategory     string   `json:"scam_category"`
	MetaTag          string   `json:"meta_tag"`
	ScamSummary      string   `json:"scam_summary"`
	Summary          string   `json:"summary"`
	ConversationSeed string   `json:"conversation_seed"`
	QualityScore     *int     `json:"quality_score"`
	Placeholders     []string `json:"placeholders"`
}

func (r rawSeed) toSeed(tag string) (types.Seed, error) {
	seed := types.Seed{
		ID:           r.SeedID,
		Tag:          r.ScamTag,
		Category:     r.ScamCategory,
		Summary:      r.ScamSummary,
		ScenarioText: r.ConversationSeed,
		Placeholders: r.Placeholders,
	}
	if seed.Tag == "" {
		seed.Tag = tag
	}
	if seed.ID == "" && r.RecordID != nil {
		seed.ID = fmt.Sprintf("%d", *r.RecordID)
	}
	if seed.ID == "" {
		seed.ID = seed.Tag
	}
	if seed.Tag == "" {
		seed.Tag = seed.ID
	}
	if seed.Category == "" {
		seed.Category = r.MetaTag
	}
	if seed.Summary == "" {
		seed.Summary = r.Summary
	}
	if seed.ID == "" {
		return types.Seed{}, fmt.Errorf("seed has neither id nor tag")
	}
	if seed.ScenarioText == "" {
		return types.Seed{}, fmt.Errorf("seed %s has no conversation_seed", seed.ID)
	}
	if r.QualityScore == nil {
		return types.Seed{}, fmt.Errorf("seed %s has no quality_score", seed.ID)
	}
	if *r.QualityScore < 0 || *r.QualityScore > 100 {
		return types.Seed{}, fmt.Errorf("seed %s quality_score %d out of range", seed.ID, *r.QualityScore)
	}
	seed.QualityScore = *r.QualityScore
	return seed, nil
}

// Seeds is the read-only seed catalog.
type Seeds struct {
	ordered    []types.Seed
	byKey      map[string]types.Seed
	byCategory map[string][]types.Seed
}

// NewSeeds builds a catalog from already-decoded seeds. Duplicate ids keep
// the first occurrence.
func NewSeeds(seeds []types.Seed) *Seeds {
	c := &Seeds{
		byKey:      make(map[string]types.Seed, len(seeds)),
		byCategory: make(map[string][]types.Seed),
	}
	for _, seed := range seeds {
		key := seed.Key()
		if _, dup := c.byKey[key]; dup {
			slog.Warn("duplicate seed id, keeping first", "seed_id", key)
			continue
		}
		c.byKey[key] = seed
		if seed.Tag != key {
			if _, taken := c.byKey[seed.Tag]; !taken {
				c.byKey[seed.Tag] = seed
			}
		}
		c.ordered = append(c.ordered, seed)
		c.byCategory[seed.Category] = append(c.byCategory[seed.Category], seed)
	}
	return c
}

// LoadSeeds reads a seed document. It accepts either
// {"samples_by_tag": {tag: seed}} or a flat array of seeds.
// Malformed entries are skipped with a warning.
func LoadSeeds(path string) (*Seeds, error) {
	data, err := readCatalog(path)
	if err != nil {
		return nil, err
	}

	var raws []rawSeed
	var tags []string

	var wrapped struct {
		SamplesByTag map[string]json.RawMessage `json:"samples_by_tag"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.SamplesByTag != nil {
		for tag := range wrapped.SamplesByTag {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			var raw rawSeed
			if err := json.Unmarshal(wrapped.SamplesByTag[tag], &raw); err != nil {
				slog.Warn("failed to parse seed", "tag", tag, "error", err)
				raws = append(raws, rawSeed{})
				continue
			}
			raws = append(raws, raw)
		}
	} else {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to parse seeds %s: %w", path, err)
		}
		for i, item := range list {
			var raw rawSeed
			if err := json.Unmarshal(item, &raw); err != nil {
				slog.Warn("failed to parse seed", "index", i, "error", err)
				raws = append(raws, rawSeed{})
				tags = append(tags, "")
				continue
			}
			raws = append(raws, raw)
			tags = append(tags, "")
		}
	}

	seeds := make([]types.Seed, 0, len(raws))
	for i, raw := range raws {
		seed, err := raw.toSeed(tags[i])
		if err != nil {
			slog.Warn("skipping malformed seed", "index", i, "error", err)
			continue
		}
		seeds = append(seeds, seed)
	}

	catalog := NewSeeds(seeds)
	slog.Info("loaded seeds", "path", path, "count", catalog.Len(), "categories", len(catalog.byCategory))
	return catalog, nil
}

// Len returns the number of seeds.
func (c *Seeds) Len() int {
	return len(c.ordered)
}

// Get looks a seed up by id or tag.
func (c *Seeds) Get(key string) (types.Seed, bool) {
	seed, ok := c.byKey[key]
	return seed, ok
}

// All returns seeds in load order.
func (c *Seeds) All() []types.Seed {
	out := make([]types.Seed, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// ByCategory returns seeds in a category.
func (c *Seeds) ByCategory(category string) []types.Seed {
	return append([]types.Seed(nil), c.byCategory[category]...)
}

// Categories returns the sorted category names.
func (c *Seeds) Categories() []string {
	out := make([]string, 0, len(c.byCategory))
	for cat := range c.byCategory {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// HighQuality returns seeds whose score is at least minQuality, in load order.
func (c *Seeds) HighQuality(minQuality int) []types.Seed {
	return FilterByQuality(c.ordered, minQuality)
}

// FilterByQuality keeps seeds scoring at least minQuality.
func FilterByQuality(seeds []types.Seed, minQuality int) []types.Seed {
	out := make([]types.Seed, 0, len(seeds))
	for _, seed := range seeds {
		if seed.QualityScore >= minQuality {
			out = append(out, seed)
		}
	}
	return out
}

// SeedStats summarizes the catalog.
type SeedStats struct {
	Total                int            `json:"total_seeds"`
	Categories           int            `json:"categories"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	MinQuality           int            `json:"min_quality"`
	MaxQuality           int            `json:"max_quality"`
	AvgQuality           float64        `json:"avg_quality"`
}

// Stats computes SeedStats.
func (c *Seeds) Stats() SeedStats {
	stats := SeedStats{
		Total:                len(c.ordered),
		Categories:           len(c.byCategory),
		CategoryDistribution: make(map[string]int, len(c.byCategory)),
	}
	for cat, seeds := range c.byCategory {
		stats.CategoryDistribution[cat] = len(seeds)
	}
	if len(c.ordered) == 0 {
		return stats
	}
	stats.MinQuality = c.ordered[0].QualityScore
	sum := 0
	for _, seed := range c.ordered {
		stats.MinQuality = min(stats.MinQuality, seed.QualityScore)
		stats.MaxQuality = max(stats.MaxQuality, seed.QualityScore)
		sum += seed.QualityScore
	}
	stats.AvgQuality = float64(sum) / float64(len(c.ordered))
	return stats
}

func readCatalog(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return data, nil
}
