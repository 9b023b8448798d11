package usage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CachedInputFraction approximates cached-input price when a model has
// no published cache price.
const CachedInputFraction = 0.25

// Price is USD per one million tokens.
type Price struct {
	Input       float64  `yaml:"input" json:"input"`
	CachedInput *float64 `yaml:"cached_input,omitempty" json:"cached_input,omitempty"`
	Output      float64  `yaml:"output" json:"output"`
}

// CachedRate returns the cached-input price, falling back to a fraction
// of the regular input price.
func (p Price) CachedRate() float64 {
	if p.CachedInput != nil {
		return *p.CachedInput
	}
	return p.Input * CachedInputFraction
}

// PriceTable is keyed by model name.
type PriceTable map[string]Price

func cached(v float64) *float64 { return &v }

// DefaultPrices returns the built-in table.
func DefaultPrices() PriceTable {
	return PriceTable{
		"gpt-5":                 {Input: 1.25, CachedInput: cached(0.125), Output: 10},
		"gpt-5-mini":            {Input: 0.25, CachedInput: cached(0.025), Output: 2},
		"gpt-5-nano":            {Input: 0.05, CachedInput: cached(0.005), Output: 0.4},
		"gpt-4.1":               {Input: 2, CachedInput: cached(0.5), Output: 8},
		"gpt-4.1-mini":          {Input: 0.4, CachedInput: cached(0.1), Output: 1.6},
		"gpt-4.1-nano":          {Input: 0.1, CachedInput: cached(0.025), Output: 0.4},
		"gemini-2.5-pro":        {Input: 1.25, Output: 10},
		"gemini-2.5-flash":      {Input: 0.3, Output: 2.5},
		"gemini-2.5-flash-lite": {Input: 0.1, Output: 0.4},
	}
}

type priceDocument struct {
	Models map[string]Price `yaml:"models"`
}

// LoadPrices overlays a YAML document of the form
//
//	models:
//	  gpt-4.1-mini: {input: 0.4, cached_input: 0.1, output: 1.6}
//
// on top of the defaults. An empty path or missing file returns the defaults.
func LoadPrices(path string) (PriceTable, error) {
	table := DefaultPrices()
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return table, nil
		}
		return nil, fmt.Errorf("failed to read price table: %w", err)
	}
	var doc priceDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse price table: %w", err)
	}
	for name, price := range doc.Models {
		table[strings.ToLower(name)] = price
	}
	return table, nil
}

// Lookup finds the price of a model. Provider prefixes ("openrouter/openai/")
// are ignored and dated snapshots match their base name by longest prefix.
func (t PriceTable) Lookup(model string) (Price, bool) {
	name := strings.ToLower(model)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if p, ok := t[name]; ok {
		return p, true
	}
	best := ""
	for key := range t {
		if strings.HasPrefix(name, key+"-") && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return Price{}, false
	}
	return t[best], true
}

// Cost is an estimate in USD.
type Cost struct {
	InputCost       float64  `json:"input_cost"`
	CachedInputCost float64  `json:"cached_input_cost"`
	OutputCost      float64  `json:"output_cost"`
	TotalCost       float64  `json:"total_cost"`
	Currency        string   `json:"currency"`
	UnknownModels   []string `json:"unknown_models,omitempty"`
}

// Estimate prices every record. Cached tokens are billed at the cached
// rate and subtracted from regular input.
func (t PriceTable) Estimate(records []Record) Cost {
	cost := Cost{Currency: "USD"}
	unknown := map[string]struct{}{}
	for _, r := range records {
		price, ok := t.Lookup(r.Model)
		if !ok {
			unknown[r.Model] = struct{}{}
			continue
		}
		regular := max(r.InputTokens-r.CachedTokens, 0)
		cost.InputCost += float64(regular) * price.Input / 1e6
		cost.CachedInputCost += float64(r.CachedTokens) * price.CachedRate() / 1e6
		cost.OutputCost += float64(r.OutputTokens) * price.Output / 1e6
	}
	cost.TotalCost = cost.InputCost + cost.CachedInputCost + cost.OutputCost
	for m := range unknown {
		cost.UnknownModels = append(cost.UnknownModels, m)
	}
	sort.Strings(cost.UnknownModels)
	return cost
}
