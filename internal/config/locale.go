package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Locale carries the per-locale values used by prompts and post-processing.
type Locale struct {
	ID              string   `yaml:"id"`
	Language        string   `yaml:"language"`
	Region          string   `yaml:"region"`
	OrWord          string   `yaml:"or_word"`
	CurrencyMarkers []string `yaml:"currency_markers"`
	LegitCategories []string `yaml:"legit_categories"`
	NameTags        []string `yaml:"name_tags"`
	Guidance        []string `yaml:"guidance"`
}

// DefaultLocale returns the built-in Malaysian locale.
func DefaultLocale() Locale {
	return Locale{
		ID:              "ms-my",
		Language:        "Malay",
		Region:          "Malaysia",
		OrWord:          "atau",
		CurrencyMarkers: []string{"RM", "$"},
		LegitCategories: []string{
			"bank_account_inquiry",
			"delivery_confirmation",
			"medical_appointment_reminder",
			"utility_billing_question",
			"insurance_policy_renewal",
			"telco_plan_upgrade",
		},
		NameTags: []string{
			"caller_name",
			"callee_name",
			"malay_male_name",
			"malay_female_name",
			"chinese_malay_name",
			"indian_malay_name",
		},
		Guidance: []string{
			"Use natural Malaysian Malay as spoken on the phone, with occasional English code-switching.",
			"Refer to money in Ringgit (RM).",
		},
	}
}

// LoadLocale reads a locale YAML document. A missing file yields the
// built-in default with id overridden.
func LoadLocale(path, id string) (Locale, error) {
	locale := DefaultLocale()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("locale config not found, using defaults", "path", path, "locale", id)
			if id != "" {
				locale.ID = id
			}
			return locale, nil
		}
		return Locale{}, fmt.Errorf("failed to read locale config: %w", err)
	}

	var parsed Locale
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Locale{}, fmt.Errorf("failed to parse locale config %s: %w", path, err)
	}
	mergeLocale(&locale, parsed)
	if locale.ID == "" {
		locale.ID = id
	}
	return locale, nil
}

func mergeLocale(dst *Locale, src Locale) {
	if src.ID != "" {
		dst.ID = src.ID
	}
	if src.Language != "" {
		dst.Language = src.Language
	}
	if src.Region != "" {
		dst.Region = src.Region
	}
	if src.OrWord != "" {
		dst.OrWord = src.OrWord
	}
	if len(src.CurrencyMarkers) > 0 {
		dst.CurrencyMarkers = src.CurrencyMarkers
	}
	if len(src.LegitCategories) > 0 {
		dst.LegitCategories = src.LegitCategories
	}
	if len(src.NameTags) > 0 {
		dst.NameTags = src.NameTags
	}
	if len(src.Guidance) > 0 {
		dst.Guidance = src.Guidance
	}
}
