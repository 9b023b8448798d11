package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/catalog"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/placeholder"
	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// PlaceholderSetup is the lookup chain for a run plus the reconciliation
// audit trail.
type PlaceholderSetup struct {
	Chain          placeholder.Chain
	Reconciled     types.PlaceholderMap
	ReconciledPath string
	Reconcile      *placeholder.ReconcileReport
	Validation     *placeholder.ValidationReport
}

// PreparePlaceholders loads the prepopulated map, reconciles the dynamic map
// against it and persists the result. Once reconciled, lookups use the
// reconciled map only: the two maps have independent code spaces, so a code
// whose tag is missing stays literal. When the dynamic map is unavailable
// the chain falls back to the prepopulated map alone. An invalid reconciled
// map is an error only when strict is set.
func PreparePlaceholders(dynamicPath, prepopulatedPath, outputDir string, strict bool) (PlaceholderSetup, error) {
	var setup PlaceholderSetup
	if prepopulatedPath == "" {
		slog.Warn("no prepopulated placeholder map configured, placeholders stay literal")
		return setup, nil
	}
	prepopulated, err := catalog.LoadPlaceholderMap(prepopulatedPath)
	if err != nil {
		return setup, fmt.Errorf("failed to load prepopulated placeholders: %w", err)
	}
	stats := placeholder.MapStats(prepopulated)
	slog.Info("loaded prepopulated placeholders", "path", prepopulatedPath, "total", stats.Total, "with_substitutions", stats.WithSubstitutions, "empty", stats.Empty)
	fallback := placeholder.NewMapSource("prepopulated", prepopulated)

	if dynamicPath == "" {
		setup.Chain = placeholder.Chain{fallback}
		return setup, nil
	}
	dynamic, err := catalog.LoadPlaceholderMap(dynamicPath)
	if err != nil {
		slog.Warn("failed to load dynamic placeholder map, using prepopulated map only", "path", dynamicPath, "error", err)
		setup.Chain = placeholder.Chain{fallback}
		return setup, nil
	}

	reconciled, report := placeholder.Reconcile(dynamic, prepopulated)
	validation := placeholder.Validate(reconciled)
	setup.Reconciled = reconciled
	setup.Reconcile = &report
	setup.Validation = &validation
	setup.ReconciledPath = placeholder.ReconciledPath(dynamicPath, outputDir)
	if err := catalog.SavePlaceholderMap(setup.ReconciledPath, reconciled); err != nil {
		slog.Warn("failed to persist reconciled placeholder map", "path", setup.ReconciledPath, "error", err)
		setup.ReconciledPath = ""
	}

	if !validation.Valid {
		if strict {
			return setup, fmt.Errorf("%w: %d of %d entries have no substitutions", placeholder.ErrInvalidMap, len(validation.Issues), validation.Total)
		}
		slog.Warn("reconciled placeholder map is invalid, codes without substitutions stay literal", "issues", len(validation.Issues))
	}
	setup.Chain = placeholder.Chain{placeholder.NewMapSource("reconciled", reconciled)}
	return setup, nil
}
