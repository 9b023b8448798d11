package placeholder

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/Chen-zexi/synthetic-voice-dataset/internal/types"
)

// ReconciledFileName is the audit copy written next to the dynamic map.
const ReconciledFileName = "reconciled_placeholder_map.json"

// ErrInvalidMap is returned in strict mode when validation fails.
var ErrInvalidMap = errors.New("reconciled placeholder map is invalid")

const (
	maxMissingLogged = 5
	maxIssuesLogged  = 10
)

// ReconcileReport describes how the two maps lined up.
type ReconcileReport struct {
	Matched     int      `json:"matched"`
	MissingTags []string `json:"missing_tags"`
	UnusedTags  []string `json:"unused_tags"`
}

// Reconcile aligns a dynamic map (codes discovered during preprocessing)
// with a prepopulated one by tag. The result is keyed by dynamic code and
// carries the prepopulated values. Tags the prepopulated map lacks keep the
// dynamic entry, with empty substitutions.
func Reconcile(dynamic, prepopulated types.PlaceholderMap) (types.PlaceholderMap, ReconcileReport) {
	byTag := prepopulated.ByTag()
	out := make(types.PlaceholderMap, len(dynamic))
	used := make(map[string]struct{}, len(byTag))
	var report ReconcileReport

	codes := make([]string, 0, len(dynamic))
	for code := range dynamic {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		dyn := dynamic[code]
		src, ok := byTag[dyn.Tag]
		if !ok {
			out[code] = types.PlaceholderEntry{
				Tag:           dyn.Tag,
				Substitutions: cloneStrings(dyn.Substitutions),
				Translations:  cloneStrings(dyn.Translations),
				Description:   dyn.Description,
			}
			report.MissingTags = append(report.MissingTags, dyn.Tag)
			continue
		}
		used[dyn.Tag] = struct{}{}
		out[code] = types.PlaceholderEntry{
			Tag:           dyn.Tag,
			Substitutions: cloneStrings(src.Substitutions),
			Translations:  cloneStrings(src.Translations),
			Description:   src.Description,
		}
		report.Matched++
	}

	for tag := range byTag {
		if _, ok := used[tag]; !ok {
			report.UnusedTags = append(report.UnusedTags, tag)
		}
	}
	sort.Strings(report.UnusedTags)

	slog.Info("reconciled placeholder maps", "dynamic", len(dynamic), "prepopulated", len(prepopulated), "matched", report.Matched, "missing", len(report.MissingTags))
	for i, tag := range report.MissingTags {
		if i == maxMissingLogged {
			slog.Warn("more placeholder tags missing from prepopulated map", "remaining", len(report.MissingTags)-maxMissingLogged)
			break
		}
		slog.Warn("placeholder tag missing from prepopulated map", "tag", tag)
	}
	if len(report.UnusedTags) > 0 {
		slog.Info("prepopulated placeholder tags not used by dynamic map", "count", len(report.UnusedTags))
	}
	return out, report
}

// ValidationReport lists entries without substitutions.
type ValidationReport struct {
	Valid       bool     `json:"valid"`
	Total       int      `json:"total"`
	MissingTags []string `json:"missing_tags"`
	Issues      []string `json:"issues"`
}

// Validate reports whether every entry has a non-empty substitution list.
func Validate(m types.PlaceholderMap) ValidationReport {
	report := ValidationReport{Valid: true, Total: len(m)}
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		entry := m[code]
		if len(entry.Substitutions) > 0 {
			continue
		}
		report.Valid = false
		report.MissingTags = append(report.MissingTags, entry.Tag)
		report.Issues = append(report.Issues, fmt.Sprintf("code %s (%s) has no substitutions", code, entry.Tag))
	}

	for i, issue := range report.Issues {
		if i == maxIssuesLogged {
			slog.Warn("more placeholder validation issues", "remaining", len(report.Issues)-maxIssuesLogged)
			break
		}
		slog.Warn("placeholder validation issue", "issue", issue)
	}
	return report
}

// ReconciledPath returns where the reconciled map is persisted: next to the
// dynamic map, or in outputDir when no dynamic path is known.
func ReconciledPath(dynamicPath, outputDir string) string {
	if dynamicPath != "" {
		return filepath.Join(filepath.Dir(dynamicPath), ReconciledFileName)
	}
	return filepath.Join(outputDir, ReconciledFileName)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string{}, in...)
}
