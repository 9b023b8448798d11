package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReportFileName is the usage export written to the output directory.
const ReportFileName = "token_usage.json"

// Report is the exported usage document.
type Report struct {
	RunID   string   `json:"run_id,omitempty"`
	Summary Summary  `json:"summary"`
	Cost    Cost     `json:"cost_estimate"`
	Calls   []Record `json:"calls"`
}

// BuildReport summarizes and prices a ledger.
func BuildReport(runID string, ledger *Ledger, prices PriceTable) Report {
	records := ledger.Records()
	return Report{
		RunID:   runID,
		Summary: ledger.Summary(),
		Cost:    prices.Estimate(records),
		Calls:   records,
	}
}

// WriteReport writes report as indented JSON to dir/token_usage.json.
func WriteReport(dir string, report Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal usage report: %w", err)
	}
	path := filepath.Join(dir, ReportFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write usage report: %w", err)
	}
	return path, nil
}
