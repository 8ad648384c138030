package services

import (
	"fmt"
	"strings"

	"tenderalign/config"
)

// Finding kinds accumulated into the matching report.
const (
	FindingDuplicateRow      = "duplicate_row"
	FindingQuantityDeviation = "quantity_deviation"
	FindingForcedZero        = "forced_zero"
	FindingCoverage          = "coverage"
	FindingTotalMismatch     = "total_mismatch"
	FindingDuplicateOffer    = "duplicate_offer"
	FindingPriceAdjustment   = "price_adjustment"
)

// Finding is one non-fatal anomaly. Findings never abort an import; they
// are persisted with the report so a corrected re-upload can be compared
// against the prior attempt's diagnostics.
type Finding struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// DetectAnomalies post-processes the alignment output. The only fatal
// outcome is a coverage of exactly zero matched rows against a non-empty
// baseline, returned as a ValidationError.
func DetectAnomalies(rows []AlignedRow, declaredTotal Optional[float64], rowAddressed bool, cfg *config.Config) ([]Finding, error) {
	var findings []Finding

	findings = append(findings, detectDuplicateRowNumbers(rows)...)
	findings = append(findings, detectPriceAdjustments(rows)...)
	if rowAddressed {
		findings = append(findings, detectQuantityDeviations(rows, cfg.Anomalies.QuantityTolerance)...)
	}
	findings = append(findings, detectForcedZeroViolations(rows, cfg.Anomalies.ForcedZeroKeywords)...)

	matched, missing := 0, 0
	for _, r := range rows {
		switch r.Status {
		case StatusMatched:
			matched++
		case StatusMissing:
			missing++
		}
	}
	baselineTotal := matched + missing
	if baselineTotal > 0 && matched == 0 {
		return findings, validationErrorf("no return row matched any of the %d baseline rows", baselineTotal)
	}
	if missing > 0 {
		findings = append(findings, Finding{
			Kind:    FindingCoverage,
			Message: fmt.Sprintf("%d of %d baseline rows missing from return", missing, baselineTotal),
		})
	}

	if declared, ok := declaredTotal.Value(); ok {
		var sum float64
		for _, r := range rows {
			if r.Status != StatusMissing {
				sum += r.Amount
			}
		}
		sum = RoundAmount(sum)
		if !nearlyEqual(sum, declared, cfg.Anomalies.TotalTolerance) {
			findings = append(findings, Finding{
				Kind:    FindingTotalMismatch,
				Message: fmt.Sprintf("computed row total %.2f differs from declared total %.2f", sum, declared),
			})
		}
	}

	return findings, nil
}

func detectDuplicateRowNumbers(rows []AlignedRow) []Finding {
	seen := make(map[string]int)
	for _, r := range rows {
		if r.Return != nil && r.Return.RowNumber != "" {
			seen[r.Return.RowNumber]++
		}
	}
	var findings []Finding
	for rn, count := range seen {
		if count > 1 {
			findings = append(findings, Finding{
				Kind:    FindingDuplicateRow,
				Message: fmt.Sprintf("row number %s appears %d times in the return", rn, count),
			})
		}
	}
	return findings
}

// detectPriceAdjustments surfaces rows whose unit price the parser repaired
// from swapped price/amount source columns.
func detectPriceAdjustments(rows []AlignedRow) []Finding {
	var findings []Finding
	for _, r := range rows {
		if r.Return == nil {
			continue
		}
		if reason, ok := r.Return.Meta[metaPriceAdjusted]; ok {
			findings = append(findings, Finding{
				Kind:    FindingPriceAdjustment,
				Message: fmt.Sprintf("row %s: %s", rowLabel(r), reason),
			})
		}
	}
	return findings
}

func detectQuantityDeviations(rows []AlignedRow, tolerance float64) []Finding {
	var findings []Finding
	for _, r := range rows {
		if r.Status != StatusMatched || r.Baseline == nil || r.Return == nil {
			continue
		}
		qty, ok := r.Return.Quantity.Value()
		if !ok {
			continue
		}
		if relativeDeviation(qty, r.Baseline.Quantity) > tolerance {
			findings = append(findings, Finding{
				Kind: FindingQuantityDeviation,
				Message: fmt.Sprintf("row %s: return quantity %v deviates from baseline %v",
					rowLabel(r), qty, r.Baseline.Quantity),
			})
		}
	}
	return findings
}

// detectForcedZeroViolations flags administrative-cost rows (coordination,
// assistance, markup charges) that are contractually required to carry zero
// quantity, price and amount.
func detectForcedZeroViolations(rows []AlignedRow, keywords []string) []Finding {
	var findings []Finding
	for _, r := range rows {
		desc := ""
		if r.Return != nil {
			desc = r.Return.Description
		} else if r.Baseline != nil {
			desc = r.Baseline.Description
		}
		if !matchesForcedZero(desc, keywords) {
			continue
		}
		if r.Quantity != 0 || r.UnitPrice != 0 || r.Amount != 0 {
			findings = append(findings, Finding{
				Kind: FindingForcedZero,
				Message: fmt.Sprintf("row %s: administrative-cost item %q must be zero valued (qty=%v price=%v amount=%v)",
					rowLabel(r), desc, r.Quantity, r.UnitPrice, r.Amount),
			})
		}
	}
	return findings
}

func matchesForcedZero(description string, keywords []string) bool {
	label := NormalizeLabel(description)
	if label == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(label, NormalizeLabel(kw)) {
			return true
		}
	}
	return false
}

func rowLabel(r AlignedRow) string {
	if r.Return != nil && r.Return.RowNumber != "" {
		return r.Return.RowNumber
	}
	if r.Baseline != nil && r.Baseline.RowNumber != "" {
		return r.Baseline.RowNumber
	}
	if r.Return != nil && r.Return.Code != "" {
		return r.Return.Code
	}
	return "?"
}
