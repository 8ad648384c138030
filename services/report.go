package services

import (
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase/core"
)

// reportExampleCap bounds the example list persisted per anomaly category.
const reportExampleCap = 5

// MatchingReport summarizes one bid-return import. One report exists per
// bid document; re-importing overwrites it.
type MatchingReport struct {
	Matched    int `json:"matched"`
	ReturnOnly int `json:"return_only"`
	Missing    int `json:"missing"`

	BaselineRows int     `json:"baseline_rows"`
	Coverage     float64 `json:"coverage"`

	BaselineQuantity float64 `json:"baseline_quantity"`
	ReturnQuantity   float64 `json:"return_quantity"`
	DeltaQuantity    float64 `json:"delta_quantity"`
	BaselineAmount   float64 `json:"baseline_amount"`
	ReturnAmount     float64 `json:"return_amount"`
	DeltaAmount      float64 `json:"delta_amount"`

	OffersCreated   int     `json:"offers_created"`
	CatalogCoverage float64 `json:"catalog_coverage"`

	Examples map[string][]string `json:"examples"`
	Note     string              `json:"note"`
}

// BuildMatchingReport aggregates alignment output and anomaly findings.
// catalogSize is 0 for row-addressed imports, where no offer matching runs.
func BuildMatchingReport(rows []AlignedRow, findings []Finding, offersCreated, catalogSize int) *MatchingReport {
	r := &MatchingReport{Examples: make(map[string][]string)}

	for _, row := range rows {
		switch row.Status {
		case StatusMatched:
			r.Matched++
		case StatusReturnOnly:
			r.ReturnOnly++
		case StatusMissing:
			r.Missing++
		}
		if row.Baseline != nil {
			r.BaselineRows++
			r.BaselineQuantity += row.Baseline.Quantity
			r.BaselineAmount += row.Baseline.Amount
		}
		if row.Status != StatusMissing {
			r.ReturnQuantity += row.Quantity
			r.ReturnAmount += row.Amount
		}
	}
	r.DeltaQuantity = r.ReturnQuantity - r.BaselineQuantity
	r.BaselineAmount = RoundAmount(r.BaselineAmount)
	r.ReturnAmount = RoundAmount(r.ReturnAmount)
	r.DeltaAmount = RoundAmount(r.ReturnAmount - r.BaselineAmount)
	if r.BaselineRows > 0 {
		r.Coverage = float64(r.Matched) / float64(r.BaselineRows)
	}

	r.OffersCreated = offersCreated
	if catalogSize > 0 {
		r.CatalogCoverage = float64(offersCreated) / float64(catalogSize)
	}

	var notes []string
	for _, f := range findings {
		if len(r.Examples[f.Kind]) < reportExampleCap {
			r.Examples[f.Kind] = append(r.Examples[f.Kind], f.Message)
		}
		notes = append(notes, f.Message)
	}
	r.Note = strings.Join(notes, "; ")

	return r
}

// SaveMatchingReport persists the report for a bid document, overwriting
// any prior one.
func SaveMatchingReport(app core.App, documentID string, report *MatchingReport) error {
	existing, err := app.FindRecordsByFilter("matching_reports",
		"document = {:docId}", "", 0, 0, map[string]any{"docId": documentID})
	if err == nil {
		for _, r := range existing {
			if err := app.Delete(r); err != nil {
				return fmt.Errorf("delete prior report: %w", err)
			}
		}
	}

	col, err := app.FindCollectionByNameOrId("matching_reports")
	if err != nil {
		return fmt.Errorf("find matching_reports collection: %w", err)
	}
	record := core.NewRecord(col)
	record.Set("document", documentID)
	record.Set("matched", report.Matched)
	record.Set("return_only", report.ReturnOnly)
	record.Set("missing", report.Missing)
	record.Set("coverage", report.Coverage)
	record.Set("baseline_quantity", report.BaselineQuantity)
	record.Set("return_quantity", report.ReturnQuantity)
	record.Set("delta_quantity", report.DeltaQuantity)
	record.Set("baseline_amount", report.BaselineAmount)
	record.Set("return_amount", report.ReturnAmount)
	record.Set("delta_amount", report.DeltaAmount)
	record.Set("offers_created", report.OffersCreated)
	record.Set("catalog_coverage", report.CatalogCoverage)
	record.Set("examples", report.Examples)
	record.Set("note", report.Note)

	if err := app.Save(record); err != nil {
		return fmt.Errorf("save matching report: %w", err)
	}
	return nil
}

// LoadMatchingReport reads the persisted report of a bid document.
func LoadMatchingReport(app core.App, documentID string) (*MatchingReport, error) {
	record, err := app.FindFirstRecordByFilter("matching_reports",
		"document = {:docId}", map[string]any{"docId": documentID})
	if err != nil {
		return nil, validationErrorf("no matching report for document %s", documentID)
	}

	report := &MatchingReport{
		Matched:          record.GetInt("matched"),
		ReturnOnly:       record.GetInt("return_only"),
		Missing:          record.GetInt("missing"),
		Coverage:         record.GetFloat("coverage"),
		BaselineQuantity: record.GetFloat("baseline_quantity"),
		ReturnQuantity:   record.GetFloat("return_quantity"),
		DeltaQuantity:    record.GetFloat("delta_quantity"),
		BaselineAmount:   record.GetFloat("baseline_amount"),
		ReturnAmount:     record.GetFloat("return_amount"),
		DeltaAmount:      record.GetFloat("delta_amount"),
		OffersCreated:    record.GetInt("offers_created"),
		CatalogCoverage:  record.GetFloat("catalog_coverage"),
		Note:             record.GetString("note"),
		Examples:         make(map[string][]string),
	}
	record.UnmarshalJSONField("examples", &report.Examples)
	report.BaselineRows = report.Matched + report.Missing
	return report, nil
}
