package services

import (
	"testing"
)

func TestGenerateReportPDF_Complete(t *testing.T) {
	data := &ReportExportData{
		ProjectName: "Nuova scuola media",
		CompanyName: "ACME Costruzioni Srl",
		Round:       2,
		Mode:        ModeRowAddressed,
		SourceFile:  "offerta_r2.xlsx",
		Report: &MatchingReport{
			Matched:        120,
			ReturnOnly:     3,
			Missing:        7,
			BaselineRows:   127,
			Coverage:       0.944,
			BaselineAmount: 1250000.00,
			ReturnAmount:   1187500.50,
			DeltaAmount:    -62499.50,
			Examples: map[string][]string{
				FindingQuantityDeviation: {"row 14: return quantity 12 deviates from baseline 10"},
				FindingCoverage:          {"7 of 127 baseline rows missing from return"},
			},
		},
	}

	result, err := GenerateReportPDF(data)
	if err != nil {
		t.Fatalf("GenerateReportPDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateReportPDF() returned empty bytes")
	}
	if len(result) > 5 && string(result[:5]) != "%PDF-" {
		t.Errorf("result does not start with PDF header")
	}
}

func TestGenerateReportPDF_ProductMode(t *testing.T) {
	data := &ReportExportData{
		ProjectName: "Nuova scuola media",
		CompanyName: "Beta Impianti SpA",
		Round:       1,
		Mode:        ModeProductAddressed,
		SourceFile:  "elenco_prezzi.xlsx",
		Report: &MatchingReport{
			Matched:         80,
			BaselineRows:    80,
			Coverage:        1,
			OffersCreated:   45,
			CatalogCoverage: 0.9,
			Examples:        map[string][]string{},
		},
	}

	result, err := GenerateReportPDF(data)
	if err != nil {
		t.Fatalf("GenerateReportPDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateReportPDF() returned empty bytes")
	}
}

func TestGenerateReportPDF_NoFindings(t *testing.T) {
	data := &ReportExportData{
		ProjectName: "Cantiere minimo",
		CompanyName: "Gamma Srl",
		Round:       1,
		Mode:        ModeRowAddressed,
		Report:      &MatchingReport{Matched: 1, BaselineRows: 1, Coverage: 1},
	}

	result, err := GenerateReportPDF(data)
	if err != nil {
		t.Fatalf("GenerateReportPDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateReportPDF() returned empty bytes")
	}
}
