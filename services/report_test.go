package services

import (
	"fmt"
	"strings"
	"testing"

	"tenderalign/testhelpers"
)

func TestBuildMatchingReportCounts(t *testing.T) {
	b1 := BaselineRow{ID: "b1", Quantity: 10, Amount: 100}
	b2 := BaselineRow{ID: "b2", Quantity: 5, Amount: 50}
	ret := ParsedLineItem{RowNumber: "1"}

	rows := []AlignedRow{
		{Baseline: &b1, Return: &ret, Status: StatusMatched, Quantity: 10, Amount: 120},
		{Baseline: &b2, Status: StatusMissing, Quantity: 5, Amount: 50},
		{Return: &ret, Status: StatusReturnOnly, Quantity: 1, Amount: 30},
	}

	r := BuildMatchingReport(rows, nil, 0, 0)
	if r.Matched != 1 || r.Missing != 1 || r.ReturnOnly != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/1", r.Matched, r.Missing, r.ReturnOnly)
	}
	if r.BaselineRows != 2 {
		t.Errorf("baseline rows = %d, want 2", r.BaselineRows)
	}
	if r.Coverage != 0.5 {
		t.Errorf("coverage = %v, want 0.5", r.Coverage)
	}
	if r.BaselineQuantity != 15 {
		t.Errorf("baseline quantity = %v, want 15", r.BaselineQuantity)
	}
	// Missing rows do not contribute to the return side.
	if r.ReturnQuantity != 11 {
		t.Errorf("return quantity = %v, want 11", r.ReturnQuantity)
	}
	if r.DeltaQuantity != -4 {
		t.Errorf("quantity delta = %v, want -4", r.DeltaQuantity)
	}
	if r.BaselineAmount != 150 {
		t.Errorf("baseline amount = %v, want 150", r.BaselineAmount)
	}
	if r.ReturnAmount != 150 {
		t.Errorf("return amount = %v, want 150", r.ReturnAmount)
	}
	if r.DeltaAmount != 0 {
		t.Errorf("delta = %v, want 0", r.DeltaAmount)
	}
}

func TestBuildMatchingReportExampleCap(t *testing.T) {
	var findings []Finding
	for i := 0; i < 12; i++ {
		findings = append(findings, Finding{
			Kind:    FindingQuantityDeviation,
			Message: fmt.Sprintf("row %d deviates", i),
		})
	}

	r := BuildMatchingReport(nil, findings, 0, 0)
	if got := len(r.Examples[FindingQuantityDeviation]); got != reportExampleCap {
		t.Fatalf("examples kept = %d, want cap %d", got, reportExampleCap)
	}
	// The note still carries every message.
	if got := strings.Count(r.Note, "deviates"); got != 12 {
		t.Errorf("note mentions %d findings, want 12", got)
	}
}

func TestMatchingReportPersistsQuantityTotals(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	project := testhelpers.CreateTestProject(t, app, "Ponte sul Ticino", "pt")
	company := testhelpers.CreateTestCompany(t, app, "Impresa Rossi", "impresa rossi")
	doc := testhelpers.CreateTestBidDocument(t, app, project.Id, company.Id, 1)

	saved := &MatchingReport{
		Matched:          2,
		BaselineRows:     2,
		BaselineQuantity: 12.5,
		ReturnQuantity:   11,
		DeltaQuantity:    -1.5,
		Examples:         map[string][]string{},
	}
	if err := SaveMatchingReport(app, doc.Id, saved); err != nil {
		t.Fatalf("SaveMatchingReport() error = %v", err)
	}

	got, err := LoadMatchingReport(app, doc.Id)
	if err != nil {
		t.Fatalf("LoadMatchingReport() error = %v", err)
	}
	if got.BaselineQuantity != 12.5 {
		t.Errorf("baseline quantity = %v, want 12.5", got.BaselineQuantity)
	}
	if got.ReturnQuantity != 11 {
		t.Errorf("return quantity = %v, want 11", got.ReturnQuantity)
	}
	if got.DeltaQuantity != -1.5 {
		t.Errorf("quantity delta = %v, want -1.5", got.DeltaQuantity)
	}
}

func TestBuildMatchingReportCatalogCoverage(t *testing.T) {
	r := BuildMatchingReport(nil, nil, 3, 4)
	if r.OffersCreated != 3 {
		t.Errorf("offers = %d, want 3", r.OffersCreated)
	}
	if r.CatalogCoverage != 0.75 {
		t.Errorf("catalog coverage = %v, want 0.75", r.CatalogCoverage)
	}
}
