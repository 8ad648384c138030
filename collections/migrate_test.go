package collections_test

import (
	"strings"
	"testing"

	"tenderalign/collections"
	"tenderalign/testhelpers"
)

func normalizeForTest(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func TestMigrateDuplicateCompanies_Merges(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := testhelpers.CreateTestProject(t, app, "Merge Test", "mrg")

	first := testhelpers.CreateTestCompany(t, app, "ACME Srl", "acme srl")
	second := testhelpers.CreateTestCompany(t, app, "acme  SRL", "acme srl")
	docOfDup := testhelpers.CreateTestBidDocument(t, app, proj.Id, second.Id, 1)

	if err := collections.MigrateDuplicateCompanies(app, normalizeForTest); err != nil {
		t.Fatalf("MigrateDuplicateCompanies() error = %v", err)
	}

	if _, err := app.FindRecordById("companies", second.Id); err == nil {
		t.Error("duplicate company should have been deleted")
	}

	doc, err := app.FindRecordById("bid_documents", docOfDup.Id)
	if err != nil {
		t.Fatalf("document disappeared during merge: %v", err)
	}
	if doc.GetString("company") != first.Id {
		t.Errorf("document company = %s, want survivor %s", doc.GetString("company"), first.Id)
	}
}

func TestMigrateDuplicateCompanies_BackfillsNormalizedName(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	company := testhelpers.CreateTestCompany(t, app, "Beta Impianti SpA", "placeholder")
	company.Set("normalized_name", "")
	if err := app.Save(company); err != nil {
		t.Fatalf("failed to clear normalized name: %v", err)
	}

	if err := collections.MigrateDuplicateCompanies(app, normalizeForTest); err != nil {
		t.Fatalf("MigrateDuplicateCompanies() error = %v", err)
	}

	reloaded, err := app.FindRecordById("companies", company.Id)
	if err != nil {
		t.Fatalf("company disappeared: %v", err)
	}
	if got := reloaded.GetString("normalized_name"); got != "beta impianti spa" {
		t.Errorf("normalized_name = %q, want %q", got, "beta impianti spa")
	}
}

func TestMigrateDuplicateCompanies_NoCompanies(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	if err := collections.MigrateDuplicateCompanies(app, normalizeForTest); err != nil {
		t.Fatalf("MigrateDuplicateCompanies() on empty table error = %v", err)
	}
}
