package services

import (
	"testing"

	"tenderalign/testhelpers"
)

func TestUpsertCompany(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	first, err := UpsertCompany(app, "ACME  Costruzioni Srl")
	if err != nil {
		t.Fatalf("UpsertCompany() error = %v", err)
	}
	if first.GetString("name") != "ACME Costruzioni Srl" {
		t.Errorf("name = %q, want cleaned display name", first.GetString("name"))
	}

	// A differently cased and spaced spelling resolves to the same record.
	second, err := UpsertCompany(app, "acme costruzioni SRL")
	if err != nil {
		t.Fatalf("UpsertCompany() second call error = %v", err)
	}
	if second.Id != first.Id {
		t.Errorf("second upsert created a new record %s, want %s", second.Id, first.Id)
	}

	records, err := app.FindRecordsByFilter("companies", "id != ''", "", 0, 0)
	if err != nil {
		t.Fatalf("load companies: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("companies = %d, want 1", len(records))
	}
}

func TestUpsertCompanyEmptyName(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if _, err := UpsertCompany(app, "   "); err == nil {
		t.Fatal("expected a validation error for an empty company name")
	}
}
