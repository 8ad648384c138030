package services

import (
	"strings"
	"testing"

	"tenderalign/config"
	"tenderalign/testhelpers"
)

const baselineCSV = `ELENCO VOCI,,,,,,
N.,Codice,Descrizione,U.M.,Quantità,Prezzo,Importo
,E012,Opere in c.a.,,,,
1,E012.001,Getto di fondazione in calcestruzzo,m3,"10,00","12,50","125,00"
2,E012.002,Getto pilastri in elevazione,m3,"4,00","110,00","440,00"
,Totale,,,,,"565,00"
`

func TestImportBaseline(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := testhelpers.CreateTestProject(t, app, "Scuola media", "scm")
	cfg := config.Default()

	result, err := ImportBaseline(app, cfg, strings.NewReader(baselineCSV), BaselineImportOptions{
		ProjectID: proj.Id,
		FileName:  "baseline.csv",
	})
	if err != nil {
		t.Fatalf("ImportBaseline() error = %v", err)
	}

	if result.RowsImported != 2 {
		t.Errorf("rows imported = %d, want 2", result.RowsImported)
	}
	if result.CatalogCreated != 2 {
		t.Errorf("catalog entries created = %d, want 2", result.CatalogCreated)
	}

	// The WBS6 node was created lazily from the section row.
	node, err := app.FindFirstRecordByFilter("wbs6_nodes",
		"project = {:p} && code = 'E012'", map[string]any{"p": proj.Id})
	if err != nil {
		t.Fatalf("wbs6 node not created: %v", err)
	}
	if node.GetString("description") != "Opere in c.a." {
		t.Errorf("wbs6 description = %q", node.GetString("description"))
	}

	rows, err := LoadBaselineRows(app, proj.Id)
	if err != nil {
		t.Fatalf("LoadBaselineRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("baseline rows = %d, want 2", len(rows))
	}
	first := rows[0]
	if first.RowNumber != "1" || first.Code != "E012.001" {
		t.Errorf("first row = %q/%q, want 1/E012.001", first.RowNumber, first.Code)
	}
	if first.Quantity != 10 || first.UnitPrice != 12.5 || first.Amount != 125 {
		t.Errorf("first row money = %v/%v/%v, want 10/12.5/125", first.Quantity, first.UnitPrice, first.Amount)
	}
}

func TestImportBaselineReplacesPriorRows(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := testhelpers.CreateTestProject(t, app, "Scuola media", "scm")
	cfg := config.Default()

	opts := BaselineImportOptions{ProjectID: proj.Id, FileName: "baseline.csv"}
	if _, err := ImportBaseline(app, cfg, strings.NewReader(baselineCSV), opts); err != nil {
		t.Fatalf("first import error = %v", err)
	}
	if _, err := ImportBaseline(app, cfg, strings.NewReader(baselineCSV), opts); err != nil {
		t.Fatalf("second import error = %v", err)
	}

	rows, err := LoadBaselineRows(app, proj.Id)
	if err != nil {
		t.Fatalf("LoadBaselineRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("baseline rows after reimport = %d, want 2 (replaced, not appended)", len(rows))
	}

	// Catalog entries persist and are not duplicated.
	entries, err := LoadCatalogEntries(app, proj.Id)
	if err != nil {
		t.Fatalf("LoadCatalogEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("catalog entries after reimport = %d, want 2", len(entries))
	}
}

func TestImportBaselineWithoutHierarchyBinding(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := testhelpers.CreateTestProject(t, app, "Senza WBS", "nwb")
	cfg := config.Default()

	// Codes that never produce a WBS6 binding.
	csv := `N.,Codice,Descrizione,U.M.,Quantità,Prezzo,Importo
1,XYZ,Voce senza struttura,m,"1,00","5,00","5,00"
`
	_, err := ImportBaseline(app, cfg, strings.NewReader(csv), BaselineImportOptions{
		ProjectID: proj.Id,
		FileName:  "baseline.csv",
	})
	if err == nil {
		t.Fatal("expected a validation error when no row binds to a WBS6 node")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestImportBaselineUnknownProject(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	cfg := config.Default()

	_, err := ImportBaseline(app, cfg, strings.NewReader(baselineCSV), BaselineImportOptions{
		ProjectID: "missing123",
		FileName:  "baseline.csv",
	})
	if err == nil {
		t.Fatal("expected an error for an unknown project")
	}
}
