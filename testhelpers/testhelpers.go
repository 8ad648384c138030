// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderalign/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// CreateTestProject creates a project record with the given name and tag.
func CreateTestProject(t *testing.T, app *pocketbase.PocketBase, name, tag string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		t.Fatalf("failed to find projects collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("tag", tag)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test project: %v", err)
	}

	return record
}

// CreateTestCompany creates a company record with the given name.
func CreateTestCompany(t *testing.T, app *pocketbase.PocketBase, name, normalizedName string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("companies")
	if err != nil {
		t.Fatalf("failed to find companies collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("normalized_name", normalizedName)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test company: %v", err)
	}

	return record
}

// CreateTestWbs6 creates a WBS6 node for a project.
func CreateTestWbs6(t *testing.T, app *pocketbase.PocketBase, projectID, code, description string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("wbs6_nodes")
	if err != nil {
		t.Fatalf("failed to find wbs6_nodes collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("code", code)
	record.Set("description", description)
	record.Set("label", code+" - "+description)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test wbs6 node: %v", err)
	}

	return record
}

// CreateTestWbs7 creates a WBS7 node under a WBS6 node.
func CreateTestWbs7(t *testing.T, app *pocketbase.PocketBase, wbs6ID, code, description string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("wbs7_nodes")
	if err != nil {
		t.Fatalf("failed to find wbs7_nodes collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("wbs6", wbs6ID)
	record.Set("code", code)
	record.Set("description", description)
	record.Set("label", code+" - "+description)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test wbs7 node: %v", err)
	}

	return record
}

// CreateTestBaselineItem creates one baseline line item bound to a WBS6 node.
func CreateTestBaselineItem(t *testing.T, app *pocketbase.PocketBase, projectID, wbs6ID string, ordinal int, rowNumber, code, description string, qty, price float64) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("baseline_items")
	if err != nil {
		t.Fatalf("failed to find baseline_items collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("wbs6", wbs6ID)
	record.Set("ordinal", ordinal)
	record.Set("row_number", rowNumber)
	record.Set("code", code)
	record.Set("description", description)
	record.Set("unit", "m3")
	record.Set("quantity", qty)
	record.Set("unit_price", price)
	record.Set("amount", qty*price)
	record.Set("product_id", code+"|"+description)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test baseline item: %v", err)
	}

	return record
}

// CreateTestCatalogEntry creates a catalog entry for a project.
func CreateTestCatalogEntry(t *testing.T, app *pocketbase.PocketBase, projectID, itemCode, description, productID, globalCode string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("catalog_entries")
	if err != nil {
		t.Fatalf("failed to find catalog_entries collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("item_code", itemCode)
	record.Set("description", description)
	record.Set("unit", "m3")
	record.Set("product_id", productID)
	record.Set("global_code", globalCode)
	record.Set("prices", map[string]float64{"baseline": 10})

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test catalog entry: %v", err)
	}

	return record
}

// CreateTestBidDocument creates a bid document for a project/company/round.
func CreateTestBidDocument(t *testing.T, app *pocketbase.PocketBase, projectID, companyID string, round int) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("bid_documents")
	if err != nil {
		t.Fatalf("failed to find bid_documents collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("company", companyID)
	record.Set("round", round)
	record.Set("kind", "return")
	record.Set("mode", "row_addressed")

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test bid document: %v", err)
	}

	return record
}

// AssertBodyContains checks that a response body contains all fragments.
func AssertBodyContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected body to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
