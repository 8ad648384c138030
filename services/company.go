package services

import (
	"fmt"

	"github.com/pocketbase/pocketbase/core"
)

// UpsertCompany finds or creates a company by its normalized label.
// "ACME  Srl" and "acme srl" resolve to the same record.
func UpsertCompany(app core.App, name string) (*core.Record, error) {
	key := NormalizeCompany(name)
	if key == "" {
		return nil, validationErrorf("company name is required")
	}

	existing, err := app.FindFirstRecordByFilter("companies",
		"normalized_name = {:key}", map[string]any{"key": key})
	if err == nil && existing != nil {
		return existing, nil
	}

	col, err := app.FindCollectionByNameOrId("companies")
	if err != nil {
		return nil, fmt.Errorf("find companies collection: %w", err)
	}
	record := core.NewRecord(col)
	record.Set("name", CleanText(name))
	record.Set("normalized_name", key)
	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("create company %q: %w", name, err)
	}
	return record, nil
}
