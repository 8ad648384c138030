package services

import (
	"fmt"
	"io"
	"log"

	"github.com/pocketbase/pocketbase/core"

	"tenderalign/config"
)

// BaselinePriceList is the price-list key a catalog entry stores the
// baseline unit price under.
const BaselinePriceList = "baseline"

// BaselineImportOptions selects the target of a baseline import.
type BaselineImportOptions struct {
	ProjectID string
	FileName  string
	Profile   *ColumnProfile
}

// BaselineImportResult summarizes a baseline import.
type BaselineImportResult struct {
	RowsImported   int      `json:"rows_imported"`
	CatalogCreated int      `json:"catalog_created"`
	Warnings       []string `json:"warnings,omitempty"`
}

// ImportBaseline parses the authoritative quantity takeoff and replaces the
// project's baseline line items in one transaction. Catalog entries are
// upserted from the recovered product identities; they outlive any single
// document and are never deleted here.
func ImportBaseline(app core.App, cfg *config.Config, file io.Reader, opts BaselineImportOptions) (*BaselineImportResult, error) {
	grid, err := ReadSheet(file, opts.FileName)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(grid, cfg, opts.Profile)
	if err != nil {
		return nil, err
	}
	if len(doc.Items) == 0 {
		return nil, structuralErrorf("no line items recovered from %s", opts.FileName)
	}

	project, err := app.FindRecordById("projects", opts.ProjectID)
	if err != nil {
		return nil, validationErrorf("project %s not found", opts.ProjectID)
	}
	projectTag := project.GetString("tag")
	if projectTag == "" {
		projectTag = project.Id
	}

	result := &BaselineImportResult{}

	err = app.RunInTransaction(func(txApp core.App) error {
		// Reimport replaces the whole baseline.
		existing, err := txApp.FindRecordsByFilter("baseline_items",
			"project = {:projectId}", "", 0, 0, map[string]any{"projectId": opts.ProjectID})
		if err != nil {
			return fmt.Errorf("load prior baseline: %w", err)
		}
		for _, r := range existing {
			if err := txApp.Delete(r); err != nil {
				return fmt.Errorf("delete prior baseline item: %w", err)
			}
		}

		wbs6Cache := make(map[string]string)
		wbs7Cache := make(map[string]string)
		catalogCache := make(map[string]bool)

		itemsCol, err := txApp.FindCollectionByNameOrId("baseline_items")
		if err != nil {
			return fmt.Errorf("find baseline_items collection: %w", err)
		}

		for i := range doc.Items {
			item := &doc.Items[i]

			wbs6ID, err := resolveWbs6(txApp, opts.ProjectID, item, wbs6Cache)
			if err != nil {
				return err
			}
			if wbs6ID == "" {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("row %s (%s) has no WBS6 and was skipped", item.RowNumber, item.Code))
				continue
			}
			wbs7ID, err := resolveWbs7(txApp, wbs6ID, item, wbs7Cache)
			if err != nil {
				return err
			}

			record := core.NewRecord(itemsCol)
			record.Set("project", opts.ProjectID)
			record.Set("ordinal", item.Ordinal)
			record.Set("row_number", item.RowNumber)
			record.Set("code", item.Code)
			record.Set("description", item.Description)
			record.Set("unit", item.Unit)
			record.Set("quantity", item.Quantity.Or(0))
			record.Set("unit_price", item.UnitPrice.Or(0))
			record.Set("amount", item.Amount.Or(0))
			record.Set("wbs6", wbs6ID)
			if wbs7ID != "" {
				record.Set("wbs7", wbs7ID)
			}
			record.Set("product_id", item.ProductID())
			record.Set("note", item.Note)
			if err := txApp.Save(record); err != nil {
				return fmt.Errorf("save baseline item %d: %w", item.Ordinal, err)
			}
			result.RowsImported++

			if reason, ok := item.Meta[metaPriceAdjusted]; ok {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("row %s (%s): %s", item.RowNumber, item.Code, reason))
			}

			created, err := upsertCatalogEntry(txApp, opts.ProjectID, projectTag, item, catalogCache)
			if err != nil {
				return err
			}
			if created {
				result.CatalogCreated++
			}
		}

		if result.RowsImported == 0 {
			return validationErrorf("no baseline row could be bound to a WBS6 node; import the hierarchy first")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("baseline: imported %d rows, %d catalog entries created, %d skipped",
		result.RowsImported, result.CatalogCreated, len(result.Warnings))
	return result, nil
}

// resolveWbs6 finds (or lazily creates) the WBS6 node an item's path names.
// The cache is transaction-scoped and keyed by code.
func resolveWbs6(app core.App, projectID string, item *ParsedLineItem, cache map[string]string) (string, error) {
	code := item.Path.Wbs6().Code
	if code == "" {
		return "", nil
	}
	if id, ok := cache[code]; ok {
		return id, nil
	}

	record, err := app.FindFirstRecordByFilter("wbs6_nodes",
		"project = {:projectId} && code = {:code}",
		map[string]any{"projectId": projectID, "code": code})
	if err == nil && record != nil {
		cache[code] = record.Id
		return record.Id, nil
	}

	if !wbs6Pattern.MatchString(code) {
		return "", nil
	}
	col, err := app.FindCollectionByNameOrId("wbs6_nodes")
	if err != nil {
		return "", fmt.Errorf("find wbs6_nodes collection: %w", err)
	}
	seg := item.Path.Wbs6()
	record = core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("code", code)
	record.Set("description", seg.Description)
	record.Set("label", Wbs6Label(seg))
	if err := app.Save(record); err != nil {
		return "", fmt.Errorf("create wbs6 node %s: %w", code, err)
	}
	cache[code] = record.Id
	return record.Id, nil
}

func resolveWbs7(app core.App, wbs6ID string, item *ParsedLineItem, cache map[string]string) (string, error) {
	code := item.Path.Wbs7().Code
	if code == "" || !wbs7Pattern.MatchString(code) {
		return "", nil
	}
	key := wbs6ID + "|" + code
	if id, ok := cache[key]; ok {
		return id, nil
	}

	record, err := app.FindFirstRecordByFilter("wbs7_nodes",
		"wbs6 = {:wbs6} && code = {:code}",
		map[string]any{"wbs6": wbs6ID, "code": code})
	if err == nil && record != nil {
		cache[key] = record.Id
		return record.Id, nil
	}

	col, err := app.FindCollectionByNameOrId("wbs7_nodes")
	if err != nil {
		return "", fmt.Errorf("find wbs7_nodes collection: %w", err)
	}
	seg := item.Path.Wbs7()
	record = core.NewRecord(col)
	record.Set("wbs6", wbs6ID)
	record.Set("code", code)
	record.Set("description", seg.Description)
	record.Set("label", Wbs6Label(seg))
	if err := app.Save(record); err != nil {
		return "", fmt.Errorf("create wbs7 node %s: %w", code, err)
	}
	cache[key] = record.Id
	return record.Id, nil
}

// upsertCatalogEntry creates the catalog identity for an item when missing.
// Global codes are unique; an existing entry is left untouched.
func upsertCatalogEntry(app core.App, projectID, projectTag string, item *ParsedLineItem, cache map[string]bool) (bool, error) {
	productID := item.ProductID()
	if productID == "" || item.Code == "" {
		return false, nil
	}
	globalCode := GlobalCode(projectTag, item.Code, productID)
	if cache[globalCode] {
		return false, nil
	}

	existing, err := app.FindFirstRecordByFilter("catalog_entries",
		"global_code = {:gc}", map[string]any{"gc": globalCode})
	if err == nil && existing != nil {
		cache[globalCode] = true
		return false, nil
	}

	col, err := app.FindCollectionByNameOrId("catalog_entries")
	if err != nil {
		return false, fmt.Errorf("find catalog_entries collection: %w", err)
	}
	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("item_code", item.Code)
	record.Set("description", item.Description)
	record.Set("unit", item.Unit)
	record.Set("product_id", productID)
	record.Set("global_code", globalCode)
	record.Set("prices", map[string]float64{BaselinePriceList: item.UnitPrice.Or(0)})
	if err := app.Save(record); err != nil {
		return false, fmt.Errorf("create catalog entry %s: %w", globalCode, err)
	}
	cache[globalCode] = true
	return true, nil
}
