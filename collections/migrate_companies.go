package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
)

// MigrateDuplicateCompanies backfills missing normalized names and merges
// company records that normalize to the same label, re-pointing their bid
// documents to the surviving record. The caller supplies the normalizer so
// this package stays independent of the matching logic. Safe to call on
// every startup -- returns early if nothing to migrate.
func MigrateDuplicateCompanies(app *pocketbase.PocketBase, normalize func(string) string) error {
	companies, err := app.FindRecordsByFilter("companies", "id != ''", "created", 0, 0)
	if err != nil {
		return fmt.Errorf("migrate: could not query companies: %w", err)
	}
	if len(companies) == 0 {
		return nil
	}

	survivors := make(map[string]string) // normalized name -> surviving id
	merged := 0

	for _, company := range companies {
		key := company.GetString("normalized_name")
		if key == "" {
			key = normalize(company.GetString("name"))
			company.Set("normalized_name", key)
			if err := app.Save(company); err != nil {
				log.Printf("migrate: failed to backfill normalized name for company %s: %v\n", company.Id, err)
				continue
			}
		}

		survivorID, seen := survivors[key]
		if !seen {
			survivors[key] = company.Id
			continue
		}

		// Duplicate: move its documents to the survivor, then drop it.
		docs, err := app.FindRecordsByFilter("bid_documents",
			"company = {:companyId}", "", 0, 0, map[string]any{"companyId": company.Id})
		if err != nil {
			return fmt.Errorf("migrate: could not query documents of company %s: %w", company.Id, err)
		}
		for _, doc := range docs {
			doc.Set("company", survivorID)
			if err := app.Save(doc); err != nil {
				return fmt.Errorf("migrate: failed to re-point document %s: %w", doc.Id, err)
			}
		}
		if err := app.Delete(company); err != nil {
			return fmt.Errorf("migrate: failed to delete duplicate company %s: %w", company.Id, err)
		}
		merged++
	}

	if merged > 0 {
		log.Printf("migrate: merged %d duplicate company record(s)\n", merged)
	}
	return nil
}
