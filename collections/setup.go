package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// Setup programmatically creates/ensures every collection the engine uses:
// projects, the WBS hierarchy tables, baseline line items, the product
// catalog, companies, bid documents with their lines, offers and matching
// reports, and saved parser column profiles.
func Setup(app *pocketbase.PocketBase) {
	projects := ensureCollection(app, "projects", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "tag", Required: false})
		c.Fields.Add(&core.TextField{Name: "client", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	spatial := ensureCollection(app, "wbs_spatial_nodes", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "level", Required: true})
		c.Fields.Add(&core.TextField{Name: "code", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
	ensureSelfRelation(app, spatial, "parent")

	wbs6 := ensureCollection(app, "wbs6_nodes", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "code", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "label", Required: false})
		c.Fields.Add(&core.RelationField{
			Name:         "spatial",
			Required:     false,
			CollectionId: spatial.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	wbs7 := ensureCollection(app, "wbs7_nodes", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "wbs6",
			Required:      true,
			CollectionId:  wbs6.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "code", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "label", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	baselineItems := ensureCollection(app, "baseline_items", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "ordinal", Required: false})
		c.Fields.Add(&core.TextField{Name: "row_number", Required: false})
		c.Fields.Add(&core.TextField{Name: "code", Required: false})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "unit", Required: false})
		c.Fields.Add(&core.NumberField{Name: "quantity", Required: false})
		c.Fields.Add(&core.NumberField{Name: "unit_price", Required: false})
		c.Fields.Add(&core.NumberField{Name: "amount", Required: false})
		c.Fields.Add(&core.RelationField{
			Name:         "wbs6",
			Required:     true,
			CollectionId: wbs6.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "wbs7",
			Required:     false,
			CollectionId: wbs7.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.TextField{Name: "product_id", Required: false})
		c.Fields.Add(&core.TextField{Name: "note", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	catalogEntries := ensureCollection(app, "catalog_entries", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "item_code", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "unit", Required: false})
		c.Fields.Add(&core.TextField{Name: "product_id", Required: true})
		c.Fields.Add(&core.TextField{Name: "global_code", Required: true})
		c.Fields.Add(&core.JSONField{Name: "prices", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	companies := ensureCollection(app, "companies", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "normalized_name", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	bidDocuments := ensureCollection(app, "bid_documents", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "company",
			Required:     true,
			CollectionId: companies.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.NumberField{Name: "round", Required: true})
		c.Fields.Add(&core.SelectField{
			Name:      "kind",
			Required:  true,
			Values:    []string{"baseline", "return"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.SelectField{
			Name:      "mode",
			Required:  false,
			Values:    []string{"row_addressed", "product_addressed"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "source_file", Required: false})
		c.Fields.Add(&core.NumberField{Name: "declared_total", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "bid_line_items", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "document",
			Required:      true,
			CollectionId:  bidDocuments.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "baseline",
			Required:     false,
			CollectionId: baselineItems.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.NumberField{Name: "ordinal", Required: false})
		c.Fields.Add(&core.TextField{Name: "row_number", Required: false})
		c.Fields.Add(&core.TextField{Name: "code", Required: false})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "unit", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    []string{"matched", "return_only", "missing"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "matched_by", Required: false})
		c.Fields.Add(&core.NumberField{Name: "quantity", Required: false})
		c.Fields.Add(&core.NumberField{Name: "unit_price", Required: false})
		c.Fields.Add(&core.NumberField{Name: "amount", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "bid_offers", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "document",
			Required:      true,
			CollectionId:  bidDocuments.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "catalog_entry",
			Required:     false,
			CollectionId: catalogEntries.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.TextField{Name: "global_code", Required: true})
		c.Fields.Add(&core.NumberField{Name: "price", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	})

	ensureCollection(app, "matching_reports", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "document",
			Required:      true,
			CollectionId:  bidDocuments.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "matched", Required: false})
		c.Fields.Add(&core.NumberField{Name: "return_only", Required: false})
		c.Fields.Add(&core.NumberField{Name: "missing", Required: false})
		c.Fields.Add(&core.NumberField{Name: "coverage", Required: false})
		c.Fields.Add(&core.NumberField{Name: "baseline_quantity", Required: false})
		c.Fields.Add(&core.NumberField{Name: "return_quantity", Required: false})
		c.Fields.Add(&core.NumberField{Name: "delta_quantity", Required: false})
		c.Fields.Add(&core.NumberField{Name: "baseline_amount", Required: false})
		c.Fields.Add(&core.NumberField{Name: "return_amount", Required: false})
		c.Fields.Add(&core.NumberField{Name: "delta_amount", Required: false})
		c.Fields.Add(&core.NumberField{Name: "offers_created", Required: false})
		c.Fields.Add(&core.NumberField{Name: "catalog_coverage", Required: false})
		c.Fields.Add(&core.JSONField{Name: "examples", Required: false})
		c.Fields.Add(&core.TextField{Name: "note", Required: false, Max: 10000})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	})

	ensureCollection(app, "column_profiles", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.JSONField{Name: "profile", Required: true})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Printf("Collection %q already exists, skipping creation.\n", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}

// ensureSelfRelation adds a self-referencing relation field after the
// collection exists, since the field needs the collection's own id.
func ensureSelfRelation(app *pocketbase.PocketBase, collection *core.Collection, fieldName string) {
	if collection.Fields.GetByName(fieldName) != nil {
		return
	}
	collection.Fields.Add(&core.RelationField{
		Name:         fieldName,
		Required:     false,
		CollectionId: collection.Id,
		MaxSelect:    1,
	})
	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to add %q relation to collection %q: %v", fieldName, collection.Name, err)
	}
}
