package services

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/pocketbase/pocketbase/core"

	"tenderalign/config"
)

// Round selection policies for a bid-return import.
const (
	RoundPolicyAuto    = "auto"
	RoundPolicyNew     = "new"
	RoundPolicyReplace = "replace"
)

// Alignment modes, selected by the shape of the incoming document.
const (
	ModeRowAddressed     = "row_addressed"
	ModeProductAddressed = "product_addressed"
)

// ReturnImportOptions configures one bid-return import.
type ReturnImportOptions struct {
	ProjectID   string
	CompanyName string
	Policy      string
	Round       int // used by "new" and "replace"
	FileName    string
	Profile     *ColumnProfile
	Embedder    EmbeddingLookup
	// MinSimilarity overrides the configured row-matching threshold when
	// positive.
	MinSimilarity float64
}

// ReturnImportResult is returned to the caller after a successful import.
type ReturnImportResult struct {
	DocumentID string          `json:"document_id"`
	Round      int             `json:"round"`
	Mode       string          `json:"mode"`
	Report     *MatchingReport `json:"report"`
}

// ImportBidReturn reconciles a company's priced return against the
// project's baseline and persists rows, offers and the matching report in
// one transaction. Fatal errors roll everything back; anomalies are
// persisted with the report.
func ImportBidReturn(ctx context.Context, app core.App, cfg *config.Config, file io.Reader, opts ReturnImportOptions) (*ReturnImportResult, error) {
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

	baseline, err := LoadBaselineRows(app, opts.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(baseline) == 0 {
		return nil, validationErrorf("project %s has no baseline document", opts.ProjectID)
	}

	mode := ModeProductAddressed
	for i := range doc.Items {
		if doc.Items[i].RowNumber != "" {
			mode = ModeRowAddressed
			break
		}
	}

	var catalog []*CatalogEntry
	if mode == ModeProductAddressed {
		catalog, err = LoadCatalogEntries(app, opts.ProjectID)
		if err != nil {
			return nil, err
		}
		if len(catalog) == 0 {
			return nil, validationErrorf("project %s has no catalog; product-addressed returns need one", opts.ProjectID)
		}
	}

	minSim := opts.MinSimilarity
	if minSim <= 0 {
		minSim = cfg.Matching.RowSimilarity
	}

	result := &ReturnImportResult{Mode: mode}

	err = app.RunInTransaction(func(txApp core.App) error {
		company, err := UpsertCompany(txApp, opts.CompanyName)
		if err != nil {
			return err
		}

		round, docRecord, err := resolveRound(txApp, opts.ProjectID, company.Id, opts.Policy, opts.Round)
		if err != nil {
			return err
		}
		result.Round = round

		if docRecord == nil {
			col, err := txApp.FindCollectionByNameOrId("bid_documents")
			if err != nil {
				return fmt.Errorf("find bid_documents collection: %w", err)
			}
			docRecord = core.NewRecord(col)
			docRecord.Set("project", opts.ProjectID)
			docRecord.Set("company", company.Id)
			docRecord.Set("round", round)
			docRecord.Set("kind", "return")
		}
		docRecord.Set("source_file", opts.FileName)
		docRecord.Set("mode", mode)

		// Replace semantics: the document's rows and offers are deleted and
		// reinserted inside this same transaction.
		if docRecord.Id != "" {
			if err := deleteDocumentChildren(txApp, docRecord.Id); err != nil {
				return err
			}
		}

		var aligned []AlignedRow
		var findings []Finding
		var offers *OfferSet

		switch mode {
		case ModeRowAddressed:
			aligned = AlignRows(baseline, doc.Items, minSim)
		case ModeProductAddressed:
			prices, dupFindings := ProductPrices(doc.Items)
			findings = append(findings, dupFindings...)
			aligned = BroadcastPrices(baseline, prices)

			ix := BuildCatalogIndex(catalog)
			offerSet, offerFindings := BuildOffers(ctx, ix.Strategies(opts.Embedder), doc.Items)
			offers = offerSet
			findings = append(findings, offerFindings...)
		}

		anomalies, err := DetectAnomalies(aligned, doc.DeclaredTotal, mode == ModeRowAddressed, cfg)
		findings = append(findings, anomalies...)
		if err != nil {
			return err
		}

		if declared, ok := doc.DeclaredTotal.Value(); ok {
			docRecord.Set("declared_total", CeilTotal(declared))
		}
		if err := txApp.Save(docRecord); err != nil {
			return fmt.Errorf("save bid document: %w", err)
		}
		result.DocumentID = docRecord.Id

		if err := saveAlignedRows(txApp, docRecord.Id, aligned); err != nil {
			return err
		}

		offersCreated := 0
		if offers != nil {
			offersCreated = len(offers.Prices)
			if err := saveOffers(txApp, docRecord.Id, offers); err != nil {
				return err
			}
		}

		report := BuildMatchingReport(aligned, findings, offersCreated, len(catalog))
		if err := SaveMatchingReport(txApp, docRecord.Id, report); err != nil {
			return err
		}
		result.Report = report
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("align: %s import for project %s round %d: matched=%d return_only=%d missing=%d",
		mode, opts.ProjectID, result.Round, result.Report.Matched, result.Report.ReturnOnly, result.Report.Missing)
	return result, nil
}

// resolveRound applies the round policy. "auto" takes max(existing)+1;
// "new" requires an unused explicit round; "replace" requires an existing
// one and returns its document for reuse.
func resolveRound(app core.App, projectID, companyID, policy string, round int) (int, *core.Record, error) {
	docs, err := app.FindRecordsByFilter("bid_documents",
		"project = {:projectId} && company = {:companyId} && kind = 'return'", "", 0, 0,
		map[string]any{"projectId": projectID, "companyId": companyID})
	if err != nil {
		return 0, nil, fmt.Errorf("load bid documents: %w", err)
	}

	maxRound := 0
	byRound := make(map[int]*core.Record, len(docs))
	for _, d := range docs {
		r := d.GetInt("round")
		byRound[r] = d
		if r > maxRound {
			maxRound = r
		}
	}

	switch policy {
	case RoundPolicyAuto:
		return maxRound + 1, nil, nil
	case RoundPolicyNew:
		if round <= 0 {
			return 0, nil, validationErrorf("round policy %q requires an explicit round number", policy)
		}
		if _, used := byRound[round]; used {
			return 0, nil, validationErrorf("round %d already exists for this company", round)
		}
		return round, nil, nil
	case RoundPolicyReplace:
		doc, ok := byRound[round]
		if !ok {
			return 0, nil, validationErrorf("round %d does not exist and cannot be replaced", round)
		}
		return round, doc, nil
	default:
		return 0, nil, validationErrorf("unknown round policy %q", policy)
	}
}

func deleteDocumentChildren(app core.App, documentID string) error {
	for _, collection := range []string{"bid_line_items", "bid_offers", "matching_reports"} {
		records, err := app.FindRecordsByFilter(collection,
			"document = {:docId}", "", 0, 0, map[string]any{"docId": documentID})
		if err != nil {
			return fmt.Errorf("load %s for replace: %w", collection, err)
		}
		for _, r := range records {
			if err := app.Delete(r); err != nil {
				return fmt.Errorf("delete %s row: %w", collection, err)
			}
		}
	}
	return nil
}

func saveAlignedRows(app core.App, documentID string, aligned []AlignedRow) error {
	col, err := app.FindCollectionByNameOrId("bid_line_items")
	if err != nil {
		return fmt.Errorf("find bid_line_items collection: %w", err)
	}

	for i, row := range aligned {
		record := core.NewRecord(col)
		record.Set("document", documentID)
		record.Set("ordinal", i)
		record.Set("status", row.Status)
		record.Set("matched_by", row.MatchedBy)
		record.Set("quantity", row.Quantity)
		record.Set("unit_price", row.UnitPrice)
		record.Set("amount", row.Amount)

		switch {
		case row.Return != nil:
			record.Set("row_number", row.Return.RowNumber)
			record.Set("code", row.Return.Code)
			record.Set("description", row.Return.Description)
			record.Set("unit", row.Return.Unit)
		case row.Baseline != nil:
			record.Set("row_number", row.Baseline.RowNumber)
			record.Set("code", row.Baseline.Code)
			record.Set("description", row.Baseline.Description)
			record.Set("unit", row.Baseline.Unit)
		}
		if row.Baseline != nil {
			record.Set("baseline", row.Baseline.ID)
		}

		if err := app.Save(record); err != nil {
			return fmt.Errorf("save bid line %d: %w", i, err)
		}
	}
	return nil
}

func saveOffers(app core.App, documentID string, offers *OfferSet) error {
	col, err := app.FindCollectionByNameOrId("bid_offers")
	if err != nil {
		return fmt.Errorf("find bid_offers collection: %w", err)
	}
	for globalCode, price := range offers.Prices {
		entry := offers.Entries[globalCode]
		record := core.NewRecord(col)
		record.Set("document", documentID)
		record.Set("catalog_entry", entry.ID)
		record.Set("global_code", globalCode)
		record.Set("price", price)
		if err := app.Save(record); err != nil {
			return fmt.Errorf("save offer for %s: %w", globalCode, err)
		}
	}
	return nil
}
