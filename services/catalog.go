package services

import (
	"context"
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"
)

// CatalogEntry is the project-scoped canonical product identity a bid offer
// attaches to, decoupled from any one document.
type CatalogEntry struct {
	ID          string
	ItemCode    string
	Description string
	Unit        string
	ProductID   string
	GlobalCode  string
	Prices      map[string]float64
}

// GlobalCode builds the unique catalog identity: project-tag::item-code::product-id.
func GlobalCode(projectTag, itemCode, productID string) string {
	return fmt.Sprintf("%s::%s::%s", projectTag, itemCode, productID)
}

func contentSignature(code, description, unit string) string {
	return NormalizeCode(code) + "|" + NormalizeLabel(description) + "|" + NormalizeLabel(unit)
}

// CatalogIndex holds the lookup structures over a project's catalog. Built
// once per import and passed through the call chain; never shared.
type CatalogIndex struct {
	entries     []*CatalogEntry
	byCode      map[string]*CatalogEntry
	bySignature map[string]*CatalogEntry
	byHead      map[string]*CatalogEntry
	byTail      map[string]*CatalogEntry
}

// BuildCatalogIndex indexes the entries by exact code, content signature and
// head/tail code segments. The first entry wins on key collisions.
func BuildCatalogIndex(entries []*CatalogEntry) *CatalogIndex {
	ix := &CatalogIndex{
		entries:     entries,
		byCode:      make(map[string]*CatalogEntry, len(entries)),
		bySignature: make(map[string]*CatalogEntry, len(entries)),
		byHead:      make(map[string]*CatalogEntry, len(entries)),
		byTail:      make(map[string]*CatalogEntry, len(entries)),
	}
	for _, e := range entries {
		code := NormalizeCode(e.ItemCode)
		if code == "" {
			continue
		}
		setFirst(ix.byCode, code, e)
		setFirst(ix.bySignature, contentSignature(e.ItemCode, e.Description, e.Unit), e)
		if head := splitCodeHead(code); head != "" && head != code {
			setFirst(ix.byHead, head, e)
		}
		if tail := splitCodeTail(code); tail != "" {
			setFirst(ix.byTail, tail, e)
		}
	}
	return ix
}

func setFirst(m map[string]*CatalogEntry, key string, e *CatalogEntry) {
	if _, ok := m[key]; !ok {
		m[key] = e
	}
}

// MatchStrategy is one tier of the cascading catalog matcher. Strategies are
// tried in order; each tier runs only when the previous found nothing.
type MatchStrategy interface {
	Name() string
	Match(ctx context.Context, line *ParsedLineItem) *CatalogEntry
}

// Strategies returns the cascade in its fixed order: exact code, content
// signature, head-of-code, tail-of-code, and (when an embedder is supplied)
// semantic-embedding nearest neighbor.
func (ix *CatalogIndex) Strategies(embedder EmbeddingLookup) []MatchStrategy {
	strategies := []MatchStrategy{
		codeStrategy{ix},
		signatureStrategy{ix},
		headStrategy{ix},
		tailStrategy{ix},
	}
	if embedder != nil {
		strategies = append(strategies, &embeddingStrategy{ix: ix, embedder: embedder})
	}
	return strategies
}

// MatchCatalog runs the cascade and returns the matched entry and the name
// of the strategy that found it, or nil when no tier matched.
func MatchCatalog(ctx context.Context, strategies []MatchStrategy, line *ParsedLineItem) (*CatalogEntry, string) {
	for _, s := range strategies {
		if entry := s.Match(ctx, line); entry != nil {
			return entry, s.Name()
		}
	}
	return nil, ""
}

type codeStrategy struct{ ix *CatalogIndex }

func (s codeStrategy) Name() string { return "code" }

func (s codeStrategy) Match(_ context.Context, line *ParsedLineItem) *CatalogEntry {
	if line.Code == "" {
		return nil
	}
	return s.ix.byCode[NormalizeCode(line.Code)]
}

type signatureStrategy struct{ ix *CatalogIndex }

func (s signatureStrategy) Name() string { return "signature" }

func (s signatureStrategy) Match(_ context.Context, line *ParsedLineItem) *CatalogEntry {
	if line.Description == "" {
		return nil
	}
	return s.ix.bySignature[contentSignature(line.Code, line.Description, line.Unit)]
}

type headStrategy struct{ ix *CatalogIndex }

func (s headStrategy) Name() string { return "head" }

func (s headStrategy) Match(_ context.Context, line *ParsedLineItem) *CatalogEntry {
	code := NormalizeCode(line.Code)
	if code == "" {
		return nil
	}
	return s.ix.byHead[splitCodeHead(code)]
}

type tailStrategy struct{ ix *CatalogIndex }

func (s tailStrategy) Name() string { return "tail" }

func (s tailStrategy) Match(_ context.Context, line *ParsedLineItem) *CatalogEntry {
	tail := splitCodeTail(NormalizeCode(line.Code))
	if tail == "" {
		return nil
	}
	return s.ix.byTail[tail]
}

type embeddingStrategy struct {
	ix       *CatalogIndex
	embedder EmbeddingLookup
}

func (s *embeddingStrategy) Name() string { return "embedding" }

// Match consults the semantic tier. Any failure skips the tier without
// aborting the import.
func (s *embeddingStrategy) Match(ctx context.Context, line *ParsedLineItem) *CatalogEntry {
	if line.Description == "" {
		return nil
	}
	match, err := s.embedder.Nearest(ctx, line.Description, s.ix.entries)
	if err != nil {
		log.Printf("catalog: embedding tier skipped: %v", err)
		return nil
	}
	if match == nil {
		return nil
	}
	for _, e := range s.ix.entries {
		if e.GlobalCode == match.GlobalCode {
			return e
		}
	}
	return nil
}

// LoadCatalogEntries reads a project's catalog from storage.
func LoadCatalogEntries(app core.App, projectID string) ([]*CatalogEntry, error) {
	records, err := app.FindRecordsByFilter("catalog_entries",
		"project = {:projectId}", "item_code", 0, 0, map[string]any{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("load catalog entries: %w", err)
	}
	entries := make([]*CatalogEntry, 0, len(records))
	for _, r := range records {
		entry := &CatalogEntry{
			ID:          r.Id,
			ItemCode:    r.GetString("item_code"),
			Description: r.GetString("description"),
			Unit:        r.GetString("unit"),
			ProductID:   r.GetString("product_id"),
			GlobalCode:  r.GetString("global_code"),
			Prices:      map[string]float64{},
		}
		r.UnmarshalJSONField("prices", &entry.Prices)
		entries = append(entries, entry)
	}
	return entries, nil
}
