package services

import (
	"context"
	"fmt"
	"log"
)

// ProductPrices extracts the product-identity → declared-price map from a
// flat return. The first price seen for a product wins; later conflicting
// prices are reported as warnings.
func ProductPrices(returns []ParsedLineItem) (map[string]float64, []Finding) {
	prices := make(map[string]float64)
	var findings []Finding
	for i := range returns {
		ret := &returns[i]
		pid := ret.ProductID()
		if pid == "" {
			continue
		}
		price, ok := ret.UnitPrice.Value()
		if !ok {
			continue
		}
		// Compare rounded against rounded, or sub-precision noise in a
		// repeated price reads as a conflict.
		price = RoundUnitPrice(price)
		if existing, seen := prices[pid]; seen {
			if existing != price {
				findings = append(findings, Finding{
					Kind:    FindingDuplicateRow,
					Message: fmt.Sprintf("product %s priced twice (%v kept, %v dropped)", pid, existing, price),
				})
			}
			continue
		}
		prices[pid] = price
	}
	return prices, findings
}

// BroadcastPrices applies the product-addressed mode: every baseline row
// whose product has a return price receives that single price, and each
// row's amount is recomputed against its own quantity. Rows without a
// matching product retain the baseline price and are flagged missing.
func BroadcastPrices(baseline []BaselineRow, prices map[string]float64) []AlignedRow {
	out := make([]AlignedRow, 0, len(baseline))
	for i := range baseline {
		b := &baseline[i]
		if price, ok := prices[b.ProductID]; ok && b.ProductID != "" {
			out = append(out, AlignedRow{
				Baseline:  b,
				Status:    StatusMatched,
				MatchedBy: "product",
				Quantity:  b.Quantity,
				UnitPrice: price,
				Amount:    RoundAmount(price * b.Quantity),
			})
			continue
		}
		out = append(out, AlignedRow{
			Baseline:  b,
			Status:    StatusMissing,
			Quantity:  b.Quantity,
			UnitPrice: b.UnitPrice,
			Amount:    b.Amount,
		})
	}
	return out
}

// OfferSet is the per-document offer accumulation: one price per catalog
// entry, first match wins.
type OfferSet struct {
	Prices  map[string]float64 // catalog entry ID -> price
	Entries map[string]*CatalogEntry
}

// BuildOffers matches every priced return line to a catalog entry through
// the strategy cascade. A second match to an already-offered entry is
// logged and dropped, not failed.
func BuildOffers(ctx context.Context, strategies []MatchStrategy, returns []ParsedLineItem) (*OfferSet, []Finding) {
	set := &OfferSet{
		Prices:  make(map[string]float64),
		Entries: make(map[string]*CatalogEntry),
	}
	var findings []Finding

	for i := range returns {
		ret := &returns[i]
		price, ok := ret.UnitPrice.Value()
		if !ok {
			continue
		}
		entry, _ := MatchCatalog(ctx, strategies, ret)
		if entry == nil {
			continue
		}
		key := entry.GlobalCode
		if _, offered := set.Prices[key]; offered {
			log.Printf("align: duplicate offer for catalog entry %s dropped (line %d)", key, ret.Ordinal)
			findings = append(findings, Finding{
				Kind:    FindingDuplicateOffer,
				Message: fmt.Sprintf("catalog entry %s offered more than once; first offer kept", key),
			})
			continue
		}
		set.Prices[key] = RoundUnitPrice(price)
		set.Entries[key] = entry
	}
	return set, findings
}
