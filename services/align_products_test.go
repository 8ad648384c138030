package services

import (
	"context"
	"testing"
)

func TestProductPricesFirstWins(t *testing.T) {
	returns := []ParsedLineItem{
		{Code: "A101", Description: "Scavo", UnitPrice: Some(10.0), Meta: map[string]string{"product_id": "p1"}},
		{Code: "A101", Description: "Scavo", UnitPrice: Some(12.0), Meta: map[string]string{"product_id": "p1"}},
		{Code: "A102", Description: "Getto", UnitPrice: Some(100.0), Meta: map[string]string{"product_id": "p2"}},
		{Code: "A103", Description: "Senza prezzo", Meta: map[string]string{"product_id": "p3"}},
	}

	prices, findings := ProductPrices(returns)
	if len(prices) != 2 {
		t.Fatalf("expected 2 priced products, got %d", len(prices))
	}
	if prices["p1"] != 10 {
		t.Errorf("p1 price = %v, want first-seen 10", prices["p1"])
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 duplicate finding, got %d", len(findings))
	}
}

func TestProductPricesRoundingNoise(t *testing.T) {
	// Both prices round to the same 4-decimal value, so the repeat is
	// not a conflict.
	returns := []ParsedLineItem{
		{Code: "A101", Description: "Scavo", UnitPrice: Some(10.00004), Meta: map[string]string{"product_id": "p1"}},
		{Code: "A101", Description: "Scavo", UnitPrice: Some(10.00001), Meta: map[string]string{"product_id": "p1"}},
	}

	prices, findings := ProductPrices(returns)
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %v", findings)
	}
	if prices["p1"] != 10 {
		t.Errorf("p1 price = %v, want 10", prices["p1"])
	}
}

func TestBroadcastPrices(t *testing.T) {
	baseline := []BaselineRow{
		{ID: "b1", Code: "A101", Description: "Scavo zona A", Quantity: 2, UnitPrice: 8, Amount: 16, ProductID: "p1"},
		{ID: "b2", Code: "A101", Description: "Scavo zona B", Quantity: 3, UnitPrice: 8, Amount: 24, ProductID: "p1"},
		{ID: "b3", Code: "A101", Description: "Scavo zona C", Quantity: 5, UnitPrice: 8, Amount: 40, ProductID: "p1"},
		{ID: "b4", Code: "A102", Description: "Getto", Quantity: 1, UnitPrice: 100, Amount: 100, ProductID: "p2"},
	}
	prices := map[string]float64{"p1": 10}

	rows := BroadcastPrices(baseline, prices)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	// One price, three occurrences, each amount against its own quantity.
	wantAmounts := map[string]float64{"b1": 20, "b2": 30, "b3": 50}
	for _, r := range rows {
		want, ok := wantAmounts[r.Baseline.ID]
		if !ok {
			continue
		}
		if r.Status != StatusMatched || r.UnitPrice != 10 || r.Amount != want {
			t.Errorf("row %s: status=%s price=%v amount=%v, want matched/10/%v",
				r.Baseline.ID, r.Status, r.UnitPrice, r.Amount, want)
		}
	}

	// Unpriced product stays missing with its baseline values.
	last := rows[3]
	if last.Status != StatusMissing || last.UnitPrice != 100 || last.Amount != 100 {
		t.Errorf("row b4: status=%s price=%v amount=%v, want missing/100/100", last.Status, last.UnitPrice, last.Amount)
	}
}

func TestBuildOffersFirstOfferWins(t *testing.T) {
	entries := []*CatalogEntry{
		{ID: "c1", ItemCode: "A101", Description: "Scavo di sbancamento", GlobalCode: "prj::A101::p1"},
	}
	ix := BuildCatalogIndex(entries)
	strategies := ix.Strategies(nil)

	returns := []ParsedLineItem{
		{Ordinal: 1, Code: "A101", Description: "Scavo di sbancamento", UnitPrice: Some(9.5)},
		{Ordinal: 2, Code: "A101", Description: "Scavo di sbancamento", UnitPrice: Some(11.0)},
	}

	offers, findings := BuildOffers(context.Background(), strategies, returns)
	if len(offers.Prices) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(offers.Prices))
	}
	if offers.Prices["prj::A101::p1"] != 9.5 {
		t.Errorf("offer price = %v, want first 9.5", offers.Prices["prj::A101::p1"])
	}
	if len(findings) != 1 || findings[0].Kind != FindingDuplicateOffer {
		t.Fatalf("expected one duplicate_offer finding, got %v", findings)
	}
}
