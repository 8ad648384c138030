package services

import (
	"fmt"

	"github.com/pocketbase/pocketbase/core"
)

// BaselineRow is the in-memory view of one persisted baseline line item.
type BaselineRow struct {
	ID          string
	RowNumber   string
	Code        string
	Description string
	Unit        string
	Quantity    float64
	UnitPrice   float64
	Amount      float64
	ProductID   string
	Wbs6ID      string
	Wbs7ID      string
}

// Alignment statuses of one reconciled row.
const (
	StatusMatched    = "matched"
	StatusReturnOnly = "return_only"
	StatusMissing    = "missing"
)

// AlignedRow is one reconciled row: a baseline side, a return side, or both.
type AlignedRow struct {
	Baseline  *BaselineRow
	Return    *ParsedLineItem
	Status    string
	MatchedBy string
	Quantity  float64
	UnitPrice float64
	Amount    float64
}

// LoadBaselineRows reads a project's baseline line items ordered by their
// position in the source document.
func LoadBaselineRows(app core.App, projectID string) ([]BaselineRow, error) {
	records, err := app.FindRecordsByFilter("baseline_items",
		"project = {:projectId}", "ordinal", 0, 0, map[string]any{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("load baseline items: %w", err)
	}
	rows := make([]BaselineRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, BaselineRow{
			ID:          r.Id,
			RowNumber:   r.GetString("row_number"),
			Code:        r.GetString("code"),
			Description: r.GetString("description"),
			Unit:        r.GetString("unit"),
			Quantity:    r.GetFloat("quantity"),
			UnitPrice:   r.GetFloat("unit_price"),
			Amount:      r.GetFloat("amount"),
			ProductID:   r.GetString("product_id"),
			Wbs6ID:      r.GetString("wbs6"),
			Wbs7ID:      r.GetString("wbs7"),
		})
	}
	return rows, nil
}

// AlignRows reconciles row-addressed return rows against the baseline.
// Precedence: exact row-number match first; then, for return rows lacking a
// number, greedy first-match-wins description similarity against the
// not-yet-consumed baseline rows. Unmatched return rows are kept as
// return-only additions; unmatched baseline rows retain their baseline
// price and are flagged missing, never deleted.
func AlignRows(baseline []BaselineRow, returns []ParsedLineItem, minSimilarity float64) []AlignedRow {
	byRowNumber := make(map[string]int, len(baseline))
	for i := range baseline {
		if rn := baseline[i].RowNumber; rn != "" {
			if _, ok := byRowNumber[rn]; !ok {
				byRowNumber[rn] = i
			}
		}
	}

	consumed := make([]bool, len(baseline))
	out := make([]AlignedRow, 0, len(baseline)+len(returns))

	for i := range returns {
		ret := &returns[i]

		if ret.RowNumber != "" {
			if bi, ok := byRowNumber[ret.RowNumber]; ok && !consumed[bi] {
				consumed[bi] = true
				out = append(out, reconcilePair(&baseline[bi], ret, "row_number"))
				continue
			}
			out = append(out, returnOnlyRow(ret))
			continue
		}

		matched := false
		for bi := range baseline {
			if consumed[bi] {
				continue
			}
			if SimilarityRatio(ret.Description, baseline[bi].Description) >= minSimilarity {
				consumed[bi] = true
				out = append(out, reconcilePair(&baseline[bi], ret, "similarity"))
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, returnOnlyRow(ret))
		}
	}

	for bi := range baseline {
		if consumed[bi] {
			continue
		}
		b := &baseline[bi]
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

// reconcilePair merges one matched baseline/return pair. The return side
// wins for price and quantity when supplied; the amount is always
// recomputed under the rounding policy.
func reconcilePair(b *BaselineRow, ret *ParsedLineItem, matchedBy string) AlignedRow {
	price := RoundUnitPrice(ret.UnitPrice.Or(b.UnitPrice))
	qty := ret.Quantity.Or(b.Quantity)
	return AlignedRow{
		Baseline:  b,
		Return:    ret,
		Status:    StatusMatched,
		MatchedBy: matchedBy,
		Quantity:  qty,
		UnitPrice: price,
		Amount:    RoundAmount(price * qty),
	}
}

func returnOnlyRow(ret *ParsedLineItem) AlignedRow {
	price := RoundUnitPrice(ret.UnitPrice.Or(0))
	qty := ret.Quantity.Or(0)
	amount := ret.Amount.Or(RoundAmount(price * qty))
	return AlignedRow{
		Return:    ret,
		Status:    StatusReturnOnly,
		Quantity:  qty,
		UnitPrice: price,
		Amount:    amount,
	}
}
