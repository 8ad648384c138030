package services

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// SimilarityRatio computes a character-sequence similarity ratio between two
// strings after normalization (lowercase, accent folding, whitespace
// collapse). 1.0 means identical, 0.0 means nothing in common.
func SimilarityRatio(a, b string) float64 {
	na, nb := NormalizeLabel(a), NormalizeLabel(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}
	m := difflib.NewMatcher(explodeRunes(na), explodeRunes(nb))
	return m.Ratio()
}

// TokenOverlap computes the share of tokens the two normalized descriptions
// have in common, relative to the smaller token set. Catches reworded labels
// that a character ratio underrates.
func TokenOverlap(a, b string) float64 {
	ta := tokenSet(NormalizeLabel(a))
	tb := tokenSet(NormalizeLabel(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	smaller := ta
	if len(tb) < len(ta) {
		smaller = tb
	}
	common := 0
	for tok := range ta {
		if tb[tok] {
			common++
		}
	}
	return float64(common) / float64(len(smaller))
}

// DescriptionSimilarity is the matcher score used by the alignment engine
// and the normalization planner: the larger of the character-sequence ratio
// and the token overlap.
func DescriptionSimilarity(a, b string) float64 {
	r := SimilarityRatio(a, b)
	if o := TokenOverlap(a, b); o > r {
		return o
	}
	return r
}

func explodeRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		if len(tok) > 1 {
			set[tok] = true
		}
	}
	return set
}
