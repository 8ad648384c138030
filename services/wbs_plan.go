package services

import (
	"fmt"
	"sort"

	"github.com/pocketbase/pocketbase/core"

	"tenderalign/config"
)

// HierarchySnapshot is the comparable view of one project's WBS6/WBS7 nodes.
type HierarchySnapshot struct {
	Wbs6 []PathSegment
	Wbs7 []PathSegment
}

// PlanEntry is one advisory rename suggestion. Confidence 1.0 means an
// exact code match; anything lower came from description similarity.
type PlanEntry struct {
	Kind       string  `json:"kind"` // "wbs6" or "wbs7"
	Code       string  `json:"code"`
	TargetCode string  `json:"target_code"`
	Confidence float64 `json:"confidence"`
	Matched    bool    `json:"matched"`
}

// NormalizationPlan is advisory output only; nothing is mutated.
type NormalizationPlan struct {
	Entries   []PlanEntry `json:"entries"`
	Matched   int         `json:"matched"`
	Unmatched int         `json:"unmatched"`
}

// LoadHierarchySnapshot reads the persisted WBS6/WBS7 nodes of a project.
func LoadHierarchySnapshot(app core.App, projectID string) (*HierarchySnapshot, error) {
	snap := &HierarchySnapshot{}

	wbs6, err := app.FindRecordsByFilter("wbs6_nodes",
		"project = {:projectId}", "code", 0, 0, map[string]any{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("load wbs6 nodes: %w", err)
	}
	wbs6IDs := make(map[string]bool, len(wbs6))
	for _, r := range wbs6 {
		snap.Wbs6 = append(snap.Wbs6, PathSegment{Code: r.GetString("code"), Description: r.GetString("description")})
		wbs6IDs[r.Id] = true
	}

	wbs7, err := app.FindRecordsByFilter("wbs7_nodes", "id != ''", "code", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load wbs7 nodes: %w", err)
	}
	for _, r := range wbs7 {
		if wbs6IDs[r.GetString("wbs6")] {
			snap.Wbs7 = append(snap.Wbs7, PathSegment{Code: r.GetString("code"), Description: r.GetString("description")})
		}
	}
	return snap, nil
}

// SnapshotFromMappingRows builds a snapshot from a parsed mapping sheet, so
// a drifted sheet revision can serve as the reference without persisting it.
func SnapshotFromMappingRows(rows []MappingRow) *HierarchySnapshot {
	snap := &HierarchySnapshot{}
	seen6 := make(map[string]bool)
	seen7 := make(map[string]bool)
	for _, row := range rows {
		if row.Wbs6.Code != "" && !seen6[row.Wbs6.Code] {
			seen6[row.Wbs6.Code] = true
			snap.Wbs6 = append(snap.Wbs6, row.Wbs6)
		}
		if row.Wbs7.Code != "" && !seen7[row.Wbs7.Code] {
			seen7[row.Wbs7.Code] = true
			snap.Wbs7 = append(snap.Wbs7, row.Wbs7)
		}
	}
	return snap
}

// BuildNormalizationPlan proposes per-node renaming targets mapping the
// current snapshot onto the reference. Exact code matches score 1.0; the
// rest use the larger of character-sequence ratio and token overlap between
// normalized descriptions, accepted only at or above the per-level
// threshold. The plan never mutates persisted data.
func BuildNormalizationPlan(current, reference *HierarchySnapshot, cfg *config.Config) *NormalizationPlan {
	plan := &NormalizationPlan{}

	planKind(plan, "wbs6", current.Wbs6, reference.Wbs6, cfg.Matching.Wbs6Similarity)
	planKind(plan, "wbs7", current.Wbs7, reference.Wbs7, cfg.Matching.Wbs7Similarity)

	sort.SliceStable(plan.Entries, func(i, j int) bool {
		if plan.Entries[i].Kind != plan.Entries[j].Kind {
			return plan.Entries[i].Kind < plan.Entries[j].Kind
		}
		return plan.Entries[i].Code < plan.Entries[j].Code
	})
	return plan
}

func planKind(plan *NormalizationPlan, kind string, current, reference []PathSegment, threshold float64) {
	refByCode := make(map[string]PathSegment, len(reference))
	for _, ref := range reference {
		refByCode[ref.Code] = ref
	}

	for _, node := range current {
		entry := PlanEntry{Kind: kind, Code: node.Code}

		if _, ok := refByCode[node.Code]; ok {
			entry.TargetCode = node.Code
			entry.Confidence = 1.0
			entry.Matched = true
		} else {
			best, score := bestCandidate(node, reference)
			if score >= threshold {
				entry.TargetCode = best.Code
				entry.Confidence = score
				entry.Matched = true
			} else {
				entry.Confidence = score
			}
		}

		if entry.Matched {
			plan.Matched++
		} else {
			plan.Unmatched++
		}
		plan.Entries = append(plan.Entries, entry)
	}
}

func bestCandidate(node PathSegment, reference []PathSegment) (PathSegment, float64) {
	var best PathSegment
	bestScore := 0.0
	for _, ref := range reference {
		score := DescriptionSimilarity(node.Description, ref.Description)
		if score > bestScore {
			best = ref
			bestScore = score
		}
	}
	return best, bestScore
}
