package services

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/pocketbase/pocketbase/core"
)

// MappingRow is one row of the dedicated hierarchy-mapping spreadsheet: the
// full canonical path for one WBS6 (and optional WBS7) node.
type MappingRow struct {
	Spatial [5]PathSegment
	Wbs6    PathSegment
	Wbs7    PathSegment
}

// WbsImportStats reports what a hierarchy import did.
type WbsImportStats struct {
	RowsProcessed   int `json:"rows_processed"`
	SpatialInserted int `json:"spatial_inserted"`
	SpatialUpdated  int `json:"spatial_updated"`
	Wbs6Inserted    int `json:"wbs6_inserted"`
	Wbs6Updated     int `json:"wbs6_updated"`
	Wbs7Inserted    int `json:"wbs7_inserted"`
	Wbs7Updated     int `json:"wbs7_updated"`
}

// HierarchyModeCreate rejects the import when the project already has WBS6
// data; HierarchyModeUpdate upserts over whatever exists.
const (
	HierarchyModeCreate = "create"
	HierarchyModeUpdate = "update"
)

var mappingHeaderLabels = []string{
	"livello 1", "livello 2", "livello 3", "livello 4", "livello 5", "wbs6", "wbs7",
}

// ParseMappingSheet reads the fixed seven-column mapping layout
// (Livello 1..5, WBS6, WBS7; cells formatted "CODE - Description").
func ParseMappingSheet(grid [][]string) ([]MappingRow, error) {
	headerIdx := -1
	cols := make([]int, len(mappingHeaderLabels))

	limit := len(grid)
	if limit > maxHeaderScan {
		limit = maxHeaderScan
	}
	for i := 0; i < limit && headerIdx == -1; i++ {
		found := 0
		for c := range cols {
			cols[c] = -1
		}
		for col, cell := range grid[i] {
			// The downloadable template marks the mandatory column "WBS6 *".
			label := strings.TrimSuffix(NormalizeLabel(cell), " *")
			for c, want := range mappingHeaderLabels {
				if label == want {
					cols[c] = col
					found++
				}
			}
		}
		// WBS7 is the only optional column.
		if found >= len(mappingHeaderLabels)-1 && cols[5] >= 0 {
			headerIdx = i
		}
	}
	if headerIdx == -1 {
		return nil, structuralErrorf("mapping sheet header not recognized (expected columns %v)", mappingHeaderLabels)
	}

	var rows []MappingRow
	for i := headerIdx + 1; i < len(grid); i++ {
		row := grid[i]
		var mr MappingRow
		empty := true
		for l := 0; l < 5; l++ {
			mr.Spatial[l] = splitLabelCell(cellAt(row, cols[l]))
			if mr.Spatial[l].Code != "" {
				empty = false
			}
		}
		mr.Wbs6 = splitLabelCell(cellAt(row, cols[5]))
		mr.Wbs7 = splitLabelCell(cellAt(row, cols[6]))
		if mr.Wbs6.Code != "" || mr.Wbs7.Code != "" {
			empty = false
		}
		if empty {
			continue
		}

		if mr.Wbs6.Code == "" {
			return nil, validationErrorf("mapping row %d has no WBS6 code", i+1)
		}
		if !wbs6Pattern.MatchString(mr.Wbs6.Code) {
			return nil, validationErrorf("mapping row %d: WBS6 code %q does not match letter+3digits", i+1, mr.Wbs6.Code)
		}
		if mr.Wbs7.Code != "" && !wbs7Pattern.MatchString(mr.Wbs7.Code) {
			return nil, validationErrorf("mapping row %d: WBS7 code %q does not match letter+3digits+separator+3digits", i+1, mr.Wbs7.Code)
		}
		rows = append(rows, mr)
	}
	return rows, nil
}

// Wbs6Label derives the display label persisted on a WBS6/WBS7 node.
func Wbs6Label(seg PathSegment) string {
	if seg.Description == "" {
		return seg.Code
	}
	return seg.Code + " - " + seg.Description
}

// ImportHierarchy upserts the spatial chain, WBS6 and WBS7 nodes declared by
// the mapping rows. Idempotent: re-running with unchanged input reports zero
// inserts and zero updates.
func ImportHierarchy(app core.App, projectID string, rows []MappingRow, mode string) (*WbsImportStats, error) {
	if mode != HierarchyModeCreate && mode != HierarchyModeUpdate {
		return nil, validationErrorf("unknown hierarchy import mode %q", mode)
	}

	if mode == HierarchyModeCreate {
		existing, err := app.FindRecordsByFilter("wbs6_nodes",
			"project = {:projectId}", "", 1, 0,
			map[string]any{"projectId": projectID},
		)
		if err != nil {
			return nil, fmt.Errorf("check existing hierarchy: %w", err)
		}
		if len(existing) > 0 {
			return nil, &ConflictError{Reason: fmt.Sprintf("project %s already has WBS6 data; use update mode", projectID)}
		}
	}

	stats := &WbsImportStats{}

	err := app.RunInTransaction(func(txApp core.App) error {
		caches, err := loadHierarchyCaches(txApp, projectID)
		if err != nil {
			return err
		}

		for _, row := range rows {
			stats.RowsProcessed++

			parentID := ""
			var leafID string
			for l := 0; l < 5; l++ {
				seg := row.Spatial[l]
				if seg.Code == "" {
					continue
				}
				node, err := caches.upsertSpatial(txApp, projectID, l+1, seg, parentID, stats)
				if err != nil {
					return err
				}
				parentID = node.Id
				leafID = node.Id
			}

			wbs6, err := caches.upsertWbs6(txApp, projectID, row.Wbs6, leafID, stats)
			if err != nil {
				return err
			}

			if row.Wbs7.Code != "" {
				if _, err := caches.upsertWbs7(txApp, wbs6.Id, row.Wbs7, stats); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// hierarchyCaches holds per-import lookup maps. Transaction-scoped and
// passed explicitly; never shared across imports.
type hierarchyCaches struct {
	spatial map[string]*core.Record // level|code
	wbs6    map[string]*core.Record // code
	wbs7    map[string]*core.Record // wbs6Id|code
}

func loadHierarchyCaches(app core.App, projectID string) (*hierarchyCaches, error) {
	c := &hierarchyCaches{
		spatial: make(map[string]*core.Record),
		wbs6:    make(map[string]*core.Record),
		wbs7:    make(map[string]*core.Record),
	}

	spatial, err := app.FindRecordsByFilter("wbs_spatial_nodes",
		"project = {:projectId}", "", 0, 0, map[string]any{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("load spatial nodes: %w", err)
	}
	for _, r := range spatial {
		c.spatial[spatialKey(r.GetInt("level"), r.GetString("code"))] = r
	}

	wbs6, err := app.FindRecordsByFilter("wbs6_nodes",
		"project = {:projectId}", "", 0, 0, map[string]any{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("load wbs6 nodes: %w", err)
	}
	wbs6IDs := make(map[string]bool, len(wbs6))
	for _, r := range wbs6 {
		c.wbs6[r.GetString("code")] = r
		wbs6IDs[r.Id] = true
	}

	// WBS7 rows are scoped through their WBS6 parent, which carries the
	// project scope.
	wbs7, err := app.FindRecordsByFilter("wbs7_nodes", "id != ''", "", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load wbs7 nodes: %w", err)
	}
	for _, r := range wbs7 {
		if wbs6IDs[r.GetString("wbs6")] {
			c.wbs7[r.GetString("wbs6")+"|"+r.GetString("code")] = r
		}
	}
	return c, nil
}

func spatialKey(level int, code string) string {
	return strconv.Itoa(level) + "|" + code
}

func (c *hierarchyCaches) upsertSpatial(app core.App, projectID string, level int, seg PathSegment, parentID string, stats *WbsImportStats) (*core.Record, error) {
	key := spatialKey(level, seg.Code)
	if existing, ok := c.spatial[key]; ok {
		changed := false
		if seg.Description != "" && existing.GetString("description") != seg.Description {
			existing.Set("description", seg.Description)
			changed = true
		}
		if parentID != "" && existing.GetString("parent") != parentID {
			existing.Set("parent", parentID)
			changed = true
		}
		if changed {
			if err := app.Save(existing); err != nil {
				return nil, fmt.Errorf("update spatial node %s: %w", seg.Code, err)
			}
			stats.SpatialUpdated++
		}
		return existing, nil
	}

	col, err := app.FindCollectionByNameOrId("wbs_spatial_nodes")
	if err != nil {
		return nil, fmt.Errorf("find wbs_spatial_nodes collection: %w", err)
	}
	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("level", level)
	record.Set("code", seg.Code)
	record.Set("description", seg.Description)
	if parentID != "" {
		record.Set("parent", parentID)
	}
	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("create spatial node %s: %w", seg.Code, err)
	}
	c.spatial[key] = record
	stats.SpatialInserted++
	return record, nil
}

func (c *hierarchyCaches) upsertWbs6(app core.App, projectID string, seg PathSegment, spatialLeafID string, stats *WbsImportStats) (*core.Record, error) {
	if existing, ok := c.wbs6[seg.Code]; ok {
		changed := false
		if seg.Description != "" && existing.GetString("description") != seg.Description {
			existing.Set("description", seg.Description)
			existing.Set("label", Wbs6Label(seg))
			changed = true
		}
		if spatialLeafID != "" && existing.GetString("spatial") != spatialLeafID {
			existing.Set("spatial", spatialLeafID)
			changed = true
		}
		if changed {
			if err := app.Save(existing); err != nil {
				return nil, fmt.Errorf("update wbs6 node %s: %w", seg.Code, err)
			}
			stats.Wbs6Updated++
		}
		return existing, nil
	}

	col, err := app.FindCollectionByNameOrId("wbs6_nodes")
	if err != nil {
		return nil, fmt.Errorf("find wbs6_nodes collection: %w", err)
	}
	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("code", seg.Code)
	record.Set("description", seg.Description)
	record.Set("label", Wbs6Label(seg))
	if spatialLeafID != "" {
		record.Set("spatial", spatialLeafID)
	}
	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("create wbs6 node %s: %w", seg.Code, err)
	}
	c.wbs6[seg.Code] = record
	stats.Wbs6Inserted++
	return record, nil
}

func (c *hierarchyCaches) upsertWbs7(app core.App, wbs6ID string, seg PathSegment, stats *WbsImportStats) (*core.Record, error) {
	key := wbs6ID + "|" + seg.Code
	if existing, ok := c.wbs7[key]; ok {
		if seg.Description != "" && existing.GetString("description") != seg.Description {
			existing.Set("description", seg.Description)
			existing.Set("label", Wbs6Label(seg))
			if err := app.Save(existing); err != nil {
				return nil, fmt.Errorf("update wbs7 node %s: %w", seg.Code, err)
			}
			stats.Wbs7Updated++
		}
		return existing, nil
	}

	col, err := app.FindCollectionByNameOrId("wbs7_nodes")
	if err != nil {
		return nil, fmt.Errorf("find wbs7_nodes collection: %w", err)
	}
	record := core.NewRecord(col)
	record.Set("wbs6", wbs6ID)
	record.Set("code", seg.Code)
	record.Set("description", seg.Description)
	record.Set("label", Wbs6Label(seg))
	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("create wbs7 node %s: %w", seg.Code, err)
	}
	c.wbs7[key] = record
	stats.Wbs7Inserted++
	return record, nil
}

// RenameWbs6 applies one rename to a persisted WBS6 node and cascades an
// "updated" touch to every baseline line item and bid line referencing it,
// so downstream consumers see the change.
func RenameWbs6(app core.App, projectID, code, newCode, newDescription string) error {
	newCode = NormalizeCode(newCode)
	if !wbs6Pattern.MatchString(newCode) {
		return validationErrorf("new WBS6 code %q does not match letter+3digits", newCode)
	}

	return app.RunInTransaction(func(txApp core.App) error {
		node, err := txApp.FindFirstRecordByFilter("wbs6_nodes",
			"project = {:projectId} && code = {:code}",
			map[string]any{"projectId": projectID, "code": code},
		)
		if err != nil {
			return validationErrorf("WBS6 node %q not found in project %s", code, projectID)
		}

		desc := newDescription
		if desc == "" {
			desc = node.GetString("description")
		}
		node.Set("code", newCode)
		node.Set("description", desc)
		node.Set("label", Wbs6Label(PathSegment{Code: newCode, Description: desc}))
		if err := txApp.Save(node); err != nil {
			return fmt.Errorf("rename wbs6 node: %w", err)
		}

		return touchWbs6References(txApp, node.Id)
	})
}

// touchWbs6References re-saves every record referencing the node so its
// "updated" autodate moves.
func touchWbs6References(app core.App, wbs6ID string) error {
	baseline, err := app.FindRecordsByFilter("baseline_items",
		"wbs6 = {:id}", "", 0, 0, map[string]any{"id": wbs6ID})
	if err != nil {
		return fmt.Errorf("load baseline references: %w", err)
	}
	for _, item := range baseline {
		if err := app.Save(item); err != nil {
			return fmt.Errorf("touch baseline item %s: %w", item.Id, err)
		}
		lines, err := app.FindRecordsByFilter("bid_line_items",
			"baseline = {:id}", "", 0, 0, map[string]any{"id": item.Id})
		if err != nil {
			return fmt.Errorf("load bid line references: %w", err)
		}
		for _, line := range lines {
			if err := app.Save(line); err != nil {
				return fmt.Errorf("touch bid line %s: %w", line.Id, err)
			}
		}
	}
	log.Printf("wbs: touched %d baseline items referencing node %s", len(baseline), wbs6ID)
	return nil
}
