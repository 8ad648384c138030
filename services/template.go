package services

import (
	"bytes"
	"fmt"

	"github.com/pocketbase/pocketbase/core"
	"github.com/xuri/excelize/v2"
)

var mappingTemplateHeaders = []string{
	"Livello 1", "Livello 2", "Livello 3", "Livello 4", "Livello 5", "WBS6", "WBS7",
}

// GenerateMappingTemplate creates a downloadable .xlsx for the hierarchy
// mapping sheet. The project's existing hierarchy, if any, is prefilled so
// the same file can be edited and re-imported in update mode.
func GenerateMappingTemplate(app core.App, projectID string) ([]byte, error) {
	// 1. Collect the rows to prefill
	prefill, err := collectMappingRows(app, projectID)
	if err != nil {
		return nil, err
	}

	// 2. Build the workbook
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Mappatura WBS"
	defaultSheet := f.GetSheetName(0)
	f.SetSheetName(defaultSheet, sheetName)

	requiredHeaderStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1D4ED8"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorders(),
	})
	optionalHeaderStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#6B7280"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorders(),
	})

	// 3. Write header row and set column widths
	columns := columnLetters(len(mappingTemplateHeaders))
	for i, header := range mappingTemplateHeaders {
		cell := fmt.Sprintf("%s1", columns[i])

		// WBS6 is the only mandatory column.
		if header == "WBS6" {
			f.SetCellValue(sheetName, cell, header+" *")
			f.SetCellStyle(sheetName, cell, cell, requiredHeaderStyle)
		} else {
			f.SetCellValue(sheetName, cell, header)
			f.SetCellStyle(sheetName, cell, cell, optionalHeaderStyle)
		}
		f.SetColWidth(sheetName, columns[i], columns[i], 32)
	}

	// 4. Prefill the existing hierarchy
	for r, row := range prefill {
		for c := 0; c < 7; c++ {
			if row[c] == "" {
				continue
			}
			cell := fmt.Sprintf("%s%d", columns[c], r+2)
			f.SetCellValue(sheetName, cell, row[c])
		}
	}

	// 5. Freeze header row
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	// 6. Hidden instructions sheet
	addMappingInstructionsSheet(f)

	// 7. Write to buffer
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write mapping template: %w", err)
	}
	return buf.Bytes(), nil
}

// collectMappingRows flattens the persisted hierarchy back into the sheet
// layout, one row per WBS7 (or per WBS6 without children), cells formatted
// "CODE - Description".
func collectMappingRows(app core.App, projectID string) ([][7]string, error) {
	wbs6Nodes, err := app.FindRecordsByFilter("wbs6_nodes",
		"project = {:projectId}", "code", 0, 0, map[string]any{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("load wbs6 nodes: %w", err)
	}

	spatialByID := make(map[string]*core.Record)
	spatialNodes, err := app.FindRecordsByFilter("wbs_spatial_nodes",
		"project = {:projectId}", "", 0, 0, map[string]any{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("load spatial nodes: %w", err)
	}
	for _, n := range spatialNodes {
		spatialByID[n.Id] = n
	}

	var rows [][7]string
	for _, node := range wbs6Nodes {
		var base [7]string

		// Walk the spatial chain up from the leaf.
		leafID := node.GetString("spatial")
		for id := leafID; id != ""; {
			n, ok := spatialByID[id]
			if !ok {
				break
			}
			level := n.GetInt("level")
			if level >= 1 && level <= 5 {
				base[level-1] = labelCell(n.GetString("code"), n.GetString("description"))
			}
			id = n.GetString("parent")
		}
		base[5] = labelCell(node.GetString("code"), node.GetString("description"))

		children, err := app.FindRecordsByFilter("wbs7_nodes",
			"wbs6 = {:id}", "code", 0, 0, map[string]any{"id": node.Id})
		if err != nil {
			return nil, fmt.Errorf("load wbs7 nodes: %w", err)
		}
		if len(children) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, child := range children {
			row := base
			row[6] = labelCell(child.GetString("code"), child.GetString("description"))
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func labelCell(code, description string) string {
	if code == "" {
		return ""
	}
	if description == "" {
		return code
	}
	return code + " - " + description
}

// addMappingInstructionsSheet creates a hidden sheet describing each column.
func addMappingInstructionsSheet(f *excelize.File) {
	instSheet := "Instructions"
	f.NewSheet(instSheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
	})

	f.SetCellValue(instSheet, "A1", "WBS Mapping Import - Instructions")
	f.SetCellStyle(instSheet, "A1", "A1", titleStyle)

	headers := []string{"Column", "Required?", "Format Rule", "Example"}
	cols := columnLetters(len(headers))
	for i, h := range headers {
		cell := fmt.Sprintf("%s3", cols[i])
		f.SetCellValue(instSheet, cell, h)
		f.SetCellStyle(instSheet, cell, cell, headerStyle)
	}

	instructions := []struct {
		column, required, rule, example string
	}{
		{"Livello 1..5", "Optional", "CODE - Description; codes free-form, deeper levels may be blank", "01 - Lotto nord"},
		{"WBS6", "Required", "One letter followed by 3 digits", "E012 - Opere in c.a."},
		{"WBS7", "Optional", "WBS6 code, separator (. _ -), 3 digits", "E012.003 - Getto pilastri"},
	}
	for i, inst := range instructions {
		row := fmt.Sprintf("%d", i+4)
		f.SetCellValue(instSheet, cols[0]+row, inst.column)
		f.SetCellValue(instSheet, cols[1]+row, inst.required)
		f.SetCellValue(instSheet, cols[2]+row, inst.rule)
		f.SetCellValue(instSheet, cols[3]+row, inst.example)
	}

	widths := []float64{20, 12, 50, 30}
	for i, w := range widths {
		f.SetColWidth(instSheet, cols[i], cols[i], w)
	}

	f.SetSheetVisible(instSheet, false)
}

// columnLetters returns Excel column letters for n columns: A, B, ... Z, AA, AB ...
func columnLetters(n int) []string {
	cols := make([]string, n)
	for i := 0; i < n; i++ {
		name, _ := excelize.ColumnNumberToName(i + 1)
		cols[i] = name
	}
	return cols
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}
