package services

import (
	"fmt"
	"sort"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	mcore "github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	pbcore "github.com/pocketbase/pocketbase/core"
)

// ReportExportData carries everything the PDF rendering needs.
type ReportExportData struct {
	ProjectName string
	CompanyName string
	Round       int
	Mode        string
	SourceFile  string
	Report      *MatchingReport
}

// LoadReportExportData assembles the export view of one bid document's
// matching report.
func LoadReportExportData(app pbcore.App, documentID string) (*ReportExportData, error) {
	doc, err := app.FindRecordById("bid_documents", documentID)
	if err != nil {
		return nil, validationErrorf("bid document %s not found", documentID)
	}
	report, err := LoadMatchingReport(app, documentID)
	if err != nil {
		return nil, err
	}

	data := &ReportExportData{
		Round:      doc.GetInt("round"),
		Mode:       doc.GetString("mode"),
		SourceFile: doc.GetString("source_file"),
		Report:     report,
	}
	if project, err := app.FindRecordById("projects", doc.GetString("project")); err == nil {
		data.ProjectName = project.GetString("name")
	}
	if company, err := app.FindRecordById("companies", doc.GetString("company")); err == nil {
		data.CompanyName = company.GetString("name")
	}
	return data, nil
}

// GenerateReportPDF renders a matching report as a PDF using maroto/v2.
func GenerateReportPDF(data *ReportExportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addReportHeader(m, data)
	addReportSummary(m, data.Report)
	addReportTotals(m, data.Report)
	if data.Mode == ModeProductAddressed {
		addReportOffers(m, data.Report)
	}
	addReportFindings(m, data.Report)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate matching report PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

// addReportHeader adds the project name, title and document metadata.
func addReportHeader(m mcore.Maroto, data *ReportExportData) {
	m.AddRows(
		row.New(10).Add(
			col.New(6).Add(
				text.New(data.ProjectName, props.Text{
					Size:  14,
					Style: fontstyle.Bold,
					Align: align.Left,
				}),
			),
			col.New(6).Add(
				text.New("MATCHING REPORT", props.Text{
					Size:  14,
					Style: fontstyle.Bold,
					Align: align.Right,
					Color: &props.Color{Red: 33, Green: 37, Blue: 41},
				}),
			),
		),
	)

	modeLabel := "row addressed"
	if data.Mode == ModeProductAddressed {
		modeLabel = "product addressed"
	}
	m.AddRows(
		row.New(8).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("%s | round %d | %s", data.CompanyName, data.Round, modeLabel), props.Text{
					Size:  8,
					Align: align.Left,
					Color: &props.Color{Red: 100, Green: 100, Blue: 100},
				}),
			),
			col.New(6).Add(
				text.New(data.SourceFile, props.Text{
					Size:  8,
					Align: align.Right,
					Color: &props.Color{Red: 100, Green: 100, Blue: 100},
				}),
			),
		),
	)

	m.AddRows(row.New(3))
}

// addReportSummary adds the row-status counts table.
func addReportSummary(m mcore.Maroto, r *MatchingReport) {
	headerBg := &props.Color{Red: 33, Green: 37, Blue: 41}
	headerText := props.Text{
		Size:  7,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerCell := props.Cell{BackgroundColor: headerBg}
	bodyText := props.Text{Size: 8, Align: align.Center}

	m.AddRows(
		row.New(8).Add(
			col.New(3).Add(text.New("Baseline rows", headerText)).WithStyle(&headerCell),
			col.New(3).Add(text.New("Matched", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Missing", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Return only", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Coverage", headerText)).WithStyle(&headerCell),
		),
	)
	m.AddRows(
		row.New(7).Add(
			col.New(3).Add(text.New(fmt.Sprintf("%d", r.BaselineRows), bodyText)),
			col.New(3).Add(text.New(fmt.Sprintf("%d", r.Matched), bodyText)),
			col.New(2).Add(text.New(fmt.Sprintf("%d", r.Missing), bodyText)),
			col.New(2).Add(text.New(fmt.Sprintf("%d", r.ReturnOnly), bodyText)),
			col.New(2).Add(text.New(FormatPercent(r.Coverage), bodyText)),
		),
	)

	m.AddRows(row.New(3))
}

// addReportTotals adds the amount comparison block.
func addReportTotals(m mcore.Maroto, r *MatchingReport) {
	summaryBg := &props.Color{Red: 245, Green: 245, Blue: 245}
	summaryCell := &props.Cell{BackgroundColor: summaryBg}
	labelStyle := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Right,
	}
	valueStyle := props.Text{
		Size:  8,
		Align: align.Right,
	}

	qtyRows := []struct {
		label string
		value float64
	}{
		{"Baseline quantity", r.BaselineQuantity},
		{"Return quantity", r.ReturnQuantity},
		{"Quantity delta", r.DeltaQuantity},
	}
	for _, tr := range qtyRows {
		m.AddRows(
			row.New(7).Add(
				col.New(9).Add(text.New(tr.label, labelStyle)).WithStyle(summaryCell),
				col.New(3).Add(text.New(FormatQty(tr.value), valueStyle)).WithStyle(summaryCell),
			),
		)
	}

	rows := []struct {
		label string
		value float64
	}{
		{"Baseline amount", r.BaselineAmount},
		{"Return amount", r.ReturnAmount},
	}
	for _, tr := range rows {
		m.AddRows(
			row.New(7).Add(
				col.New(9).Add(text.New(tr.label, labelStyle)).WithStyle(summaryCell),
				col.New(3).Add(text.New(FormatEUR(tr.value), valueStyle)).WithStyle(summaryCell),
			),
		)
	}

	deltaBg := &props.Color{Red: 33, Green: 37, Blue: 41}
	deltaCell := &props.Cell{BackgroundColor: deltaBg}
	deltaStyle := props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Align: align.Right,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	m.AddRows(
		row.New(8).Add(
			col.New(9).Add(text.New("Delta", deltaStyle)).WithStyle(deltaCell),
			col.New(3).Add(text.New(FormatEUR(r.DeltaAmount), deltaStyle)).WithStyle(deltaCell),
		),
	)

	m.AddRows(row.New(3))
}

// addReportOffers adds the catalog offer statistics.
func addReportOffers(m mcore.Maroto, r *MatchingReport) {
	labelStyle := props.Text{
		Size:  7,
		Style: fontstyle.Bold,
		Align: align.Left,
		Color: &props.Color{Red: 100, Green: 100, Blue: 100},
	}
	valueStyle := props.Text{Size: 8, Align: align.Left}

	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(text.New("CATALOG OFFERS", labelStyle)),
		),
	)
	m.AddRows(
		row.New(7).Add(
			col.New(12).Add(text.New(
				fmt.Sprintf("%d offers created, catalog coverage %s", r.OffersCreated, FormatPercent(r.CatalogCoverage)),
				valueStyle)),
		),
	)

	m.AddRows(row.New(3))
}

// addReportFindings adds one block per anomaly category with its examples.
func addReportFindings(m mcore.Maroto, r *MatchingReport) {
	if len(r.Examples) == 0 {
		return
	}

	sectionLabel := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Left,
		Color: &props.Color{Red: 33, Green: 37, Blue: 41},
	}
	kindLabel := props.Text{
		Size:  7,
		Style: fontstyle.Bold,
		Align: align.Left,
		Color: &props.Color{Red: 100, Green: 100, Blue: 100},
	}
	exampleStyle := props.Text{Size: 8, Align: align.Left}

	m.AddRows(
		row.New(7).Add(
			col.New(12).Add(text.New("ANOMALIES", sectionLabel)),
		),
	)

	kinds := make([]string, 0, len(r.Examples))
	for kind := range r.Examples {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		m.AddRows(
			row.New(6).Add(col.New(12).Add(text.New(kind, kindLabel))),
		)
		for _, example := range r.Examples[kind] {
			m.AddRows(
				row.New(6).Add(col.New(12).Add(text.New(example, exampleStyle))),
			)
		}
	}
}
