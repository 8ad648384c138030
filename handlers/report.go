package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderalign/services"
)

// HandleReportView returns the persisted matching report of one bid document.
// Route: GET /projects/{projectId}/returns/{docId}/report
func HandleReportView(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		doc, ok := findProjectDocument(app, e)
		if !ok {
			return errorJSON(e, http.StatusNotFound, "Document not found")
		}

		report, err := services.LoadMatchingReport(app, doc.Id)
		if err != nil {
			return serviceError(e, "report_view", err)
		}

		return e.JSON(http.StatusOK, services.ReturnImportResult{
			DocumentID: doc.Id,
			Round:      doc.GetInt("round"),
			Mode:       doc.GetString("mode"),
			Report:     report,
		})
	}
}

// HandleReportExportPDF renders the matching report as a PDF.
// Route: GET /projects/{projectId}/returns/{docId}/report/pdf
func HandleReportExportPDF(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		doc, ok := findProjectDocument(app, e)
		if !ok {
			return errorJSON(e, http.StatusNotFound, "Document not found")
		}

		data, err := services.LoadReportExportData(app, doc.Id)
		if err != nil {
			return serviceError(e, "report_pdf", err)
		}
		pdfBytes, err := services.GenerateReportPDF(data)
		if err != nil {
			log.Printf("report_pdf: failed to generate: %v", err)
			return errorJSON(e, http.StatusInternalServerError, "Failed to generate PDF")
		}

		company := strings.ReplaceAll(data.CompanyName, " ", "_")
		filename := fmt.Sprintf("Report_%s_R%d.pdf", company, doc.GetInt("round"))

		e.Response.Header().Set("Content-Type", "application/pdf")
		e.Response.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, filename))
		e.Response.Write(pdfBytes)
		return nil
	}
}

// findProjectDocument loads the bid document named by the route and checks
// it belongs to the route's project.
func findProjectDocument(app *pocketbase.PocketBase, e *core.RequestEvent) (*core.Record, bool) {
	projectID := e.Request.PathValue("projectId")
	docID := e.Request.PathValue("docId")

	doc, err := app.FindRecordById("bid_documents", docID)
	if err != nil {
		return nil, false
	}
	if doc.GetString("project") != projectID {
		return nil, false
	}
	return doc, true
}
