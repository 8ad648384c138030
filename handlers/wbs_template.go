package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderalign/services"
)

// HandleWbsTemplateDownload serves the Excel mapping template, prefilled
// with the project's current hierarchy.
// Route: GET /projects/{projectId}/wbs/template
func HandleWbsTemplateDownload(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		if projectID == "" {
			return errorJSON(e, http.StatusBadRequest, "Missing project ID")
		}
		project, err := app.FindRecordById("projects", projectID)
		if err != nil {
			return errorJSON(e, http.StatusNotFound, "Project not found")
		}

		xlsxBytes, err := services.GenerateMappingTemplate(app, projectID)
		if err != nil {
			log.Printf("wbs_template: failed to generate: %v", err)
			return errorJSON(e, http.StatusInternalServerError, "Failed to generate template")
		}

		tag := project.GetString("tag")
		if tag == "" {
			tag = project.Id
		}
		filename := fmt.Sprintf("Mappatura_WBS_%s_%d.xlsx", tag, time.Now().Year())

		e.Response.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, filename))
		e.Response.Write(xlsxBytes)
		return nil
	}
}
