package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderalign/config"
	"tenderalign/services"
)

// HandleBaselineImport receives the authoritative quantity takeoff and
// replaces the project's baseline with it.
// Route: POST /projects/{projectId}/baseline/import
func HandleBaselineImport(app *pocketbase.PocketBase, cfg *config.Config) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		if _, err := app.FindRecordById("projects", projectID); err != nil {
			return errorJSON(e, http.StatusNotFound, "Project not found")
		}

		file, fileName, err := formFile(e)
		if err != nil {
			return errorJSON(e, http.StatusBadRequest, err.Error())
		}
		defer file.Close()

		// An optional named profile bypasses automatic header detection.
		var profile *services.ColumnProfile
		if name := e.Request.FormValue("profile"); name != "" {
			profile, err = services.LoadColumnProfile(app, name)
			if err != nil {
				return serviceError(e, "baseline_import", err)
			}
		}

		result, err := services.ImportBaseline(app, cfg, file, services.BaselineImportOptions{
			ProjectID: projectID,
			FileName:  fileName,
			Profile:   profile,
		})
		if err != nil {
			return serviceError(e, "baseline_import", err)
		}

		return e.JSON(http.StatusOK, result)
	}
}
