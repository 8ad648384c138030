package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderalign/services"
)

// HandleWbsImport imports a mapping sheet into the project's WBS hierarchy.
// Route: POST /projects/{projectId}/wbs/import?mode=create|update
func HandleWbsImport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		if _, err := app.FindRecordById("projects", projectID); err != nil {
			return errorJSON(e, http.StatusNotFound, "Project not found")
		}

		mode := e.Request.URL.Query().Get("mode")
		if mode == "" {
			mode = services.HierarchyModeUpdate
		}
		if mode != services.HierarchyModeCreate && mode != services.HierarchyModeUpdate {
			return errorJSON(e, http.StatusBadRequest, "Mode must be create or update")
		}

		file, fileName, err := formFile(e)
		if err != nil {
			return errorJSON(e, http.StatusBadRequest, err.Error())
		}
		defer file.Close()

		grid, err := services.ReadSheet(file, fileName)
		if err != nil {
			return serviceError(e, "wbs_import", err)
		}
		rows, err := services.ParseMappingSheet(grid)
		if err != nil {
			return serviceError(e, "wbs_import", err)
		}

		stats, err := services.ImportHierarchy(app, projectID, rows, mode)
		if err != nil {
			return serviceError(e, "wbs_import", err)
		}

		return e.JSON(http.StatusOK, stats)
	}
}
