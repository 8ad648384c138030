package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderalign/config"
	"tenderalign/services"
)

// HandleWbsPlan compares the project's persisted hierarchy against an
// uploaded mapping-sheet revision and returns the advisory renaming plan.
// Nothing is persisted.
// Route: POST /projects/{projectId}/wbs/plan
func HandleWbsPlan(app *pocketbase.PocketBase, cfg *config.Config) func(*core.RequestEvent) error {
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

		grid, err := services.ReadSheet(file, fileName)
		if err != nil {
			return serviceError(e, "wbs_plan", err)
		}
		rows, err := services.ParseMappingSheet(grid)
		if err != nil {
			return serviceError(e, "wbs_plan", err)
		}

		current, err := services.LoadHierarchySnapshot(app, projectID)
		if err != nil {
			return serviceError(e, "wbs_plan", err)
		}
		reference := services.SnapshotFromMappingRows(rows)

		plan := services.BuildNormalizationPlan(current, reference, cfg)
		return e.JSON(http.StatusOK, plan)
	}
}
