package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderalign/config"
	"tenderalign/services"
)

// HandleReturnsImport reconciles a company's priced return against the
// baseline and responds with the matching report.
// Route: POST /projects/{projectId}/returns/import
func HandleReturnsImport(app *pocketbase.PocketBase, cfg *config.Config, embedder services.EmbeddingLookup) func(*core.RequestEvent) error {
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

		company := strings.TrimSpace(e.Request.FormValue("company"))
		if company == "" {
			return errorJSON(e, http.StatusBadRequest, "Company name is required")
		}

		policy := e.Request.FormValue("policy")
		if policy == "" {
			policy = services.RoundPolicyAuto
		}
		round := 0
		if raw := e.Request.FormValue("round"); raw != "" {
			round, err = strconv.Atoi(raw)
			if err != nil || round < 1 {
				return errorJSON(e, http.StatusBadRequest, "Round must be a positive integer")
			}
		}

		var profile *services.ColumnProfile
		if name := e.Request.FormValue("profile"); name != "" {
			profile, err = services.LoadColumnProfile(app, name)
			if err != nil {
				return serviceError(e, "returns_import", err)
			}
		}

		result, err := services.ImportBidReturn(e.Request.Context(), app, cfg, file, services.ReturnImportOptions{
			ProjectID:   projectID,
			CompanyName: company,
			Policy:      policy,
			Round:       round,
			FileName:    fileName,
			Profile:     profile,
			Embedder:    embedder,
		})
		if err != nil {
			return serviceError(e, "returns_import", err)
		}

		return e.JSON(http.StatusOK, result)
	}
}
