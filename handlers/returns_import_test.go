package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"

	"tenderalign/config"
	"tenderalign/services"
	"tenderalign/testhelpers"
)

const returnUploadCSV = `N.,Codice,Descrizione,U.M.,Quantità,Prezzo,Importo
,E012,Opere in c.a.,,,,
1,E012.001,Getto di fondazione in calcestruzzo,m3,"10,00","25,00","250,00"
2,E012.002,Getto pilastri in elevazione,m3,"4,00","100,00","400,00"
`

func projectWithBaseline(t *testing.T, app *pocketbase.PocketBase) string {
	t.Helper()
	project := testhelpers.CreateTestProject(t, app, "Scuola media", "scm")
	_, err := services.ImportBaseline(app, config.Default(), strings.NewReader(baselineUploadCSV),
		services.BaselineImportOptions{ProjectID: project.Id, FileName: "computo.csv"})
	if err != nil {
		t.Fatalf("baseline import failed: %v", err)
	}
	return project.Id
}

func postReturn(t *testing.T, app *pocketbase.PocketBase, projectID string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	handler := HandleReturnsImport(app, config.Default(), nil)

	body, contentType := multipartUpload(t, "offerta.csv", returnUploadCSV, fields)
	req := httptest.NewRequest(http.MethodPost, "/projects/"+projectID+"/returns/import", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("projectId", projectID)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestHandleReturnsImport_Success(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	projectID := projectWithBaseline(t, app)

	rec := postReturn(t, app, projectID, map[string]string{"company": "ACME Srl"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var result services.ReturnImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Round != 1 {
		t.Errorf("round = %d, want 1", result.Round)
	}
	if result.Report == nil || result.Report.Matched != 2 {
		t.Errorf("report = %+v, want 2 matched rows", result.Report)
	}
}

func TestHandleReturnsImport_MissingCompany(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	projectID := projectWithBaseline(t, app)

	rec := postReturn(t, app, projectID, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleReturnsImport_UsedRound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	projectID := projectWithBaseline(t, app)

	rec := postReturn(t, app, projectID, map[string]string{"company": "ACME Srl"})
	if rec.Code != http.StatusOK {
		t.Fatalf("first import status = %d, want 200", rec.Code)
	}

	// Explicitly requesting round 1 again must fail validation.
	rec = postReturn(t, app, projectID, map[string]string{
		"company": "ACME Srl",
		"policy":  services.RoundPolicyNew,
		"round":   "1",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleReturnsImport_NoBaseline(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	project := testhelpers.CreateTestProject(t, app, "Vuoto", "vto")

	rec := postReturn(t, app, project.Id, map[string]string{"company": "ACME Srl"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}
