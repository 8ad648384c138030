package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"tenderalign/config"
	"tenderalign/services"
	"tenderalign/testhelpers"
)

const baselineUploadCSV = `N.,Codice,Descrizione,U.M.,Quantità,Prezzo,Importo
,E012,Opere in c.a.,,,,
1,E012.001,Getto di fondazione in calcestruzzo,m3,"10,00","12,50","125,00"
2,E012.002,Getto pilastri in elevazione,m3,"4,00","110,00","440,00"
`

// multipartUpload builds a multipart body with one file part plus extra
// form fields, returning the body and its content type.
func multipartUpload(t *testing.T, fileName, fileContent string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(fw, fileContent); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHandleBaselineImport_Success(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	project := testhelpers.CreateTestProject(t, app, "Scuola media", "scm")
	cfg := config.Default()

	handler := HandleBaselineImport(app, cfg)

	body, contentType := multipartUpload(t, "computo.csv", baselineUploadCSV, nil)
	req := httptest.NewRequest(http.MethodPost, "/projects/"+project.Id+"/baseline/import", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("projectId", project.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var result services.BaselineImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.RowsImported != 2 {
		t.Errorf("rows imported = %d, want 2", result.RowsImported)
	}
}

func TestHandleBaselineImport_ProjectNotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleBaselineImport(app, config.Default())

	body, contentType := multipartUpload(t, "computo.csv", baselineUploadCSV, nil)
	req := httptest.NewRequest(http.MethodPost, "/test", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("projectId", "nonexistent")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleBaselineImport_MissingFile(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	project := testhelpers.CreateTestProject(t, app, "Scuola media", "scm")
	handler := HandleBaselineImport(app, config.Default())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/test", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.SetPathValue("projectId", project.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleBaselineImport_UnknownProfile(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	project := testhelpers.CreateTestProject(t, app, "Scuola media", "scm")
	handler := HandleBaselineImport(app, config.Default())

	body, contentType := multipartUpload(t, "computo.csv", baselineUploadCSV,
		map[string]string{"profile": "no_such_profile"})
	req := httptest.NewRequest(http.MethodPost, "/test", body)
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("projectId", project.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}
