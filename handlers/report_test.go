package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase"

	"tenderalign/services"
	"tenderalign/testhelpers"
)

func importedReturn(t *testing.T) (app *pocketbase.PocketBase, projectID, docID string) {
	t.Helper()
	a := testhelpers.NewTestApp(t)
	pid := projectWithBaseline(t, a)

	rec := postReturn(t, a, pid, map[string]string{"company": "ACME Srl"})
	if rec.Code != http.StatusOK {
		t.Fatalf("return import status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var result services.ReturnImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode import response: %v", err)
	}
	return a, pid, result.DocumentID
}

func TestHandleReportView(t *testing.T) {
	app, projectID, docID := importedReturn(t)

	handler := HandleReportView(app)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("projectId", projectID)
	req.SetPathValue("docId", docID)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var result services.ReturnImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Report == nil || result.Report.Matched != 2 {
		t.Errorf("report = %+v, want 2 matched rows", result.Report)
	}
	if result.Mode != services.ModeRowAddressed {
		t.Errorf("mode = %q, want row_addressed", result.Mode)
	}
}

func TestHandleReportView_WrongProject(t *testing.T) {
	app, _, docID := importedReturn(t)
	other := testhelpers.CreateTestProject(t, app, "Altro", "alt")

	handler := HandleReportView(app)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("projectId", other.Id)
	req.SetPathValue("docId", docID)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleReportExportPDF(t *testing.T) {
	app, projectID, docID := importedReturn(t)

	handler := HandleReportExportPDF(app)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.SetPathValue("projectId", projectID)
	req.SetPathValue("docId", docID)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content-type = %q, want application/pdf", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("response does not start with a PDF header")
	}
}
