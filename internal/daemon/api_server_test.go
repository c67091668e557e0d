package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bsie/internal/api"
	"bsie/internal/statecontrol"
	"bsie/internal/testsupport"
	"bsie/internal/workflow"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	controller := statecontrol.New(store, nil, nil)
	wf := workflow.NewManager(cfg, store, controller, nil)

	d, err := New(cfg, store, controller, wf, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.paths.Ensure(); err != nil {
		t.Fatalf("paths.Ensure: %v", err)
	}
	return d
}

func TestAPIServerListStatements(t *testing.T) {
	d := newTestDaemon(t)
	testsupport.NewStatement(t, d.store, "list")

	req := httptest.NewRequest(http.MethodGet, "/api/statements", nil)
	w := httptest.NewRecorder()
	d.api.handleStatements(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp api.StatementListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Statements) != 1 {
		t.Fatalf("statements = %d", len(resp.Statements))
	}
	if resp.Statements[0].State != "UPLOADED" {
		t.Fatalf("state = %s", resp.Statements[0].State)
	}
}

func TestAPIServerListRejectsUnknownState(t *testing.T) {
	d := newTestDaemon(t)

	req := httptest.NewRequest(http.MethodGet, "/api/statements?state=LIMBO", nil)
	w := httptest.NewRecorder()
	d.api.handleStatements(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAPIServerUploadIngests(t *testing.T) {
	d := newTestDaemon(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "statement.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("%PDF-1.4\n<< /Type /Page >>\n%%EOF")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/statements", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	d.api.handleStatements(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var created api.Statement
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.State != "INGESTED" {
		t.Fatalf("state = %s", created.State)
	}
	if created.OriginalFilename != "statement.pdf" {
		t.Fatalf("filename = %s", created.OriginalFilename)
	}
}

func TestAPIServerStatementRoutes(t *testing.T) {
	d := newTestDaemon(t)
	rec := testsupport.NewStatement(t, d.store, "routes")

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		d.api.handleStatement(w, req)
		return w
	}

	if w := get("/api/statements/" + rec.ID); w.Code != http.StatusOK {
		t.Fatalf("describe status = %d", w.Code)
	}
	if w := get("/api/statements/" + rec.ID + "/state"); w.Code != http.StatusOK {
		t.Fatalf("state status = %d", w.Code)
	} else {
		var view api.StateView
		if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
			t.Fatalf("decode state view: %v", err)
		}
		if view.StateLabel != "Uploaded" {
			t.Fatalf("label = %s", view.StateLabel)
		}
	}
	if w := get("/api/statements/" + rec.ID + "/history"); w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	if w := get("/api/statements/stmt_missing"); w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", w.Code)
	}
	if w := get("/api/statements/" + rec.ID + "/unknown"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown action status = %d", w.Code)
	}
}

func TestAPIServerTransitionMapsRejectionStatus(t *testing.T) {
	d := newTestDaemon(t)
	rec := testsupport.NewStatement(t, d.store, "transition")

	body := strings.NewReader(`{"toState":"COMPLETED","trigger":"skip"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/statements/"+rec.ID+"/transition", body)
	w := httptest.NewRecorder()
	d.api.handleStatement(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var outcome api.TransitionOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.Success || outcome.ErrorKind != "invalid_transition" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestAPIServerTransitionSuccess(t *testing.T) {
	d := newTestDaemon(t)
	rec := testsupport.NewStatement(t, d.store, "advance")

	body := strings.NewReader(`{"toState":"INGESTED","trigger":"ingestion_complete","artifacts":{"ingest_receipt":"/a/receipt.json"},"expectedVersion":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/statements/"+rec.ID+"/transition", body)
	w := httptest.NewRecorder()
	d.api.handleStatement(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	state, version, err := d.controller.CurrentState(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if string(state) != "INGESTED" || version != rec.StateVersion+1 {
		t.Fatalf("record = %s v%d", state, version)
	}
}

func TestAPIServerStatus(t *testing.T) {
	d := newTestDaemon(t)
	testsupport.NewStatement(t, d.store, "status")

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	d.api.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.StateCounts["UPLOADED"] != 1 {
		t.Fatalf("counts = %v", status.StateCounts)
	}
	if status.DatabasePath == "" {
		t.Fatal("database path missing")
	}
}
