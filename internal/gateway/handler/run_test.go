package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"reportify/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	runs := store.NewRunStore(filepath.Join(t.TempDir(), "runs.json"))
	return NewService(nil, runs)
}

func TestHandleGetRun(t *testing.T) {
	svc := newTestService(t)
	if err := svc.runs.Save(store.RunDocument{RunID: "r1", Title: "T", Document: "# T"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/runs?run_id=r1", nil)
	rec := httptest.NewRecorder()
	svc.HandleGetRun(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var doc store.RunDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.RunID != "r1" || doc.Title != "T" {
		t.Fatalf("got %+v", doc)
	}
}

func TestHandleGetRun_Errors(t *testing.T) {
	svc := newTestService(t)

	rec := httptest.NewRecorder()
	svc.HandleGetRun(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing run_id: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	svc.HandleGetRun(rec, httptest.NewRequest(http.MethodGet, "/runs?run_id=nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown run: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	svc.HandleGetRun(rec, httptest.NewRequest(http.MethodPost, "/runs?run_id=r", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("post: status %d", rec.Code)
	}
}
