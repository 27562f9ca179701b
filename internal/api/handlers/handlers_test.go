package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dfarias/escrow-etl/internal/jobs"
	"github.com/dfarias/escrow-etl/internal/jobs/inmemory"
	"github.com/dfarias/escrow-etl/internal/load"
	"github.com/dfarias/escrow-etl/internal/pipeline"
)

type mockPublisher struct {
	published []*jobs.RunJob
	err       error
}

func (p *mockPublisher) PublishRun(ctx context.Context, job *jobs.RunJob) error {
	if p.err != nil {
		return p.err
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	p.published = append(p.published, job)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func TestUpload(t *testing.T) {
	h := NewUploadsHandler(t.TempDir(), zerolog.Nop())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "saldos.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("Conta;Saldo JAN23\n1;R$ 1,00\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Path      string `json:"path"`
		Filename  string `json:"filename"`
		SizeBytes int64  `json:"size_bytes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Filename != "saldos.csv" || resp.SizeBytes == 0 {
		t.Errorf("response = %+v", resp)
	}
	if _, err := os.Stat(resp.Path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	h := NewUploadsHandler(t.TempDir(), zerolog.Nop())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.Upload(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestEnqueueRun(t *testing.T) {
	pub := &mockPublisher{}
	h := NewRunsHandler(pub, pipeline.NewRunner(load.NewMemoryLoader(), zerolog.Nop()), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"balances_path":"saldos.csv","withdrawals_path":"resgates.csv"}`))
	rr := httptest.NewRecorder()
	h.Enqueue(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if len(pub.published) != 1 || pub.published[0].WithdrawalsPath != "resgates.csv" {
		t.Errorf("published = %+v", pub.published)
	}
	if !strings.Contains(rr.Body.String(), "job-1") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestEnqueueRunValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing paths", `{}`},
		{"missing withdrawals", `{"balances_path":"saldos.csv"}`},
		{"bad json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRunsHandler(&mockPublisher{}, pipeline.NewRunner(load.NewMemoryLoader(), zerolog.Nop()), zerolog.Nop())
			req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.Enqueue(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestEnqueueRunPublisherError(t *testing.T) {
	h := NewRunsHandler(&mockPublisher{err: errors.New("queue closed")},
		pipeline.NewRunner(load.NewMemoryLoader(), zerolog.Nop()), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/runs",
		strings.NewReader(`{"balances_path":"a.csv","withdrawals_path":"b.csv"}`))
	rr := httptest.NewRecorder()
	h.Enqueue(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestRunStatusIdleRunner(t *testing.T) {
	h := NewRunsHandler(&mockPublisher{}, pipeline.NewRunner(load.NewMemoryLoader(), zerolog.Nop()), zerolog.Nop())

	rr := httptest.NewRecorder()
	h.Status(rr, httptest.NewRequest(http.MethodGet, "/api/runs/status", nil))

	var status pipeline.Status
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status.Running {
		t.Errorf("status = %+v, want idle", status)
	}
}

func TestGetJob(t *testing.T) {
	store := inmemory.NewStore()
	job := &jobs.RunJob{JobID: "job-9", Status: jobs.JobStatusCompleted}
	if err := store.SaveJob(context.Background(), job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	h := NewJobsHandler(store, zerolog.Nop())

	rr := httptest.NewRecorder()
	h.GetJob(rr, httptest.NewRequest(http.MethodGet, "/api/jobs/job-9", nil), "job-9")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.GetJob(rr, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil), "missing")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestListJobsRejectsBadLimit(t *testing.T) {
	h := NewJobsHandler(inmemory.NewStore(), zerolog.Nop())

	rr := httptest.NewRecorder()
	h.ListJobs(rr, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=abc", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestTablesStatsAndHealth(t *testing.T) {
	loader := load.NewMemoryLoader()
	h := NewTablesHandler(loader, zerolog.Nop())

	rr := httptest.NewRecorder()
	h.Stats(rr, httptest.NewRequest(http.MethodGet, "/api/tables", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}

	loader.PingErr = errors.New("store down")
	rr = httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded health status = %d", rr.Code)
	}
}
