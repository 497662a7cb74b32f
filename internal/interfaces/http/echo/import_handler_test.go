package echo_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/catalog-import/internal/application/importjob"
	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

func postImport(e *echo.Echo, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/catalog", bytes.NewReader([]byte(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestImportHandlerSuccess(t *testing.T) {
	t.Parallel()

	start := &fakeImportUseCase{output: app.StartCatalogImportOutput{
		JobID:  "job-1",
		Status: domain.StatusPending,
	}}
	e := newTestServer(routeDeps{start: start})

	rec := postImport(e, `{"source_path":"spring.csv","trace_id":"tr-1","options":{"dry_run":true,"upsert_key":"handle","image_strategy":"append"}}`, nil)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unexpected json: %v", err)
	}
	data, ok := got["data"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected data payload: %#v", got["data"])
	}
	if data["job_id"] != "job-1" || data["status"] != "pending" {
		t.Fatalf("unexpected data: %#v", data)
	}

	if start.got.SourcePath != "spring.csv" || start.got.TraceID != "tr-1" {
		t.Fatalf("unexpected use case input: %+v", start.got)
	}
	if !start.got.Options.DryRun || start.got.Options.UpsertKey != domain.UpsertByHandle || start.got.Options.ImageStrategy != "append" {
		t.Fatalf("options not forwarded: %+v", start.got.Options)
	}
}

func TestImportHandlerFallsBackToHeaders(t *testing.T) {
	t.Parallel()

	start := &fakeImportUseCase{output: app.StartCatalogImportOutput{JobID: "job-1", Status: domain.StatusPending}}
	e := newTestServer(routeDeps{start: start})

	rec := postImport(e, `{"source_path":"spring.csv"}`, map[string]string{"Idempotency-Key": "idem-7"})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if start.got.IdempotencyKey != "idem-7" {
		t.Fatalf("expected idempotency key from header, got %q", start.got.IdempotencyKey)
	}
}

func TestImportHandlerErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"bad json", `{"source_path":`, nil, http.StatusBadRequest, "bad_request"},
		{"invalid source", `{"source_path":"a.json"}`, app.ErrInvalidImportSource, http.StatusBadRequest, "invalid_source"},
		{"invalid options", `{"source_path":"a.csv"}`, fmt.Errorf("%w: unsupported upsert key", app.ErrInvalidImportOptions), http.StatusBadRequest, "invalid_options"},
		{"enqueue failure", `{"source_path":"a.csv"}`, errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newTestServer(routeDeps{start: &fakeImportUseCase{err: tc.err}})

			rec := postImport(e, tc.body, nil)

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			var got struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("unexpected json: %v", err)
			}
			if got.Error.Code != tc.wantErr {
				t.Fatalf("expected error code %q, got %q", tc.wantErr, got.Error.Code)
			}
		})
	}
}

func TestCancelHandler(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		cancel   *fakeCancelUseCase
		wantCode int
	}{
		{"canceled", &fakeCancelUseCase{output: app.CancelImportJobOutput{JobID: "job-1", Status: domain.StatusCanceled}}, http.StatusOK},
		{"unknown job", &fakeCancelUseCase{err: app.ErrImportJobNotFound}, http.StatusNotFound},
		{"already finished", &fakeCancelUseCase{err: app.ErrImportJobNotCancelable}, http.StatusConflict},
		{"store failure", &fakeCancelUseCase{err: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newTestServer(routeDeps{cancel: tc.cancel})

			req := httptest.NewRequest(http.MethodPost, "/import-jobs/job-1/cancel", nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
		})
	}
}
