package bootstrap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mohammadpnp/catalog-import/internal/bootstrap"
	"github.com/mohammadpnp/catalog-import/internal/config"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(gdb))

	reg := prometheus.NewRegistry()
	cfg := config.Config{StatusLookupTimeout: time.Second, ImportMaxAttempts: 3}
	return bootstrap.NewHTTPServer(gdb, cfg, metrics.NewImportMetrics(reg), reg)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPServerSubmitPollAndCancel(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	rec := serve(h, http.MethodPost, "/api/v1/imports/catalog", `{"source_path":"spring.csv"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	jobID := strings.Split(strings.Split(rec.Body.String(), `"job_id":"`)[1], `"`)[0]
	_, err := uuid.Parse(jobID)
	require.NoError(t, err)

	rec = serve(h, http.MethodGet, "/import-jobs/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"phase":"queued"`)
	assert.NotContains(t, rec.Body.String(), `"error"`)

	rec = serve(h, http.MethodPost, "/import-jobs/"+jobID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, http.MethodPost, "/import-jobs/"+jobID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, http.MethodGet, "/import-jobs/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"canceled"`)
}

func TestHTTPServerUnknownJobs(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	for _, path := range []string{"/import-jobs/" + uuid.NewString(), "/legacy/import-jobs/batch_missing"} {
		rec := serve(h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"error":"Job not found"}`, rec.Body.String(), path)
	}
}

func TestHTTPServerHealthAndMetrics(t *testing.T) {
	t.Parallel()
	h := newServer(t)

	rec := serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	serve(h, http.MethodGet, "/import-jobs/"+uuid.NewString(), "")
	rec = serve(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `catalog_import_status_requests_total{result="not_found",source="import_jobs"} 1`)
}

func TestNewArtifactStore(t *testing.T) {
	t.Parallel()

	store, err := bootstrap.NewArtifactStore(context.Background(), config.Config{
		ArtifactBackend: config.ArtifactBackendFS,
		ArtifactDir:     t.TempDir(),
	})
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = bootstrap.NewArtifactStore(context.Background(), config.Config{ArtifactBackend: "gcs"})
	assert.Error(t, err)
}
