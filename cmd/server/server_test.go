package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm"
)

// setupTestServer creates a server over a temporary database
func setupTestServer(t *testing.T) http.Handler {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test_server.sqlite3")
	svc, err := omrhythm.NewService(
		omrhythm.WithDBPath(dbPath),
		omrhythm.WithExportDir(tmpDir),
		omrhythm.WithLogger(logger.New(logger.Config{Output: io.Discard})),
	)
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
	})

	srv := NewServer(svc, &ServerConfig{
		DBPath:     dbPath,
		TempDir:    tmpDir,
		SampleRate: 22050,
	})
	srv.log = logger.New(logger.Config{Output: io.Discard})
	return srv.setupRoutes()
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postSystem(t *testing.T, h http.Handler) CreateAnalysisResponse {
	t.Helper()
	data, err := os.ReadFile("testdata/triplet.yaml")
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/analyses?source=scan-1", bytes.NewReader(data), "application/yaml")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Analysis)
	return resp
}

func TestCreateAndGetAnalysis(t *testing.T) {
	h := setupTestServer(t)

	created := postSystem(t, h)
	assert.NotEmpty(t, created.Analysis.ID)
	assert.Equal(t, "triplet", created.Analysis.Name)
	assert.Equal(t, "scan-1", created.Analysis.Source)
	assert.Len(t, created.Analysis.Stacks, 2)

	rec := do(t, h, http.MethodGet, "/api/analyses/"+created.Analysis.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		ID     string `json:"id"`
		Stacks []struct {
			Index int `json:"index"`
		} `json:"stacks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.Analysis.ID, got.ID)
	assert.Len(t, got.Stacks, 2)
}

func TestCreateAnalysisRejectsBadInput(t *testing.T) {
	h := setupTestServer(t)

	tests := []struct {
		name   string
		target string
		body   string
		ctype  string
	}{
		{"empty body", "/api/analyses", "  ", "application/yaml"},
		{"missing stacks", "/api/analyses", "name: broken\n", "application/yaml"},
		{"bad json", "/api/analyses", `{"name": "x", "stacks": [}`, "application/json"},
		{"unknown format", "/api/analyses?format=xml", "<system/>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.target, strings.NewReader(tt.body), tt.ctype)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestListAnalyses(t *testing.T) {
	h := setupTestServer(t)
	postSystem(t, h)
	postSystem(t, h)

	rec := do(t, h, http.MethodGet, "/api/analyses?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListAnalysesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, int64(2), resp.Total)

	for _, q := range []string{"limit=1000", "offset=-1", "limit=abc", "abnormal=maybe"} {
		rec := do(t, h, http.MethodGet, "/api/analyses?"+q, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestDeleteAnalysis(t *testing.T) {
	h := setupTestServer(t)
	id := postSystem(t, h).Analysis.ID

	rec := do(t, h, http.MethodDelete, "/api/analyses/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/analyses/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/analyses/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExports(t *testing.T) {
	h := setupTestServer(t)
	id := postSystem(t, h).Analysis.ID

	rec := do(t, h, http.MethodGet, "/api/analyses/"+id+"/midi", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/midi", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("MThd")))

	rec = do(t, h, http.MethodGet, "/api/analyses/"+id+"/wav", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("RIFF")))

	rec = do(t, h, http.MethodGet, "/api/analyses/"+id+"/verify", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	rec = do(t, h, http.MethodGet, "/api/analyses/missing/midi", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := setupTestServer(t)
	postSystem(t, h)

	rec := do(t, h, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, int64(1), health.Analyses)

	rec = do(t, h, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "omrhythm_analyses_created_total 1")
	assert.Contains(t, body, `omrhythm_http_requests_total{method="POST",route="/api/analyses",status="201"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	h := setupTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/analyses", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
