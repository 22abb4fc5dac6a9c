package audit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicflow/clinicflow/internal/shared"
)

func newAuditServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(stubRepository{rows: makeRows(3)}))

	r := chi.NewRouter()
	r.Use(shared.PrincipalMiddleware)
	r.Route("/api", func(r chi.Router) {
		handler.MountRoutes(r)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func adminHeaders() map[string]string {
	return map[string]string{
		shared.HeaderStaffID:   "s-admin",
		shared.HeaderStaffRole: "admin",
	}
}

func TestTimelineRequiresAdmin(t *testing.T) {
	server := newAuditServer(t)

	resp := get(t, server.URL+"/api/audit/timeline", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, server.URL+"/api/audit/timeline", map[string]string{
		shared.HeaderStaffID:   "s-1",
		shared.HeaderStaffRole: "doctor",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, server.URL+"/api/audit/timeline", adminHeaders())
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	server := newAuditServer(t)

	resp := get(t, server.URL+"/api/audit/timeline?from=not-a-time", adminHeaders())
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, server.URL+"/api/audit/timeline?from=2026-01-01T00:00:00Z&to=2025-01-01T00:00:00Z", adminHeaders())
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportCSVEndpoint(t *testing.T) {
	server := newAuditServer(t)

	resp := get(t, server.URL+"/api/audit/timeline.csv", adminHeaders())
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
}
