package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/service"
	"github.com/lunajoy/matchengine/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func newTestApp(t *testing.T, checks map[string]Pinger) *App {
	t.Helper()
	s := store.NewInMemoryStore()
	require.NoError(t, s.Clinicians().Upsert(context.Background(), &domain.Clinician{
		ID:                   "c1",
		Name:                 "Dr. One",
		LicenseStates:        []string{"CA"},
		AppointmentTypes:     []domain.AppointmentType{domain.AppointmentTherapy},
		AcceptingNewPatients: true,
		MaxPatientCapacity:   10,
	}))

	app := NewApp(Deps{
		Clinicians:   s.Clinicians(),
		Users:        s.Users(),
		Interactions: s.Interactions(),
		Checks:       checks,
		Match:        service.DefaultMatchConfig(),
		Registry:     prometheus.NewRegistry(),
	}, zap.NewNop())
	t.Cleanup(app.Close)
	return app
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, map[string]Pinger{"postgres": stubPinger{}})

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "dev", body.Version)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Nil(t, body.Reference)
}

func TestHealth_FailingDependency(t *testing.T) {
	app := newTestApp(t, map[string]Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	})

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"])
}

func TestRoutes(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/v1/clinicians", http.StatusOK},
		{http.MethodGet, "/v1/clinicians/c1", http.StatusOK},
		{http.MethodGet, "/v1/users/u1", http.StatusNotFound},
		{http.MethodPost, "/v1/users/u1/match", http.StatusNotFound},
		{http.MethodPost, "/v1/admin/reference/refresh", http.StatusOK},
		{http.MethodGet, "/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.Router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	// The refresh above leaves a snapshot for health to report.
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Reference)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	app.Router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/clinicians", nil))

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `matchengine_http_requests_total{method="GET",route="/v1/clinicians`)
}
