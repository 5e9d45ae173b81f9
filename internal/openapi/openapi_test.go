package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"go.uber.org/zap"
)

func newValidatedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	doc, err := Load(context.Background())
	require.NoError(t, err)

	validate, err := ValidationMiddleware(doc, zap.NewNop())
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(validate)
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	router.POST("/api/v1/medications", ok)
	router.GET("/api/v1/alerts", ok)
	router.PATCH("/api/v1/alerts/:id/resolve", ok)
	router.GET("/metrics", ok)
	return router
}

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/api/v1/reports/adherence"))
	assert.NotNil(t, doc.Paths.Find("/api/v1/alerts/{id}/resolve"))
}

func TestValidationMiddleware(t *testing.T) {
	router := newValidatedRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid medicine",
			method:     http.MethodPost,
			path:       "/api/v1/medications",
			body:       `{"user_id":"patient-1","name":"Metformin","dosage":"500mg","frequency":"daily","stock":10}`,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "negative stock",
			method:     http.MethodPost,
			path:       "/api/v1/medications",
			body:       `{"user_id":"patient-1","name":"Metformin","dosage":"500mg","frequency":"daily","stock":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing name",
			method:     http.MethodPost,
			path:       "/api/v1/medications",
			body:       `{"user_id":"patient-1","dosage":"500mg","frequency":"daily"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing user_id query",
			method:     http.MethodGet,
			path:       "/api/v1/alerts",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non boolean filter",
			method:     http.MethodGet,
			path:       "/api/v1/alerts?user_id=patient-1&unresolved=maybe",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "valid resolve",
			method:     http.MethodPatch,
			path:       "/api/v1/alerts/alert-1/resolve",
			body:       `{"resolved_by":"doctor-1"}`,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "undocumented path passes through",
			method:     http.MethodGet,
			path:       "/metrics",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusBadRequest {
				var resp api.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "VALIDATION_ERROR", resp.Code)
			}
		})
	}
}

func TestServeDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/openapi.yaml", ServeDocument)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}
