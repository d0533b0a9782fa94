package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kFady/stereo-site-1/pkg/errors"
)

func newHealthRouter(checks map[string]CheckFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler(checks).Register(r)
	return r
}

func getPath(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthHandler_LivenessAlwaysUp(t *testing.T) {
	r := newHealthRouter(nil)
	w := getPath(r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "up")
}

func TestHealthHandler_ReadyWhenChecksPass(t *testing.T) {
	r := newHealthRouter(map[string]CheckFunc{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return nil },
	})

	w := getPath(r, "/readyz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "database")
	assert.Contains(t, w.Body.String(), "cache")
}

func TestHealthHandler_NotReadyOnFailingCheck(t *testing.T) {
	r := newHealthRouter(map[string]CheckFunc{
		"database": func(context.Context) error { return nil },
		"storage": func(context.Context) error {
			return errors.New(errors.ErrCodeStorageError, "bucket unreachable")
		},
	})

	w := getPath(r, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "bucket unreachable")
}
