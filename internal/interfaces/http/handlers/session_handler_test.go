package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appeditor "github.com/kFady/stereo-site-1/internal/application/editor"
	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
)

func testEditorConfig() config.EditorConfig {
	return config.EditorConfig{
		BondLength:      40,
		AtomHitRadiusPx: 12,
		BondHitRadiusPx: 8,
		MultiBondGapPx:  4,
		RingRadius:      40,
		ZoomStep:        1.25,
		MinScale:        0.2,
		MaxScale:        5,
		SessionTTL:      time.Hour,
	}
}

func newSessionService(t *testing.T) *appeditor.Service {
	t.Helper()
	s := appeditor.NewService(testEditorConfig(), logging.NewNopLogger(), nil)
	t.Cleanup(s.Close)
	return s
}

func newSessionRouter(t *testing.T) (*gin.Engine, *appeditor.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sessions := newSessionService(t)
	r := gin.New()
	NewSessionHandler(sessions).Register(r.Group("/api/v1"))
	return r, sessions
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope mirrors the response wrapper loosely for assertions.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func createSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var data struct {
		ID string `json:"id"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.ID)
	return data.ID
}

func TestSessionHandler_CreateGetDelete(t *testing.T) {
	r, _ := newSessionRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEnvelope(t, w).Success)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EDT_001", env.Error.Code)
}

func TestSessionHandler_PointerEventsPlaceAtoms(t *testing.T) {
	r, sessions := newSessionRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/tool",
		map[string]string{"kind": "atom", "element": "N"})
	require.Equal(t, http.StatusOK, w.Code)

	for _, phase := range []string{"down", "up"} {
		w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/events",
			map[string]interface{}{"phase": phase, "x": 100, "y": 100})
		require.Equal(t, http.StatusOK, w.Code)
	}

	mol, err := sessions.Molecule(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, mol.Atoms, 1)
	assert.Equal(t, "N", string(mol.Atoms[0].Element))
}

func TestSessionHandler_InvalidToolRejected(t *testing.T) {
	r, _ := newSessionRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/tool",
		map[string]string{"kind": "lasso"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EDT_007", env.Error.Code)
}

func TestSessionHandler_ZoomValidatesDirection(t *testing.T) {
	r, _ := newSessionRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/zoom",
		map[string]string{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/zoom",
		map[string]string{"direction": "in"})
	require.Equal(t, http.StatusOK, w.Code)

	var plan struct {
		Viewport struct {
			Scale float64 `json:"scale"`
		} `json:"viewport"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &plan))
	assert.InDelta(t, 1.25, plan.Viewport.Scale, 1e-9)
}

func TestSessionHandler_MoleculeRoundTrip(t *testing.T) {
	r, _ := newSessionRouter(t)
	id := createSession(t, r)

	body := map[string]interface{}{
		"molecule": map[string]interface{}{
			"atoms": []map[string]interface{}{
				{"id": "a1", "element": "C", "x": 0, "y": 0},
				{"id": "a2", "element": "O", "x": 40, "y": 0},
			},
			"bonds": []map[string]interface{}{
				{"id": "b1", "from": "a1", "to": "a2", "order": "single"},
			},
		},
	}
	w := doJSON(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/molecule", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id+"/molecule", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		MolBlock string `json:"mol_block"`
		Molecule struct {
			Atoms []struct {
				Element string `json:"element"`
			} `json:"atoms"`
		} `json:"molecule"`
	}
	env := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Molecule.Atoms, 2)
	assert.Contains(t, data.MolBlock, "V2000")
}

func TestSessionHandler_LoadMoleculeRequiresPayload(t *testing.T) {
	r, _ := newSessionRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/molecule",
		map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_CanvasValidates(t *testing.T) {
	r, _ := newSessionRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/canvas",
		map[string]interface{}{"width": -1, "height": 600})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/canvas",
		map[string]interface{}{"width": 1024, "height": 768})
	assert.Equal(t, http.StatusOK, w.Code)
}
