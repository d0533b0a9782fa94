package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAPIStub serves the endpoints the CLI touches with canned responses.
func newAPIStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	write := func(w http.ResponseWriter, status int, data interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
	}

	mux.HandleFunc("/api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusCreated, map[string]interface{}{"id": "s1"})
	})
	mux.HandleFunc("/api/v1/sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v1/sessions/s1/resolve", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]interface{}{
			"applied": true,
			"result": map[string]interface{}{
				"smiles":      "CCO",
				"common_name": "ethanol",
				"formula":     "C2H6O",
				"cid":         702,
				"source":      "ai",
				"molecule": map[string]interface{}{
					"atoms": []map[string]interface{}{
						{"id": "a1", "element": "C"},
						{"id": "a2", "element": "C"},
						{"id": "a3", "element": "O"},
					},
					"bonds": []map[string]interface{}{
						{"id": "b1", "from": "a1", "to": "a2", "order": "single"},
						{"id": "b2", "from": "a2", "to": "a3", "order": "single"},
					},
				},
			},
		})
	})
	mux.HandleFunc("/api/v1/sessions/s1/analyze", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]interface{}{
			"result": map[string]interface{}{
				"stereocenters": map[string]interface{}{
					"a2": map[string]string{"configuration": "R"},
				},
				"geometries": map[string]interface{}{},
				"properties": map[string]string{"MolecularWeight": "46.07"},
				"smiles":     "CCO",
				"source":     "ai",
			},
		})
	})
	mux.HandleFunc("/api/v1/sketches", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"id": "k1", "name": "caffeine", "molecule": map[string]interface{}{"atoms": []interface{}{}}},
			},
			"pagination": map[string]interface{}{"page": 1, "page_size": 20, "total": 1},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", server}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_RejectsBadOutputFormat(t *testing.T) {
	srv := newAPIStub(t)
	_, err := runCLI(t, srv.URL, "-o", "yaml", "resolve", "ethanol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestResolveCmd_TextOutput(t *testing.T) {
	srv := newAPIStub(t)
	out, err := runCLI(t, srv.URL, "resolve", "ethanol")
	require.NoError(t, err)
	assert.Contains(t, out, "ethanol")
	assert.Contains(t, out, "CCO")
	assert.Contains(t, out, "Atoms:     3")
	assert.Contains(t, out, "Source:    ai")
	assert.NotContains(t, out, "degraded")
}

func TestResolveCmd_JSONOutput(t *testing.T) {
	srv := newAPIStub(t)
	out, err := runCLI(t, srv.URL, "-o", "json", "resolve", "ethanol")
	require.NoError(t, err)

	var decoded struct {
		Applied bool `json:"applied"`
		Result  struct {
			SMILES string `json:"smiles"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.True(t, decoded.Applied)
	assert.Equal(t, "CCO", decoded.Result.SMILES)
}

func TestAnalyzeCmd_RequiresExactlyOneInput(t *testing.T) {
	srv := newAPIStub(t)

	_, err := runCLI(t, srv.URL, "analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either a query argument or --sketch")

	_, err = runCLI(t, srv.URL, "analyze", "ethanol", "--sketch", "k1")
	require.Error(t, err)
}

func TestAnalyzeCmd_PrintsStereocenters(t *testing.T) {
	srv := newAPIStub(t)
	out, err := runCLI(t, srv.URL, "analyze", "ethanol")
	require.NoError(t, err)
	assert.Contains(t, out, "Stereocenters:")
	assert.Contains(t, out, "a2")
	assert.Contains(t, out, "R")
	assert.Contains(t, out, "MolecularWeight")
}

func TestSketchListCmd_TableOutput(t *testing.T) {
	srv := newAPIStub(t)
	out, err := runCLI(t, srv.URL, "sketch", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "caffeine")
	assert.Contains(t, out, "1 sketches total")
}

func TestResolveCmd_ServerDown(t *testing.T) {
	_, err := runCLI(t, "http://127.0.0.1:1", "--timeout", "1s", "resolve", "ethanol")
	require.Error(t, err)
}

func TestRootCommand_Version(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.Contains(out.String(), "dev") || strings.Contains(out.String(), "commit"))
}
