package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dupsweep "github.com/mattkeenan/dupsweep/pkg"
)

// makeScenario writes a.txt and b.txt with the same content (b older) and a
// unique c.txt
func makeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	for _, f := range []struct {
		name, content string
		mtime         time.Time
	}{
		{"a.txt", "hello", base},
		{"b.txt", "hello", base.Add(-time.Hour)},
		{"c.txt", "world", base},
	} {
		path := filepath.Join(dir, f.name)
		require.NoError(t, os.WriteFile(path, []byte(f.content), 0644))
		require.NoError(t, os.Chtimes(path, f.mtime, f.mtime))
	}
	return dir
}

func newTestRouter(dryRun bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := dupsweep.NewEngine(dupsweep.EngineOptions{
		Defaults: dupsweep.DefaultScanOptions(),
		Delete:   dupsweep.DeleteOptions{Workers: 2, DryRun: dryRun},
		Logger:   zerolog.Nop(),
	})
	return newRouter(engine, zerolog.Nop(), allowedOrigins("127.0.0.1:5000"))
}

// doJSON sends body to path and decodes the response into a map
func doJSON(t *testing.T, router http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w.Code, resp
}

func TestAPIStatus(t *testing.T) {
	code, resp := doJSON(t, newTestRouter(true), http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["dry_run"])
	defaults := resp["defaults"].(map[string]any)
	assert.Equal(t, "sha256", defaults["hash"])
	assert.Equal(t, "oldest", defaults["keep"])
}

func TestAPIScan(t *testing.T) {
	dir := makeScenario(t)
	code, resp := doJSON(t, newTestRouter(false), http.MethodPost, "/api/scan", gin.H{"directory": dir})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, dir, resp["directory"])

	report := resp["report"].(map[string]any)
	groups := report["duplicate_groups"].([]any)
	require.Len(t, groups, 1)
	group := groups[0].(map[string]any)
	assert.Equal(t, filepath.Join(dir, "b.txt"), group["original"])
	assert.Equal(t, float64(2), group["file_count"])
	assert.Equal(t, float64(5), group["wasted_space"])

	stats := report["stats"].(map[string]any)
	assert.Equal(t, float64(3), stats["total_files"])
	assert.Empty(t, resp["processing_errors"])
}

func TestAPIScanOptions(t *testing.T) {
	dir := makeScenario(t)
	code, resp := doJSON(t, newTestRouter(false), http.MethodPost, "/api/scan", gin.H{
		"directory": dir,
		"options":   gin.H{"keep": "path", "hash": "sha512"},
	})
	require.Equal(t, http.StatusOK, code)
	report := resp["report"].(map[string]any)
	assert.Equal(t, "sha512", report["algorithm"])
	group := report["duplicate_groups"].([]any)[0].(map[string]any)
	assert.Equal(t, filepath.Join(dir, "a.txt"), group["original"])

	code, resp = doJSON(t, newTestRouter(false), http.MethodPost, "/api/scan", gin.H{
		"directory": dir,
		"options":   gin.H{"hash": "md5"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, resp["success"])
}

func TestAPIScanInvalidRoot(t *testing.T) {
	router := newTestRouter(false)

	code, resp := doJSON(t, router, http.MethodPost, "/api/scan", gin.H{"directory": filepath.Join(t.TempDir(), "missing")})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp["error"], "does not exist")

	code, _ = doJSON(t, router, http.MethodPost, "/api/scan", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPISuggestions(t *testing.T) {
	dir := makeScenario(t)
	code, resp := doJSON(t, newTestRouter(false), http.MethodPost, "/api/suggestions", gin.H{"directory": dir})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), resp["total_space_saved"])

	suggestions := resp["suggestions"].([]any)
	require.Len(t, suggestions, 1)
	s := suggestions[0].(map[string]any)
	assert.Equal(t, filepath.Join(dir, "a.txt"), s["path"])
	assert.Equal(t, filepath.Join(dir, "b.txt"), s["original"])
	assert.Equal(t, "duplicate of older file", s["reason"])
}

func TestAPIValidatePath(t *testing.T) {
	dir := makeScenario(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	router := newTestRouter(false)

	code, resp := doJSON(t, router, http.MethodPost, "/api/validate-path", gin.H{"path": dir})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["valid"])
	assert.Equal(t, float64(3), resp["file_count"])
	assert.Equal(t, float64(1), resp["dir_count"])

	code, resp = doJSON(t, router, http.MethodPost, "/api/validate-path", gin.H{"path": filepath.Join(dir, "a.txt")})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["valid"])
	assert.Contains(t, resp["error"], "not a directory")
}

func TestAPIDeleteFile(t *testing.T) {
	dir := makeScenario(t)
	target := filepath.Join(dir, "a.txt")
	router := newTestRouter(false)

	code, resp := doJSON(t, router, http.MethodPost, "/api/delete-file", gin.H{"file_path": target, "dry_run": true})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(0), resp["space_freed"])
	assert.FileExists(t, target)

	code, resp = doJSON(t, router, http.MethodPost, "/api/delete-file", gin.H{"file_path": target})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(5), resp["space_freed"])
	assert.NoFileExists(t, target)

	code, resp = doJSON(t, router, http.MethodPost, "/api/delete-file", gin.H{"file_path": target})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, dupsweep.ReasonVanished, resp["message"])

	code, _ = doJSON(t, router, http.MethodPost, "/api/delete-file", gin.H{"file_path": dir})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = doJSON(t, router, http.MethodPost, "/api/delete-file", gin.H{"file_path": ""})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPIDeleteDuplicates(t *testing.T) {
	dir := makeScenario(t)
	a := filepath.Join(dir, "a.txt")
	c := filepath.Join(dir, "c.txt")
	missing := filepath.Join(dir, "missing.txt")
	router := newTestRouter(false)

	code, resp := doJSON(t, router, http.MethodPost, "/api/delete-duplicates", gin.H{
		"file_paths": []string{a, missing, c, a},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, true, resp["partial"])
	assert.Equal(t, float64(2), resp["deleted_count"])
	assert.Equal(t, float64(10), resp["total_space_freed"])
	assert.ElementsMatch(t, []any{a, c}, resp["deleted_files"])

	errs := resp["errors"].([]any)
	require.Len(t, errs, 2)
	assert.Equal(t, missing, errs[0].(map[string]any)["path"])
	assert.Equal(t, dupsweep.ReasonDuplicateTarget, errs[1].(map[string]any)["error"])

	report := resp["report"].(map[string]any)
	assert.Len(t, report["outcomes"], 4)

	code, _ = doJSON(t, router, http.MethodPost, "/api/delete-duplicates", gin.H{"file_paths": []string{}})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPIDryRunServer(t *testing.T) {
	dir := makeScenario(t)
	target := filepath.Join(dir, "a.txt")

	code, resp := doJSON(t, newTestRouter(true), http.MethodPost, "/api/delete-duplicates", gin.H{
		"file_paths": []string{target},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(0), resp["deleted_count"])
	assert.Empty(t, resp["errors"])
	assert.FileExists(t, target)
}

func TestAPICORS(t *testing.T) {
	router := newTestRouter(false)

	req := httptest.NewRequest(http.MethodOptions, "/api/scan", nil)
	req.Header.Set("Origin", "http://localhost:5000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/scan", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://localhost:5000", "http://127.0.0.1:5000"}, allowedOrigins(":5000"))
	assert.Equal(t, []string{"http://localhost:8080", "http://127.0.0.1:8080", "http://nas.lan:8080"}, allowedOrigins("nas.lan:8080"))
	assert.Equal(t, []string{"http://localhost", "http://127.0.0.1"}, allowedOrigins("bogus"))
}
