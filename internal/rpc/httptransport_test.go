package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServerHealthz(t *testing.T) {
	srv := NewHTTPServer(NewDispatcher(newTestDeps()))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestHTTPServerListsTools(t *testing.T) {
	srv := NewHTTPServer(NewDispatcher(newTestDeps()))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rlm_load_context")
}

func TestHTTPServerToolCallSuccess(t *testing.T) {
	srv := NewHTTPServer(NewDispatcher(newTestDeps()))

	body, err := json.Marshal(map[string]interface{}{"context_id": "doc", "text": "hello"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tools/rlm_load_context", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"contextId":"doc"`)
}

func TestHTTPServerToolCallUnknownFieldReturnsBadRequest(t *testing.T) {
	srv := NewHTTPServer(NewDispatcher(newTestDeps()))

	body, err := json.Marshal(map[string]interface{}{"context_id": "doc", "text": "hi", "bogus": 1})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tools/rlm_load_context", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPServerToolCallMalformedJSONReturnsBadRequest(t *testing.T) {
	srv := NewHTTPServer(NewDispatcher(newTestDeps()))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tools/rlm_load_context", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPServerUnknownToolReturnsInternalServerError(t *testing.T) {
	srv := NewHTTPServer(NewDispatcher(newTestDeps()))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tools/does_not_exist", bytes.NewReader([]byte("{}")))
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
