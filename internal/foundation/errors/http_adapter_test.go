package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)

	assert.Equal(t, http.StatusOK, a.StatusCodeFor(nil))
	assert.Equal(t, http.StatusBadRequest, a.StatusCodeFor(ConfigError("x").Build()))
	assert.Equal(t, http.StatusUnprocessableEntity, a.StatusCodeFor(TemplateError(TemplateSyntaxErrorKind, "x").Build()))
	assert.Equal(t, http.StatusServiceUnavailable, a.StatusCodeFor(RuntimeError("x").Build()))
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/__status", nil)

	err := ContentError(DuplicatePermalinkKind, "duplicate permalink").
		Fatal().
		WithContext("permalink", "/posts/a/").
		Build()
	a.WriteErrorResponse(rec, req, err)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "duplicate permalink", body.Error)
	assert.Equal(t, "content", body.Code)
	assert.Equal(t, "DuplicatePermalink", body.Kind)
	assert.Equal(t, "/posts/a/", body.Details["permalink"])
	assert.False(t, body.Retryable)
}
