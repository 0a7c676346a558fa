package healthprobe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAlwaysOK(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadyTracksComponents(t *testing.T) {
	h := New()

	// No components registered yet
	assert.False(t, h.IsReady())

	h.SetComponentReady("feed", false)
	h.SetComponentReady("oracle", true)
	assert.False(t, h.IsReady())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	h.Ready()(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"feed"}, resp.NotReady)

	h.SetComponentReady("feed", true)
	assert.True(t, h.IsReady())

	rec = httptest.NewRecorder()
	h.Ready()(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
