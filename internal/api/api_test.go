package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nselftv/player/abr"
	"nselftv/player/internal/session"
	"nselftv/player/internal/simulate"
)

func testRouter() (*chi.Mux, *session.ManagerCtx) {
	controller := abr.New([]abr.QualityLevel{
		{Index: 0, Bitrate: 800, Width: 640, Height: 360, Name: "360p"},
		{Index: 1, Bitrate: 2500, Width: 1280, Height: 720, Name: "720p"},
	}, nil)

	m := session.New(controller, simulate.New(nil), nil)

	router := chi.NewRouter()
	New(m).Mount(router)
	return router, m
}

func TestPing(t *testing.T) {
	router, _ := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestState(t *testing.T) {
	router, _ := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var state abr.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 0, state.CurrentLevel)
	assert.False(t, state.SeekPending)
}

func TestLevel(t *testing.T) {
	router, _ := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/level", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Level int    `json:"level"`
		Name  string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 0, response.Level)
	assert.Equal(t, "360p", response.Name)
}

func TestLevels(t *testing.T) {
	router, _ := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/levels", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var levels []abr.QualityLevel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &levels))
	require.Len(t, levels, 2)
	assert.Equal(t, "720p", levels[1].Name)
}

func TestSeekRoundTrip(t *testing.T) {
	router, _ := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/seek/start", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/seek/end", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBufferOverride(t *testing.T) {
	router, _ := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/buffer", strings.NewReader(`{"buffer": 42}`)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/buffer", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
