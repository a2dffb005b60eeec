package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietfall/quietfall/internal/app/engine"
	"github.com/quietfall/quietfall/internal/app/generator"
	"github.com/quietfall/quietfall/internal/app/strategy"
	"github.com/quietfall/quietfall/internal/domain/preset"
	"github.com/quietfall/quietfall/internal/domain/sound"
	"github.com/quietfall/quietfall/internal/infra/cast"
	"github.com/quietfall/quietfall/internal/infra/presetstore"
)

// silentStrategy is a no-op output for API tests.
type silentStrategy struct{}

func (silentStrategy) Play()             {}
func (silentStrategy) Pause()            {}
func (silentStrategy) Stop()             {}
func (silentStrategy) SetVolume(float64) {}

type silentFactory struct{}

func (silentFactory) New(sound.Sound) (strategy.Strategy, error) {
	return silentStrategy{}, nil
}

// testCatalog serves both the engine and the generators.
type testCatalog struct {
	sounds []sound.Sound
}

func (c *testCatalog) Get(key string) (sound.Sound, bool) {
	for _, s := range c.sounds {
		if s.Key == key {
			return s, true
		}
	}
	return sound.Sound{}, false
}

func (c *testCatalog) Keys(tag string) []string {
	var keys []string
	for _, s := range c.sounds {
		if s.HasTag(tag) {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

type apiFixture struct {
	router *gin.Engine
	store  *presetstore.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	catalog := &testCatalog{sounds: []sound.Sound{
		{Key: "rain", Name: "Rain", IsContiguous: true, Tags: []string{"nature"}},
		{Key: "wind", Name: "Wind", IsContiguous: true, Tags: []string{"nature"}},
		{Key: "birds", Name: "Birds", Tags: []string{"nature"}},
	}}

	store, err := presetstore.Open(filepath.Join(t.TempDir(), "presets.yaml"))
	require.NoError(t, err)

	factory := silentFactory{}
	manager := engine.NewManager(
		engine.Config{},
		catalog,
		store,
		generator.NewUniformGenerator(catalog),
		engine.NewLocalArbiter(),
		factory,
	)
	route := cast.NewRouteProvider(factory, "", time.Second, func(s sound.Sound) string { return s.Src })
	route.Attach(manager)

	events := NewEventStream(manager)
	t.Cleanup(events.Close)

	return &apiFixture{
		router: SetupRouter(NewAPI(manager, store, route), events),
		store:  store,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAPI_PlayAndState(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/play/rain", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "playing", state.State)
	require.Len(t, state.Players, 1)
	assert.Equal(t, "rain", state.Players[0].SoundKey)
	assert.False(t, state.Casting)
}

func TestAPI_PauseResumeStop(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/v1/play/rain", "")

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/v1/pause", "").Code)
	var state StateResponse
	rec := f.do(t, http.MethodGet, "/v1/state", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "paused", state.State)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/v1/resume", "").Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/v1/stop", "").Code)

	rec = f.do(t, http.MethodGet, "/v1/state", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "stopped", state.State)
	assert.Empty(t, state.Players)
}

func TestAPI_SavePresetAndPlayIt(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/v1/play/rain", "")
	f.do(t, http.MethodPost, "/v1/play/wind", "")

	rec := f.do(t, http.MethodPost, "/v1/presets", `{"name":"Breeze"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved preset.Preset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.NotEmpty(t, saved.ID)
	assert.Len(t, saved.States, 2)

	f.do(t, http.MethodPost, "/v1/stop", "")

	rec = f.do(t, http.MethodPost, "/v1/presets/"+saved.ID+"/play", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var state StateResponse
	rec = f.do(t, http.MethodGet, "/v1/state", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "playing", state.State)
	assert.Len(t, state.Players, 2)
}

func TestAPI_SaveDuplicateReturnsExisting(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodPost, "/v1/play/rain", "")

	rec := f.do(t, http.MethodPost, "/v1/presets", `{"name":"First"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first preset.Preset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = f.do(t, http.MethodPost, "/v1/presets", `{"name":"Second"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second preset.Preset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.store.List(), 1)
}

func TestAPI_SavePresetNothingPlaying(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/presets", `{"name":"Empty"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_RandomPresetValidation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "valid", body: `{"minSounds":1,"maxSounds":2}`, want: http.StatusNoContent},
		{name: "min greater than max", body: `{"minSounds":3,"maxSounds":1}`, want: http.StatusBadRequest},
		{name: "missing fields", body: `{}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/presets/random", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAPI_SkipValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/presets/skip", `{"direction":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_CastWithoutReceiver(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/cast/begin", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_DeletePreset(t *testing.T) {
	f := newAPIFixture(t)

	saved, err := f.store.Save(preset.Preset{Name: "X", States: []preset.PlayerState{
		{SoundKey: "rain", Volume: 8, TimePeriod: 300},
	}})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/presets/"+saved.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/v1/presets/"+saved.ID, "").Code)
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
