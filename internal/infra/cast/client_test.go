package cast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietfall/quietfall/internal/domain/sound"
)

// newTestReceiver returns a client pointed at a fake receiver that records
// every command path and body.
func newTestReceiver(t *testing.T) (*Client, *[]string) {
	t.Helper()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)

		var cmd command
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cmd))

		if r.URL.Path == "/v1/load" {
			_ = json.NewEncoder(w).Encode(loadResponse{Handle: "h-" + cmd.Src})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, time.Second), &paths
}

func TestClient_LoadAndCommands(t *testing.T) {
	client, paths := newTestReceiver(t)

	handle, err := client.Load("rain.mp3", true)
	require.NoError(t, err)
	assert.Equal(t, "h-rain.mp3", handle)

	require.NoError(t, client.Play(handle))
	require.NoError(t, client.Pause(handle))
	require.NoError(t, client.SetVolume(handle, 0.4))
	require.NoError(t, client.Stop(handle))

	assert.Equal(t, []string{"/v1/load", "/v1/play", "/v1/pause", "/v1/volume", "/v1/stop"}, *paths)
}

func TestClient_ReceiverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session closed", http.StatusGone)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Play("h-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=410")
}

func TestFactory_New(t *testing.T) {
	client, paths := newTestReceiver(t)
	factory := NewFactory(client, func(s sound.Sound) string { return s.Src })

	strat, err := factory.New(sound.Sound{Key: "rain", Src: "rain.mp3", IsContiguous: true})
	require.NoError(t, err)

	strat.Play()
	strat.SetVolume(0.8)
	strat.Stop()

	assert.Equal(t, []string{"/v1/load", "/v1/play", "/v1/volume", "/v1/stop"}, *paths)
}
