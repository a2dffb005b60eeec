// Package cast provides the remote receiver transport and the output-route
// provider that switches playback between the local speaker and a receiver.
package cast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Client talks to a cast receiver over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new receiver client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// command is the wire format of a receiver command.
type command struct {
	Handle string  `json:"handle,omitempty"`
	Src    string  `json:"src,omitempty"`
	Loop   bool    `json:"loop,omitempty"`
	Level  float64 `json:"level,omitempty"`
}

// loadResponse is the receiver's reply to a load command.
type loadResponse struct {
	Handle string `json:"handle"`
}

// Load registers a sound on the receiver and returns its playback handle.
func (c *Client) Load(src string, loop bool) (string, error) {
	var resp loadResponse
	if err := c.post("/v1/load", command{Src: src, Loop: loop}, &resp); err != nil {
		return "", errors.Wrap(err, "cast load failed")
	}
	if resp.Handle == "" {
		return "", errors.New("cast receiver returned no handle")
	}
	return resp.Handle, nil
}

// Play starts or re-triggers a loaded sound.
func (c *Client) Play(handle string) error {
	return c.post("/v1/play", command{Handle: handle}, nil)
}

// Pause pauses a loaded sound, keeping it resident on the receiver.
func (c *Client) Pause(handle string) error {
	return c.post("/v1/pause", command{Handle: handle}, nil)
}

// Stop unloads a sound from the receiver.
func (c *Client) Stop(handle string) error {
	return c.post("/v1/stop", command{Handle: handle}, nil)
}

// SetVolume sets a loaded sound's gain, level in [0,1].
func (c *Client) SetVolume(handle string, level float64) error {
	return c.post("/v1/volume", command{Handle: handle, Level: level}, nil)
}

func (c *Client) post(path string, cmd command, out any) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to marshal command")
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "cast request failed: %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Newf("cast receiver error: %s status=%d body=%s", path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "failed to decode response: %s", path)
		}
	}

	zlog.Debug().Msgf("cast command sent: path=%s handle=%s", path, cmd.Handle)
	return nil
}

// String implements fmt.Stringer for log output.
func (c *Client) String() string {
	return fmt.Sprintf("cast(%s)", c.baseURL)
}
