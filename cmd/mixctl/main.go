// Package main provides a CLI client for controlling the mixer over HTTP.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("mixctl", "quietfall mixer control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8096").String()

	// state command
	stateCmd = app.Command("state", "Show the current playback state")

	// play command
	playCmd = app.Command("play", "Start playing a sound")
	playKey = playCmd.Arg("key", "Sound key").Required().String()

	// mute command
	muteCmd = app.Command("mute", "Stop a single sound")
	muteKey = muteCmd.Arg("key", "Sound key").Required().String()

	// pause / resume / stop commands
	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")
	stopCmd   = app.Command("stop", "Stop playback")

	// presets command
	presetsCmd = app.Command("presets", "List saved presets")

	// preset command
	presetCmd = app.Command("preset", "Play a saved preset")
	presetID  = presetCmd.Arg("id", "Preset ID").Required().String()

	// save command
	saveCmd  = app.Command("save", "Save the current mix as a preset")
	saveName = saveCmd.Arg("name", "Preset name").Required().String()

	// delete command
	deleteCmd = app.Command("delete", "Delete a saved preset")
	deleteID  = deleteCmd.Arg("id", "Preset ID").Required().String()

	// random command
	randomCmd = app.Command("random", "Play a random mix")
	randomTag = randomCmd.Flag("tag", "Restrict to sounds with this tag").String()
	randomMin = randomCmd.Flag("min", "Minimum number of sounds").Default("2").Int()
	randomMax = randomCmd.Flag("max", "Maximum number of sounds").Default("6").Int()

	// skip command
	skipCmd = app.Command("skip", "Skip to an adjacent preset")
	skipDir = skipCmd.Arg("direction", "prev or next").Default("next").Enum("prev", "next")

	// cast commands
	castCmd   = app.Command("cast", "Switch playback to the cast receiver")
	uncastCmd = app.Command("uncast", "Switch playback back to local output")
	eventsCmd = app.Command("events", "Stream state change events")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var err error
	switch command {
	case stateCmd.FullCommand():
		err = showState()
	case playCmd.FullCommand():
		err = post("/v1/play/"+*playKey, nil)
	case muteCmd.FullCommand():
		err = post("/v1/stop/"+*muteKey, nil)
	case pauseCmd.FullCommand():
		err = post("/v1/pause", nil)
	case resumeCmd.FullCommand():
		err = post("/v1/resume", nil)
	case stopCmd.FullCommand():
		err = post("/v1/stop", nil)
	case presetsCmd.FullCommand():
		err = listPresets()
	case presetCmd.FullCommand():
		err = post("/v1/presets/"+*presetID+"/play", nil)
	case saveCmd.FullCommand():
		err = save(*saveName)
	case deleteCmd.FullCommand():
		err = del("/v1/presets/" + *deleteID)
	case randomCmd.FullCommand():
		err = post("/v1/presets/random", map[string]any{
			"tag":       *randomTag,
			"minSounds": *randomMin,
			"maxSounds": *randomMax,
		})
	case skipCmd.FullCommand():
		err = post("/v1/presets/skip", map[string]any{"direction": *skipDir})
	case castCmd.FullCommand():
		err = post("/v1/cast/begin", nil)
	case uncastCmd.FullCommand():
		err = post("/v1/cast/end", nil)
	case eventsCmd.FullCommand():
		err = streamEvents()
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// stateResponse mirrors the server's state payload.
type stateResponse struct {
	State   string `json:"state"`
	Casting bool   `json:"casting"`
	Players []struct {
		SoundKey     string `json:"soundKey"`
		Name         string `json:"name"`
		Volume       int    `json:"volume"`
		TimePeriod   int    `json:"timePeriod"`
		IsPlaying    bool   `json:"isPlaying"`
		IsContiguous bool   `json:"isContiguous"`
	} `json:"players"`
}

type presetResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	States []struct {
		SoundKey string `json:"soundKey"`
		Volume   int    `json:"volume"`
	} `json:"states"`
}

func showState() error {
	var state stateResponse
	if err := get("/v1/state", &state); err != nil {
		return err
	}

	output := "local"
	if state.Casting {
		output = "cast"
	}
	fmt.Printf("State: %s (output: %s)\n", state.State, output)

	if len(state.Players) == 0 {
		fmt.Println("No sounds loaded.")
		return nil
	}
	for _, p := range state.Players {
		marker := " "
		if p.IsPlaying {
			marker = "*"
		}
		kind := fmt.Sprintf("every ~%ds", p.TimePeriod)
		if p.IsContiguous {
			kind = "looping"
		}
		fmt.Printf("  %s %-16s vol=%-2d %s\n", marker, p.SoundKey, p.Volume, kind)
	}
	return nil
}

func listPresets() error {
	var presets []presetResponse
	if err := get("/v1/presets", &presets); err != nil {
		return err
	}

	if len(presets) == 0 {
		fmt.Println("No saved presets.")
		return nil
	}
	for _, p := range presets {
		keys := make([]string, 0, len(p.States))
		for _, s := range p.States {
			keys = append(keys, s.SoundKey)
		}
		fmt.Printf("  %s  %-20s [%s]\n", p.ID, p.Name, strings.Join(keys, ", "))
	}
	return nil
}

func save(name string) error {
	req, err := newRequest(http.MethodPost, "/v1/presets", map[string]any{"name": name})
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}

	var saved presetResponse
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return err
	}
	fmt.Printf("Saved preset %q: id=%s\n", saved.Name, saved.ID)
	return nil
}

// streamEvents follows the server-sent event stream and prints state lines.
func streamEvents() error {
	resp, err := http.Get(*server + "/v1/events")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		var ev stateResponse
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev); err != nil {
			continue
		}
		keys := make([]string, 0, len(ev.Players))
		for _, p := range ev.Players {
			keys = append(keys, p.SoundKey)
		}
		fmt.Printf("%s [%s]\n", ev.State, strings.Join(keys, ", "))
	}
	return scanner.Err()
}

func newRequest(method, path string, body map[string]any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, *server+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func get(path string, out any) error {
	resp, err := http.Get(*server + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func post(path string, body map[string]any) error {
	req, err := newRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	return nil
}

func del(path string) error {
	req, err := newRequest(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return fmt.Errorf("server returned %s: %s", resp.Status, msg)
}
