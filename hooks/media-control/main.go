// Package main is a mood hook for macOS that adjusts playback and volume
// when a mood is detected. The mood to action mapping comes from the
// "actions" object in hook.json's config; moods without an entry are
// ignored.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Request is the mood event sent by the player.
type Request struct {
	Event      string          `json:"event"`
	Mood       string          `json:"mood"`
	Confidence float64         `json:"confidence"`
	ScanID     string          `json:"scan_id"`
	Config     json.RawMessage `json:"config"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type hookConfig struct {
	Actions map[string]string `json:"actions"`
	// MinConfidence skips events below this confidence.
	MinConfidence float64 `json:"min_confidence"`
}

var actionScripts = map[string]string{
	"volume-up":        `set volume output volume ((output volume of (get volume settings)) + 10)`,
	"volume-down":      `set volume output volume ((output volume of (get volume settings)) - 10)`,
	"volume-mute":      `set volume output muted (not (output muted of (get volume settings)))`,
	"media-play-pause": "tell application \"System Events\"\n\tkey code 100\nend tell",
	"media-next":       "tell application \"System Events\"\n\tkey code 101\nend tell",
	"media-prev":       "tell application \"System Events\"\n\tkey code 98\nend tell",
}

func main() {
	writeResponse(os.Stdout, handle(os.Stdin, runAppleScript))
}

// handle decodes a request, picks the action for its mood and runs it.
func handle(in io.Reader, run func(script string) error) Response {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("failed to decode request: %v", err)}
	}

	action, err := resolveAction(req)
	if err != nil {
		return Response{Error: err.Error()}
	}
	if action == "" {
		return Response{Success: true, Data: json.RawMessage(`{"action":null}`)}
	}

	if err := run(actionScripts[action]); err != nil {
		return Response{Error: fmt.Sprintf("action %s failed: %v", action, err)}
	}

	data, _ := json.Marshal(map[string]string{"action": action})
	return Response{Success: true, Data: data}
}

// resolveAction returns the action configured for the request's mood, or ""
// when nothing should happen.
func resolveAction(req Request) (string, error) {
	if req.Event != "mood" {
		return "", fmt.Errorf("unsupported event: %s", req.Event)
	}

	var cfg hookConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return "", fmt.Errorf("invalid config: %v", err)
		}
	}
	if req.Confidence < cfg.MinConfidence {
		return "", nil
	}

	action, ok := cfg.Actions[strings.ToLower(req.Mood)]
	if !ok {
		return "", nil
	}
	if _, known := actionScripts[action]; !known {
		return "", fmt.Errorf("unknown action: %s", action)
	}
	return action, nil
}

func writeResponse(w io.Writer, resp Response) {
	json.NewEncoder(w).Encode(resp)
}

func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
