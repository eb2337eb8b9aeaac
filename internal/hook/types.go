// Package hook runs user executables when a mood is detected. Each hook
// lives in its own directory under the hooks directory with a hook.json
// manifest; it receives a JSON Request on stdin and answers with a JSON
// Response on stdout.
package hook

import (
	"encoding/json"
	"time"

	"github.com/ayusman/moodplayer/internal/mood"
)

// ManifestName is the manifest file inside a hook directory.
const ManifestName = "hook.json"

// Manifest describes a hook.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`

	// Moods limits the hook to these moods; empty means every mood.
	Moods  []string        `json:"moods,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Request is sent to a hook for one mood event.
type Request struct {
	Event      string          `json:"event"`
	Mood       mood.Kind       `json:"mood"`
	Confidence float64         `json:"confidence"`
	ScanID     string          `json:"scan_id"`
	Time       time.Time       `json:"time"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Response is a hook's answer.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Matches reports whether the hook wants events for kind.
func (h *Hook) Matches(kind mood.Kind) bool {
	if len(h.Manifest.Moods) == 0 {
		return true
	}
	for _, m := range h.Manifest.Moods {
		if k, ok := mood.Parse(m); ok && k == kind {
			return true
		}
	}
	return false
}
