package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayusman/moodplayer/internal/hook"
)

// HookCatalog is the set of installed mood hooks.
type HookCatalog interface {
	Discover() error
	List() []*hook.Hook
}

// HooksHandler lists installed hooks and rescans the hooks directory.
type HooksHandler struct {
	hooks  HookCatalog
	logger zerolog.Logger
}

// NewHooksHandler creates a HooksHandler.
func NewHooksHandler(hooks HookCatalog, logger zerolog.Logger) *HooksHandler {
	return &HooksHandler{
		hooks:  hooks,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts the hook endpoints.
func (h *HooksHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/reload", h.reload)
}

type hookResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Moods       []string `json:"moods"`
}

type listHooksResponse struct {
	Hooks []hookResponse `json:"hooks"`
}

func (h *HooksHandler) listResponse() listHooksResponse {
	hooks := h.hooks.List()
	resp := listHooksResponse{Hooks: make([]hookResponse, 0, len(hooks))}
	for _, hk := range hooks {
		moods := hk.Manifest.Moods
		if moods == nil {
			moods = []string{}
		}
		resp.Hooks = append(resp.Hooks, hookResponse{
			Name:        hk.Manifest.Name,
			Version:     hk.Manifest.Version,
			Description: hk.Manifest.Description,
			Moods:       moods,
		})
	}
	return resp
}

// list handles GET /api/hooks.
func (h *HooksHandler) list(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.listResponse())
}

// reload handles POST /api/hooks/reload.
func (h *HooksHandler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.hooks.Discover(); err != nil {
		h.logger.Error().Err(err).Msg("hook discovery failed")
		WriteError(w, http.StatusInternalServerError, "Failed to reload hooks")
		return
	}
	WriteJSON(w, http.StatusOK, h.listResponse())
}
