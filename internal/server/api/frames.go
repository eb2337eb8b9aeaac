// Package api provides HTTP API handlers for the mood player.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayusman/moodplayer/internal/mood"
	"github.com/ayusman/moodplayer/internal/reaction"
	"github.com/ayusman/moodplayer/internal/store"
)

// FrameRegistry receives the catalog after every change.
type FrameRegistry interface {
	SetFrames(frames []reaction.Frame)
}

// FramesHandler handles HTTP requests for media-frame resources.
type FramesHandler struct {
	store    *store.Store
	registry FrameRegistry
	logger   zerolog.Logger
}

// NewFramesHandler creates a FramesHandler. registry may be nil.
func NewFramesHandler(s *store.Store, registry FrameRegistry, logger zerolog.Logger) *FramesHandler {
	return &FramesHandler{
		store:    s,
		registry: registry,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts the collection and item endpoints.
func (h *FramesHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{mood}", h.get)
	r.Put("/{mood}", h.update)
	r.Delete("/{mood}", h.delete)
}

// Request and response types

type frameRequest struct {
	Mood     string `json:"mood"`
	Title    string `json:"title"`
	EmbedURL string `json:"embed_url"`
}

type frameResponse struct {
	Mood      string `json:"mood"`
	Title     string `json:"title"`
	EmbedURL  string `json:"embed_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listFramesResponse struct {
	Frames []frameResponse `json:"frames"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(f *store.MediaFrame) frameResponse {
	return frameResponse{
		Mood:      string(f.Mood),
		Title:     f.Title,
		EmbedURL:  f.EmbedURL,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
		UpdatedAt: f.UpdatedAt.Format(time.RFC3339),
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

// Refresh pushes the stored catalog to the registry.
func (h *FramesHandler) Refresh() error {
	if h.registry == nil {
		return nil
	}
	frames, err := h.store.Frames().List()
	if err != nil {
		return err
	}
	h.registry.SetFrames(BoardFrames(frames))
	return nil
}

// BoardFrames converts catalog rows to board frames.
func BoardFrames(frames []*store.MediaFrame) []reaction.Frame {
	out := make([]reaction.Frame, 0, len(frames))
	for _, f := range frames {
		out = append(out, reaction.Frame{Mood: f.Mood, Title: f.Title, EmbedURL: f.EmbedURL})
	}
	return out
}

func (h *FramesHandler) changed() {
	if err := h.Refresh(); err != nil {
		h.logger.Error().Err(err).Msg("failed to refresh media frames")
	}
}

// list handles GET /api/frames.
func (h *FramesHandler) list(w http.ResponseWriter, r *http.Request) {
	frames, err := h.store.Frames().List()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list frames")
		return
	}

	response := listFramesResponse{
		Frames: make([]frameResponse, 0, len(frames)),
	}
	for _, f := range frames {
		response.Frames = append(response.Frames, toResponse(f))
	}

	WriteJSON(w, http.StatusOK, response)
}

// get handles GET /api/frames/{mood}.
func (h *FramesHandler) get(w http.ResponseWriter, r *http.Request) {
	frame, err := h.store.Frames().Get(moodParam(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Frame not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get frame")
		return
	}

	WriteJSON(w, http.StatusOK, toResponse(frame))
}

// create handles POST /api/frames.
func (h *FramesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	kind, ok := mood.Parse(req.Mood)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Unknown mood")
		return
	}
	if !validEmbedURL(req.EmbedURL) {
		WriteError(w, http.StatusBadRequest, "embed_url must be an absolute http(s) URL")
		return
	}

	frame := &store.MediaFrame{
		Mood:     kind,
		Title:    req.Title,
		EmbedURL: req.EmbedURL,
	}

	if err := h.store.Frames().Create(frame); err != nil {
		if errors.Is(err, store.ErrExists) {
			WriteError(w, http.StatusConflict, "Frame already exists for mood")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to create frame")
		return
	}

	h.changed()
	WriteJSON(w, http.StatusCreated, toResponse(frame))
}

// update handles PUT /api/frames/{mood}. Empty fields keep their value.
func (h *FramesHandler) update(w http.ResponseWriter, r *http.Request) {
	frame, err := h.store.Frames().Get(moodParam(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Frame not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get frame")
		return
	}

	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title != "" {
		frame.Title = req.Title
	}
	if req.EmbedURL != "" {
		if !validEmbedURL(req.EmbedURL) {
			WriteError(w, http.StatusBadRequest, "embed_url must be an absolute http(s) URL")
			return
		}
		frame.EmbedURL = req.EmbedURL
	}

	if err := h.store.Frames().Update(frame); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to update frame")
		return
	}

	h.changed()
	WriteJSON(w, http.StatusOK, toResponse(frame))
}

// delete handles DELETE /api/frames/{mood}.
func (h *FramesHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Frames().Delete(moodParam(r)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Frame not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to delete frame")
		return
	}

	h.changed()
	w.WriteHeader(http.StatusNoContent)
}

func moodParam(r *http.Request) mood.Kind {
	return mood.Kind(chi.URLParam(r, "mood"))
}

func validEmbedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
