package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayusman/moodplayer/internal/mood"
	"github.com/ayusman/moodplayer/internal/reaction"
	"github.com/ayusman/moodplayer/internal/store"
)

type recordingRegistry struct {
	mu     sync.Mutex
	calls  int
	frames []reaction.Frame
}

func (r *recordingRegistry) SetFrames(frames []reaction.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.frames = frames
}

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func newTestRouter(t *testing.T) (http.Handler, *store.Store, *recordingRegistry) {
	t.Helper()
	s := newTestStore(t)
	reg := &recordingRegistry{}
	h := NewFramesHandler(s, reg, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api/frames", h.Routes)
	return r, s, reg
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFramesHandler_List(t *testing.T) {
	h, s, _ := newTestRouter(t)
	if _, err := s.Frames().Seed(store.DefaultFrames()); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	rec := do(t, h, http.MethodGet, "/api/frames", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listFramesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Frames) != len(mood.ClassifierOrder) {
		t.Errorf("expected %d frames, got %d", len(mood.ClassifierOrder), len(response.Frames))
	}
}

func TestFramesHandler_ListEmpty(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/frames", nil)

	var response listFramesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Frames == nil || len(response.Frames) != 0 {
		t.Errorf("expected an empty list, got %v", response.Frames)
	}
}

func TestFramesHandler_Create(t *testing.T) {
	h, s, reg := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/frames", frameRequest{
		Mood:     "Happy",
		Title:    "Sunshine",
		EmbedURL: "https://example.test/embed/happy",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response frameResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Mood != "happy" || response.Title != "Sunshine" {
		t.Errorf("unexpected response %+v", response)
	}

	if _, err := s.Frames().Get(mood.Happy); err != nil {
		t.Errorf("frame should be stored: %v", err)
	}
	if reg.calls != 1 || len(reg.frames) != 1 || reg.frames[0].Mood != mood.Happy {
		t.Errorf("registry not refreshed: calls=%d frames=%+v", reg.calls, reg.frames)
	}

	// Second create for the same mood conflicts.
	rec = do(t, h, http.MethodPost, "/api/frames", frameRequest{
		Mood:     "happy",
		EmbedURL: "https://example.test/other",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestFramesHandler_CreateValidation(t *testing.T) {
	h, _, reg := newTestRouter(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown mood", frameRequest{Mood: "bored", EmbedURL: "https://example.test"}},
		{"sentinel mood", frameRequest{Mood: "no-face", EmbedURL: "https://example.test"}},
		{"missing url", frameRequest{Mood: "sad"}},
		{"relative url", frameRequest{Mood: "sad", EmbedURL: "/embed/sad"}},
		{"bad scheme", frameRequest{Mood: "sad", EmbedURL: "javascript:alert(1)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/frames", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/frames", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	if reg.calls != 0 {
		t.Errorf("registry refreshed %d times on invalid requests", reg.calls)
	}
}

func TestFramesHandler_GetUpdateDelete(t *testing.T) {
	h, s, reg := newTestRouter(t)
	if err := s.Frames().Create(&store.MediaFrame{
		Mood:     mood.Sad,
		Title:    "Rainy Day",
		EmbedURL: "https://example.test/sad",
	}); err != nil {
		t.Fatalf("failed to create frame: %v", err)
	}

	rec := do(t, h, http.MethodGet, "/api/frames/sad", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET expected %d, got %d", http.StatusOK, rec.Code)
	}

	rec = do(t, h, http.MethodPut, "/api/frames/sad", frameRequest{Title: "Blue"})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT expected %d, got %d", http.StatusOK, rec.Code)
	}
	var response frameResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Title != "Blue" || response.EmbedURL != "https://example.test/sad" {
		t.Errorf("partial update should keep embed_url: %+v", response)
	}

	rec = do(t, h, http.MethodPut, "/api/frames/sad", frameRequest{EmbedURL: "ftp://example.test"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PUT with bad url expected %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/frames/sad", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE expected %d, got %d", http.StatusNoContent, rec.Code)
	}
	if reg.calls != 2 || len(reg.frames) != 0 {
		t.Errorf("registry calls=%d frames=%d, want 2 and 0", reg.calls, len(reg.frames))
	}
}

func TestFramesHandler_NotFound(t *testing.T) {
	h, _, _ := newTestRouter(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		var body interface{}
		if method == http.MethodPut {
			body = frameRequest{Title: "x"}
		}
		rec := do(t, h, method, "/api/frames/angry", body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s expected %d, got %d", method, http.StatusNotFound, rec.Code)
		}

		var response errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode error: %v", err)
		}
		if response.Error == "" {
			t.Errorf("%s: error message should be set", method)
		}
	}
}

func TestFramesHandler_MethodNotAllowed(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPatch, "/api/frames", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
