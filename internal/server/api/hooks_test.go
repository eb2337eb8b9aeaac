package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayusman/moodplayer/internal/hook"
)

type fakeHooks struct {
	hooks       []*hook.Hook
	discovered  int
	discoverErr error
}

func (f *fakeHooks) Discover() error {
	f.discovered++
	return f.discoverErr
}

func (f *fakeHooks) List() []*hook.Hook {
	return f.hooks
}

func setupHooksRouter(hooks HookCatalog) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/hooks", NewHooksHandler(hooks, zerolog.Nop()).Routes)
	return r
}

func TestHooksHandler_List(t *testing.T) {
	hooks := &fakeHooks{hooks: []*hook.Hook{
		{Manifest: hook.Manifest{Name: "media-control", Version: "1.0.0", Moods: []string{"happy"}}},
		{Manifest: hook.Manifest{Name: "notify", Version: "0.1.0"}},
	}}
	router := setupHooksRouter(hooks)

	req := httptest.NewRequest(http.MethodGet, "/api/hooks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp listHooksResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Hooks) != 2 {
		t.Fatalf("hooks = %d, want 2", len(resp.Hooks))
	}
	if resp.Hooks[0].Name != "media-control" || len(resp.Hooks[0].Moods) != 1 {
		t.Errorf("first hook = %+v", resp.Hooks[0])
	}
	if resp.Hooks[1].Moods == nil {
		t.Error("moods should encode as an empty list")
	}
}

func TestHooksHandler_Reload(t *testing.T) {
	hooks := &fakeHooks{}
	router := setupHooksRouter(hooks)

	req := httptest.NewRequest(http.MethodPost, "/api/hooks/reload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if hooks.discovered != 1 {
		t.Errorf("Discover called %d times, want 1", hooks.discovered)
	}

	hooks.discoverErr = errors.New("permission denied")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/hooks/reload", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
