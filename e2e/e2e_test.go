package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/moodplayer/internal/app"
	"github.com/ayusman/moodplayer/internal/capture"
	"github.com/ayusman/moodplayer/internal/detector"
	"github.com/ayusman/moodplayer/internal/hook"
	"github.com/ayusman/moodplayer/internal/mood"
	"github.com/ayusman/moodplayer/internal/reaction"
	"github.com/ayusman/moodplayer/internal/server"
	"github.com/ayusman/moodplayer/internal/store"
	"github.com/ayusman/moodplayer/testdata"
)

type boardMessage struct {
	Type  string            `json:"type"`
	Board reaction.Snapshot `json:"board"`
}

type stateMessage struct {
	Scan struct {
		State       string    `json:"state"`
		CurrentMood mood.Kind `json:"current_mood"`
		ScanID      string    `json:"scan_id"`
		Events      int       `json:"events"`
	} `json:"scan"`
}

// feed collects board snapshots pushed over the events socket.
type feed struct {
	mu   sync.Mutex
	last reaction.Snapshot
}

func (f *feed) read(conn *websocket.Conn) {
	for {
		var msg boardMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		f.mu.Lock()
		if msg.Board.Version >= f.last.Version {
			f.last = msg.Board
		}
		f.mu.Unlock()
	}
}

func (f *feed) snapshot() reaction.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func playing(snap reaction.Snapshot, kind mood.Kind) bool {
	for _, f := range snap.Frames {
		if f.Mood == kind {
			return f.Visible && f.Active
		}
	}
	return false
}

func getState(t *testing.T, client *http.Client, url string) stateMessage {
	t.Helper()
	resp, err := client.Get(url + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state error = %v", err)
	}
	defer resp.Body.Close()

	var st stateMessage
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()
	if _, err := s.Frames().Seed(store.DefaultFrames()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	// A hook that appends every mood it sees to a file.
	moodLog := filepath.Join(tmpDir, "moods.log")
	hooksDir := filepath.Join(tmpDir, "hooks")
	withHook := runtime.GOOS != "windows"
	if withHook {
		dir := filepath.Join(hooksDir, "recorder")
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		manifest := `{"name":"recorder","version":"1.0.0","executable":"run.sh"}`
		if err := os.WriteFile(filepath.Join(dir, hook.ManifestName), []byte(manifest), 0644); err != nil {
			t.Fatal(err)
		}
		script := "#!/bin/sh\ninput=$(cat)\necho \"$input\" >> " + moodLog + "\necho '{\"success\":true}'\n"
		if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
			t.Fatal(err)
		}
	}

	frame := testdata.FaceFrame()
	defer frame.Close()
	camera := testdata.LoopingCamera(frame)

	classifier := detector.NewMockClassifier()
	classifier.SetFaces([]detector.Face{detector.HappyFace()})

	board := reaction.NewBoard()
	dispatcher := reaction.NewDispatcher(board, zerolog.Nop())
	dispatcher.ActivateDelay = 5 * time.Millisecond
	dispatcher.EffectTTL = 50 * time.Millisecond

	hooks := hook.NewManager(hooksDir, zerolog.Nop())
	runner := hook.NewRunner(hooks, hook.NewExecutor(5*time.Second), zerolog.Nop())

	var srv *server.Server
	application := app.New(app.Config{
		Open: func(ctx context.Context, source string) (detector.Classifier, error) {
			return classifier, nil
		},
		ModelURI: "models",
		OpenCamera: func() (capture.Camera, error) {
			if err := camera.Open(); err != nil {
				return nil, err
			}
			return camera, nil
		},
		Interval:   20 * time.Millisecond,
		Dispatcher: dispatcher,
		Catalog:    app.CatalogFunc(func() error { return srv.Frames().Refresh() }),
		Store:      s,
		Logger:     zerolog.Nop(),
	})
	srv = server.New(server.Config{
		Store:   s,
		Frames:  application,
		Board:   board,
		Scanner: application,
		Hooks:   hooks,
		Logger:  zerolog.Nop(),
	})
	application.OnMood(runner.Notify)

	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	var f feed
	go f.read(conn)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return application.Run(gctx) })
	defer func() {
		cancel()
		if err := g.Wait(); err != nil {
			t.Errorf("shutdown error = %v", err)
		}
	}()

	t.Run("DetectsFirstMood", func(t *testing.T) {
		eventually(t, func() bool {
			snap := f.snapshot()
			return snap.Label.Class == mood.Happy && playing(snap, mood.Happy)
		}, "happy frame never started playing")

		st := getState(t, client, ts.URL)
		if st.Scan.State != "settled" || st.Scan.CurrentMood != mood.Happy {
			t.Errorf("state = %+v", st.Scan)
		}
	})

	t.Run("RescanFindsNewMood", func(t *testing.T) {
		before := getState(t, client, ts.URL)
		classifier.SetFaces([]detector.Face{detector.FaceWith(map[string]float64{"sad": 0.8, "neutral": 0.1})})

		resp, err := client.Post(ts.URL+"/api/rescan", "application/json", nil)
		if err != nil {
			t.Fatalf("POST /api/rescan error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("rescan status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}

		eventually(t, func() bool {
			return playing(f.snapshot(), mood.Sad)
		}, "sad frame never started playing")

		after := getState(t, client, ts.URL)
		if after.Scan.ScanID == before.Scan.ScanID {
			t.Error("rescan should start a new scan id")
		}
		if after.Scan.Events != before.Scan.Events+1 {
			t.Errorf("events = %d, want %d", after.Scan.Events, before.Scan.Events+1)
		}
		if playing(f.snapshot(), mood.Happy) {
			t.Error("happy frame should stop when the mood changes")
		}
	})

	t.Run("HooksSeeEveryMood", func(t *testing.T) {
		if !withHook {
			t.Skip("shell hooks need a POSIX shell")
		}
		eventually(t, func() bool {
			data, err := os.ReadFile(moodLog)
			if err != nil {
				return false
			}
			log := string(data)
			return strings.Contains(log, `"mood":"happy"`) && strings.Contains(log, `"mood":"sad"`)
		}, "hook did not record both moods")
	})

	t.Run("CatalogChangesReachBoard", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/frames/sad", nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("DELETE error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("DELETE status = %d", resp.StatusCode)
		}

		eventually(t, func() bool {
			for _, fr := range f.snapshot().Frames {
				if fr.Mood == mood.Sad {
					return false
				}
			}
			return true
		}, "deleted frame still on the board")
	})
}
