package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/moodplayer/internal/app"
	"github.com/ayusman/moodplayer/internal/capture"
	"github.com/ayusman/moodplayer/internal/config"
	"github.com/ayusman/moodplayer/internal/detector"
	"github.com/ayusman/moodplayer/internal/hook"
	"github.com/ayusman/moodplayer/internal/reaction"
	"github.com/ayusman/moodplayer/internal/scan"
	"github.com/ayusman/moodplayer/internal/server"
	"github.com/ayusman/moodplayer/internal/store"
	"github.com/ayusman/moodplayer/internal/tray"
	"github.com/ayusman/moodplayer/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "moodplayer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.LogLevel).
		With().Timestamp().Logger()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	defer st.Close()

	if n, err := st.Frames().Seed(store.DefaultFrames()); err != nil {
		return fmt.Errorf("seeding media frames: %w", err)
	} else if n > 0 {
		logger.Info().Int("frames", n).Msg("seeded default media frames")
	}

	staticFS, err := staticFiles(cfg.WebDir)
	if err != nil {
		return err
	}

	board := reaction.NewBoard()
	dispatcher := reaction.NewDispatcher(board, logger)

	detCfg := detector.DefaultConfig()
	detCfg.ScriptPath = cfg.ScriptPath

	hooks := hook.NewManager(cfg.HooksDir, logger)
	runner := hook.NewRunner(hooks, hook.NewExecutor(cfg.HookTimeout), logger)

	var srv *server.Server
	a := app.New(app.Config{
		Open:        detector.ServiceOpener(detCfg, logger),
		ModelURI:    cfg.ModelURI,
		FallbackURI: cfg.ModelFallbackURI,
		OpenCamera: func() (capture.Camera, error) {
			c := capture.DefaultConstraints()
			c.DeviceID = cfg.CameraID
			return capture.Acquire(c)
		},
		Interval:   cfg.ScanInterval,
		Threshold:  cfg.Threshold,
		Dispatcher: dispatcher,
		Catalog:    app.CatalogFunc(func() error { return srv.Frames().Refresh() }),
		Store:      st,
		Logger:     logger,
	})

	srv = server.New(server.Config{
		StaticFS: staticFS,
		Store:    st,
		Frames:   a,
		Board:    board,
		Scanner:  a,
		Hooks:    hooks,
		Logger:   logger,
	})
	a.OnMood(runner.Notify)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Addr)
	})
	g.Go(func() error {
		return a.Run(gctx)
	})
	g.Go(func() error {
		return runner.Run(gctx)
	})

	if cfg.Tray {
		// The tray loop must own the main goroutine.
		runTray(gctx, stop, a, playerURL(cfg.Addr), logger)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("bye")
	return nil
}

func runTray(ctx context.Context, quit func(), a *app.App, url string, logger zerolog.Logger) {
	tr := tray.New()
	tr.SetLastMood(a.PreviousMood())
	tr.OnRescan(a.Arm)
	tr.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("failed to open browser")
		}
	})
	tr.OnQuit(quit)
	a.OnMood(func(ev scan.Event) {
		tr.SetLastMood(ev.Mood)
	})

	go func() {
		<-ctx.Done()
		tr.Quit()
	}()
	tr.Run()
}

// staticFiles serves dir when set, the embedded page otherwise.
func staticFiles(dir string) (fs.FS, error) {
	if dir == "" {
		return web.Static()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("web directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("web directory %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

func playerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
