// Package app wires model loading, camera access and the scan loop for the
// mood player.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/moodplayer/internal/capture"
	"github.com/ayusman/moodplayer/internal/detector"
	"github.com/ayusman/moodplayer/internal/mood"
	"github.com/ayusman/moodplayer/internal/reaction"
	"github.com/ayusman/moodplayer/internal/scan"
	"github.com/ayusman/moodplayer/internal/store"
)

// ErrNotReady is returned for frame reads before the camera is acquired.
var ErrNotReady = errors.New("camera not ready")

// Catalog pushes the stored media frames to the board.
type Catalog interface {
	Refresh() error
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func() error

// Refresh calls f.
func (f CatalogFunc) Refresh() error {
	return f()
}

// Config holds configuration options for the application.
type Config struct {
	// Open opens a classifier for a model source.
	Open        detector.Opener
	ModelURI    string
	FallbackURI string
	RetryDelay  time.Duration
	OpenCamera  func() (capture.Camera, error)
	Interval    time.Duration
	Threshold   float64
	Dispatcher  *reaction.Dispatcher
	Catalog     Catalog
	Store       *store.Store
	Logger      zerolog.Logger
}

// App runs one mood-player session: load models, acquire the camera, then
// scan on a fixed interval until the context ends.
type App struct {
	config Config
	logger zerolog.Logger

	mu         sync.RWMutex
	controller *scan.Controller
	camera     capture.Camera
	listeners  []func(scan.Event)
}

// New creates a new App with the given configuration.
func New(config Config) *App {
	if config.Interval <= 0 {
		config.Interval = scan.DefaultInterval
	}
	if config.Threshold == 0 {
		config.Threshold = scan.DefaultThreshold
	}
	if config.OpenCamera == nil {
		config.OpenCamera = func() (capture.Camera, error) {
			return capture.Acquire(capture.DefaultConstraints())
		}
	}

	return &App{
		config: config,
		logger: config.Logger.With().Str("component", "app").Logger(),
	}
}

// OnMood registers fn for every mood event. Register before Run.
func (a *App) OnMood(fn func(scan.Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Run blocks until ctx is done. Model or camera failures leave the error on
// the board and Run waits for ctx without scanning.
func (a *App) Run(ctx context.Context) error {
	d := a.config.Dispatcher
	d.ShowStatus(reaction.TextLoading, mood.Loading)

	if a.config.Catalog != nil {
		if err := a.config.Catalog.Refresh(); err != nil {
			a.logger.Error().Err(err).Msg("failed to load media frames")
		}
	}

	loader := &detector.Loader{
		Open:       a.config.Open,
		Primary:    a.config.ModelURI,
		Fallback:   a.config.FallbackURI,
		RetryDelay: a.config.RetryDelay,
		OnFailure: func(attempt int, source string, err error) {
			if attempt == 1 {
				d.ShowStatus(reaction.TextModelFailed, mood.Error)
			}
		},
		Logger: a.config.Logger,
	}

	classifier, err := loader.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		a.logger.Error().Err(err).Msg("expression models unavailable")
		d.ShowStatus(reaction.TextUnavailable, mood.Error)
		<-ctx.Done()
		return nil
	}
	defer func() {
		if err := classifier.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing classifier")
		}
	}()

	camera, err := a.config.OpenCamera()
	if err != nil {
		kind := capture.AccessKindOf(err)
		a.logger.Error().Err(err).Str("kind", kind.String()).Msg("camera unavailable")
		d.ShowStatus(kind.Message(), mood.Error)
		<-ctx.Done()
		return nil
	}
	defer func() {
		if err := camera.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("error closing camera")
		}
	}()

	d.ShowStatus(reaction.TextReady, mood.Ready)

	controller := scan.NewController(scan.Config{
		Frames:     camera,
		Classifier: classifier,
		Resolver:   scan.NewResolver(a.config.Threshold),
		Reactor:    d,
		Logger:     a.config.Logger,
	})
	controller.OnEvent(a.handleEvent)

	a.mu.Lock()
	a.camera = camera
	a.controller = controller
	a.mu.Unlock()

	controller.Arm()
	a.loop(ctx, controller)

	a.mu.Lock()
	a.camera = nil
	a.mu.Unlock()

	a.logger.Info().Msg("scan loop stopped")
	return nil
}

func (a *App) loop(ctx context.Context, controller *scan.Controller) {
	ticker := time.NewTicker(a.config.Interval)

	a.logger.Info().Dur("interval", a.config.Interval).Msg("scan loop started")
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			controller.Wait()
			return
		case <-ticker.C:
			controller.Tick(ctx)
		}
	}
}

func (a *App) handleEvent(ev scan.Event) {
	a.logger.Info().
		Str("mood", string(ev.Mood)).
		Float64("confidence", ev.Confidence).
		Str("scan_id", ev.ScanID).
		Msg("mood detected")

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingLastMood, string(ev.Mood)); err != nil {
			a.logger.Warn().Err(err).Msg("failed to save last mood")
		}
	}

	a.mu.RLock()
	listeners := append([]func(scan.Event){}, a.listeners...)
	a.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Arm starts a new scan. Before the camera is ready it does nothing.
func (a *App) Arm() {
	a.mu.RLock()
	controller := a.controller
	a.mu.RUnlock()

	if controller == nil {
		a.logger.Warn().Msg("rescan ignored, scanner not ready")
		return
	}
	controller.Arm()
}

// State returns the scan state. Before the camera is ready it reports an
// armed scan with the board's current status.
func (a *App) State() scan.Snapshot {
	a.mu.RLock()
	controller := a.controller
	a.mu.RUnlock()

	if controller != nil {
		return controller.State()
	}
	return scan.Snapshot{
		State:     scan.Scanning,
		Displayed: a.config.Dispatcher.Board().Snapshot().Label.Class,
	}
}

// ReadFrame reads a preview frame from the acquired camera.
func (a *App) ReadFrame() (*gocv.Mat, error) {
	a.mu.RLock()
	camera := a.camera
	a.mu.RUnlock()

	if camera == nil {
		return nil, ErrNotReady
	}
	return camera.ReadFrame()
}

// PreviousMood returns the mood saved by the last session, or None.
func (a *App) PreviousMood() mood.Kind {
	if a.config.Store == nil {
		return mood.None
	}
	v, err := a.config.Store.Settings().Get(store.SettingLastMood)
	if err != nil {
		return mood.None
	}
	k, ok := mood.Parse(v)
	if !ok {
		return mood.None
	}
	return k
}
