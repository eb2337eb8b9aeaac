package hook

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/moodplayer/internal/scan"
)

const (
	// DefaultParallel caps concurrently running hooks.
	DefaultParallel = 4
	eventBuffer     = 8
)

// Result is the outcome of one hook run.
type Result struct {
	Hook     string
	Event    scan.Event
	Response *Response
	Err      error
}

// Runner runs matching hooks for mood events.
type Runner struct {
	manager  *Manager
	executor *Executor
	logger   zerolog.Logger
	events   chan scan.Event

	// Parallel caps concurrent runs.
	Parallel int
	// OnResult, when set, receives every result.
	OnResult func(Result)
}

// NewRunner creates a Runner.
func NewRunner(manager *Manager, executor *Executor, logger zerolog.Logger) *Runner {
	return &Runner{
		manager:  manager,
		executor: executor,
		logger:   logger.With().Str("component", "hooks").Logger(),
		events:   make(chan scan.Event, eventBuffer),
		Parallel: DefaultParallel,
	}
}

// Notify queues ev without blocking. Events are dropped when the queue is full.
func (r *Runner) Notify(ev scan.Event) {
	select {
	case r.events <- ev:
	default:
		r.logger.Warn().Str("mood", string(ev.Mood)).Msg("hook queue full, event dropped")
	}
}

// Run discovers hooks and runs them for queued events until ctx is done.
// Runs in progress are canceled with ctx and awaited.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.manager.Discover(); err != nil {
		r.logger.Error().Err(err).Str("dir", r.manager.Dir()).Msg("hook discovery failed")
	}
	r.logger.Info().Int("hooks", len(r.manager.List())).Str("dir", r.manager.Dir()).Msg("hooks loaded")

	var g errgroup.Group
	if r.Parallel > 0 {
		g.SetLimit(r.Parallel)
	}

	for {
		select {
		case <-ctx.Done():
			g.Wait()
			return nil
		case ev := <-r.events:
			for _, h := range r.manager.List() {
				if !h.Matches(ev.Mood) {
					continue
				}
				h := h
				g.Go(func() error {
					r.run(ctx, h, ev)
					return nil
				})
			}
		}
	}
}

func (r *Runner) run(ctx context.Context, h *Hook, ev scan.Event) {
	req := &Request{
		Event:      "mood",
		Mood:       ev.Mood,
		Confidence: ev.Confidence,
		ScanID:     ev.ScanID,
		Time:       ev.Time,
		Config:     h.Manifest.Config,
	}

	resp, err := r.executor.Execute(ctx, h, req)
	switch {
	case err != nil:
		if ctx.Err() == nil {
			r.logger.Error().Err(err).Str("hook", h.Manifest.Name).Msg("hook failed")
		}
	case !resp.Success:
		r.logger.Warn().Str("hook", h.Manifest.Name).Str("error", resp.Error).Msg("hook reported failure")
	default:
		r.logger.Debug().Str("hook", h.Manifest.Name).Str("mood", string(ev.Mood)).Msg("hook ran")
	}

	if r.OnResult != nil {
		r.OnResult(Result{Hook: h.Manifest.Name, Event: ev, Response: resp, Err: err})
	}
}
