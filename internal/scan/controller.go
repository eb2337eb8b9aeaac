package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/moodplayer/internal/detector"
	"github.com/ayusman/moodplayer/internal/mood"
)

// DefaultInterval is the period between ticks.
const DefaultInterval = 1500 * time.Millisecond

// State is the controller state.
type State int

const (
	// Scanning means ticks sample the classifier.
	Scanning State = iota
	// Settled means a mood event happened and ticks are ignored until Arm.
	Settled
)

func (s State) String() string {
	if s == Settled {
		return "settled"
	}
	return "scanning"
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the mutable scan state.
type Session struct {
	Armed         bool
	CurrentMood   mood.Kind
	LastEventTime time.Time
	// Displayed is the state last pushed to the reactor.
	Displayed mood.Kind
}

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	State         State     `json:"state"`
	CurrentMood   mood.Kind `json:"current_mood"`
	Displayed     mood.Kind `json:"displayed"`
	LastEventTime time.Time `json:"last_event_time"`
	ScanID        string    `json:"scan_id"`
	Events        int       `json:"events"`
	InFlight      bool      `json:"in_flight"`
}

// Event is a qualifying mood event.
type Event struct {
	ScanID     string
	Mood       mood.Kind
	Confidence float64
	Time       time.Time
}

// FrameSource supplies the frame to classify. The caller closes the Mat.
type FrameSource interface {
	ReadFrame() (*gocv.Mat, error)
}

// Reactor receives display changes. Calls are serialized by the controller
// and must not call back into it.
type Reactor interface {
	Scanning()
	MoodChanged(kind mood.Kind, confidence float64)
	NoFace()
	// Overlay shows the face box and leading expressions; nil face clears it.
	Overlay(face *detector.Face, top mood.Reading)
}

// Config holds the controller collaborators.
type Config struct {
	Frames     FrameSource
	Classifier detector.Classifier
	Resolver   *Resolver
	Reactor    Reactor
	Logger     zerolog.Logger
}

// Controller gates classifier sampling. It starts in Scanning, moves to
// Settled on the first mood event, and returns to Scanning only via Arm.
type Controller struct {
	frames     FrameSource
	classifier detector.Classifier
	resolver   *Resolver
	reactor    Reactor
	logger     zerolog.Logger
	now        func() time.Time

	mu         sync.Mutex
	session    Session
	generation uint64
	scanID     string
	events     int
	inFlight   bool
	listeners  []func(Event)
	wg         sync.WaitGroup
}

// NewController creates a controller in the Scanning state.
func NewController(cfg Config) *Controller {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewResolver(DefaultThreshold)
	}
	return &Controller{
		frames:     cfg.Frames,
		classifier: cfg.Classifier,
		resolver:   resolver,
		reactor:    cfg.Reactor,
		logger:     cfg.Logger.With().Str("component", "scan").Logger(),
		now:        time.Now,
		session:    Session{Armed: true},
		scanID:     uuid.NewString(),
	}
}

// OnEvent registers a listener called for every mood event.
func (c *Controller) OnEvent(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Arm starts a new scan: clears the current mood and resumes sampling.
// Results of attempts started before Arm are discarded.
func (c *Controller) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.Armed = true
	c.session.CurrentMood = mood.None
	c.session.Displayed = mood.Detecting
	c.generation++
	c.scanID = uuid.NewString()

	c.logger.Info().Str("scan_id", c.scanID).Msg("scan armed")
	if c.reactor != nil {
		c.reactor.Scanning()
	}
}

// Tick runs one detection attempt if the controller is Scanning.
// It returns false when the tick was a no-op: settled, or the previous
// attempt is still in flight.
func (c *Controller) Tick(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Armed {
		return false
	}
	if c.inFlight {
		c.logger.Debug().Msg("previous detection still running, skipping tick")
		return false
	}

	c.inFlight = true
	gen := c.generation
	c.wg.Add(1)
	go c.attempt(ctx, gen)
	return true
}

// Wait blocks until any in-flight attempt has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// State returns a snapshot of the controller.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := Scanning
	if !c.session.Armed {
		state = Settled
	}
	return Snapshot{
		State:         state,
		CurrentMood:   c.session.CurrentMood,
		Displayed:     c.session.Displayed,
		LastEventTime: c.session.LastEventTime,
		ScanID:        c.scanID,
		Events:        c.events,
		InFlight:      c.inFlight,
	}
}

// Threshold returns the resolver confidence threshold.
func (c *Controller) Threshold() float64 {
	return c.resolver.Threshold()
}

func (c *Controller) attempt(ctx context.Context, gen uint64) {
	defer c.wg.Done()

	faces, err := c.classify(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("detection failed")
		}
		return
	}
	if gen != c.generation || !c.session.Armed {
		c.logger.Debug().Uint64("generation", gen).Msg("discarding stale detection")
		return
	}

	out := c.resolver.Resolve(c.session.CurrentMood, c.session.Displayed, faces)
	c.apply(out)
}

func (c *Controller) classify(ctx context.Context) ([]detector.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := c.frames.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	return c.classifier.Classify(ctx, frame)
}

// apply updates the session and the display. Callers hold c.mu.
func (c *Controller) apply(out Outcome) {
	if c.reactor != nil {
		c.reactor.Overlay(out.Face, out.Top)
	}

	switch out.Kind {
	case OutcomeNoFace:
		c.session.Displayed = mood.NoFace
		if c.reactor != nil {
			c.reactor.NoFace()
		}

	case OutcomeEvent:
		now := c.now()
		c.session.CurrentMood = out.Mood
		c.session.Displayed = out.Mood
		c.session.LastEventTime = now
		c.session.Armed = false
		c.events++

		c.logger.Info().
			Str("scan_id", c.scanID).
			Str("mood", string(out.Mood)).
			Float64("confidence", out.Confidence).
			Msg("mood changed")

		if c.reactor != nil {
			c.reactor.MoodChanged(out.Mood, out.Confidence)
		}

		ev := Event{ScanID: c.scanID, Mood: out.Mood, Confidence: out.Confidence, Time: now}
		for _, fn := range c.listeners {
			fn(ev)
		}
	}
}
