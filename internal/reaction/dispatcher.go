package reaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/moodplayer/internal/detector"
	"github.com/ayusman/moodplayer/internal/mood"
)

// Dispatcher timing defaults.
const (
	DefaultActivateDelay = 50 * time.Millisecond
	DefaultEffectTTL     = 1000 * time.Millisecond
)

// Status texts shown for display-only states.
const (
	TextLoading     = "Loading AI..."
	TextModelFailed = "AI Loading Failed"
	TextUnavailable = "Camera Required"
	TextReady       = "Camera Ready"
	TextDetecting   = "Detecting..."
	TextNoFace      = "No Face Detected"
)

// effectCenter is the ripple position, in percent of the video size.
const effectCenter = 50

// Dispatcher translates mood events into board changes.
type Dispatcher struct {
	board  *Board
	logger zerolog.Logger

	// ActivateDelay is the pause between revealing a frame and marking it active.
	ActivateDelay time.Duration
	// EffectTTL is how long a ripple stays on the board.
	EffectTTL time.Duration
}

// NewDispatcher creates a dispatcher for the board.
func NewDispatcher(board *Board, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		board:         board,
		logger:        logger.With().Str("component", "reaction").Logger(),
		ActivateDelay: DefaultActivateDelay,
		EffectTTL:     DefaultEffectTTL,
	}
}

// Board returns the board driven by the dispatcher.
func (d *Dispatcher) Board() *Board {
	return d.board
}

// RenderMoodLabel shows the mood with its theme, or a plain label when the
// mood has no theme. Confidence above zero draws a proportional bar.
func (d *Dispatcher) RenderMoodLabel(kind mood.Kind, confidence float64) {
	theme := mood.ThemeFor(kind)
	text := kind.Label()
	if !theme.Fallback {
		text = theme.Emoji + " " + text
	}

	d.board.SetLabel(Label{
		Text:            text,
		Class:           kind,
		Theme:           theme,
		ConfidenceWidth: confidenceWidth(confidence),
	})
}

// ShowStatus shows a display-only state such as loading or an error.
func (d *Dispatcher) ShowStatus(text string, kind mood.Kind) {
	d.board.SetLabel(Label{
		Text:  text,
		Class: kind,
		Theme: mood.ThemeFor(kind),
	})
}

// SwitchMediaFrame hides every frame and reveals the one registered for
// kind, marking it active after ActivateDelay. With no registered frame all
// frames stay hidden.
func (d *Dispatcher) SwitchMediaFrame(kind mood.Kind) {
	if !d.board.Show(kind) {
		d.logger.Warn().Str("mood", string(kind)).Msg("no media frame for mood")
		return
	}

	time.AfterFunc(d.ActivateDelay, func() {
		d.board.Activate(kind)
	})
	d.logger.Info().Str("mood", string(kind)).Msg("now playing")
}

// HideAllFrames hides every media frame.
func (d *Dispatcher) HideAllFrames() {
	d.board.HideAll()
}

// PlayTransientEffect adds a centred ripple in the mood colour that removes
// itself after EffectTTL. Effects are not deduplicated or cancelable.
func (d *Dispatcher) PlayTransientEffect(kind mood.Kind) string {
	e := Effect{
		ID:        uuid.NewString(),
		Mood:      kind,
		Color:     mood.ThemeFor(kind).Color,
		X:         effectCenter,
		Y:         effectCenter,
		CreatedAt: time.Now(),
		Duration:  d.EffectTTL.Milliseconds(),
	}
	d.board.AddEffect(e)

	time.AfterFunc(d.EffectTTL, func() {
		d.board.RemoveEffect(e.ID)
	})
	return e.ID
}

// Scanning shows the detecting state.
func (d *Dispatcher) Scanning() {
	d.ShowStatus(TextDetecting, mood.Detecting)
}

// MoodChanged reacts to a mood event.
func (d *Dispatcher) MoodChanged(kind mood.Kind, confidence float64) {
	d.RenderMoodLabel(kind, confidence)
	d.SwitchMediaFrame(kind)
	d.PlayTransientEffect(kind)
}

// NoFace shows the no-face state and stops playback.
func (d *Dispatcher) NoFace() {
	d.ShowStatus(TextNoFace, mood.NoFace)
	d.HideAllFrames()
}

// Overlay draws the face box and expressions; nil face clears it.
func (d *Dispatcher) Overlay(face *detector.Face, top mood.Reading) {
	if face == nil {
		d.board.SetOverlay(nil)
		return
	}
	d.board.SetOverlay(&Overlay{Box: face.Box, Top: top})
}

func confidenceWidth(confidence float64) float64 {
	switch {
	case confidence <= 0:
		return 0
	case confidence >= 1:
		return 100
	default:
		return confidence * 100
	}
}
