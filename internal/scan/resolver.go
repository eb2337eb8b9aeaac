// Package scan implements the mood scan: a controller that samples the
// expression classifier while armed, and a resolver that turns noisy
// readings into at most one mood event per scan.
package scan

import (
	"github.com/ayusman/moodplayer/internal/detector"
	"github.com/ayusman/moodplayer/internal/mood"
)

// DefaultThreshold is the confidence a top expression must exceed.
const DefaultThreshold = 0.3

// OverlaySize is the number of expressions reported with each face.
const OverlaySize = 3

// OutcomeKind is the result class of one resolved reading.
type OutcomeKind int

const (
	// OutcomeNone means nothing changes on the display.
	OutcomeNone OutcomeKind = iota
	// OutcomeNoFace means the "No Face Detected" state should be shown.
	OutcomeNoFace
	// OutcomeEvent is a qualifying mood event.
	OutcomeEvent
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoFace:
		return "no-face"
	case OutcomeEvent:
		return "event"
	default:
		return "none"
	}
}

// Outcome is what the resolver decided for one classifier result.
type Outcome struct {
	Kind       OutcomeKind
	Mood       mood.Kind
	Confidence float64

	// Face is the first detected face, nil when none was found.
	Face *detector.Face
	// Top holds the leading expressions of Face for the overlay.
	Top mood.Reading
}

// Resolver applies the threshold and change-detection filter.
type Resolver struct {
	threshold float64
}

// NewResolver creates a resolver. A threshold outside [0,1) uses DefaultThreshold.
func NewResolver(threshold float64) *Resolver {
	if threshold < 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Resolver{threshold: threshold}
}

// Threshold returns the confidence threshold.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve decides the outcome of one classifier result given the current
// mood and the state currently on display. Only the first face is used.
func (r *Resolver) Resolve(current, displayed mood.Kind, faces []detector.Face) Outcome {
	if len(faces) == 0 {
		if displayed == mood.NoFace {
			return Outcome{Kind: OutcomeNone}
		}
		return Outcome{Kind: OutcomeNoFace, Mood: mood.NoFace}
	}

	face := faces[0]
	reading := face.Reading()
	out := Outcome{
		Kind: OutcomeNone,
		Face: &face,
		Top:  reading.TopN(OverlaySize),
	}

	top, ok := reading.Top()
	if !ok {
		return out
	}

	// Strictly greater: a reading exactly at the threshold does not qualify.
	if top.Confidence > r.threshold && top.Kind != current {
		out.Kind = OutcomeEvent
		out.Mood = top.Kind
		out.Confidence = top.Confidence
	}
	return out
}
