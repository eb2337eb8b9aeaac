// Package detector provides the face-expression classifier used by the scan loop.
package detector

import (
	"context"

	"gocv.io/x/gocv"
)

// Classifier defines the interface for face-expression classifiers.
type Classifier interface {
	// Classify analyzes a video frame and returns the detected faces.
	// Returns an empty slice if no faces are detected.
	Classify(ctx context.Context, frame *gocv.Mat) ([]Face, error)

	// Close releases any resources held by the classifier.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// InputSize is the detector input resolution (default: 416).
	InputSize int

	// ScoreThreshold is the minimum face detection score (0.0-1.0).
	ScoreThreshold float64

	// ScriptPath overrides the location of the expression service script.
	ScriptPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		InputSize:      416,
		ScoreThreshold: 0.5,
	}
}
