package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRetryDelay is the pause before trying the fallback model source.
const DefaultRetryDelay = 2 * time.Second

// ErrModelUnavailable is returned when no model source could be loaded.
var ErrModelUnavailable = errors.New("expression model unavailable")

// Opener opens a classifier whose models are loaded from source.
type Opener func(ctx context.Context, source string) (Classifier, error)

// Loader loads the classifier from a primary source and, once, from a fallback.
type Loader struct {
	Open       Opener
	Primary    string
	Fallback   string
	RetryDelay time.Duration

	// OnFailure is called after each failed attempt with the 1-based attempt number.
	OnFailure func(attempt int, source string, err error)

	Logger zerolog.Logger
}

// Load returns the first classifier that opens. It returns an error wrapping
// ErrModelUnavailable when every source fails.
func (l *Loader) Load(ctx context.Context) (Classifier, error) {
	sources := []string{l.Primary}
	if l.Fallback != "" && l.Fallback != l.Primary {
		sources = append(sources, l.Fallback)
	}

	delay := l.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var lastErr error
	for i, source := range sources {
		if i > 0 {
			l.Logger.Info().Str("source", source).Dur("delay", delay).Msg("retrying model load")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		l.Logger.Info().Str("source", source).Msg("loading expression models")
		c, err := l.Open(ctx, source)
		if err == nil {
			l.Logger.Info().Str("source", source).Msg("expression models loaded")
			return c, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		l.Logger.Error().Err(err).Str("source", source).Msg("model load failed")
		if l.OnFailure != nil {
			l.OnFailure(i+1, source, err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, lastErr)
}

// ServiceOpener returns an Opener that starts a Service and waits for its models.
func ServiceOpener(config Config, logger zerolog.Logger) Opener {
	return func(ctx context.Context, source string) (Classifier, error) {
		svc, err := NewService(config, source, logger)
		if err != nil {
			return nil, err
		}
		if err := svc.Load(ctx); err != nil {
			svc.Close()
			return nil, err
		}
		return svc, nil
	}
}
