// Package reaction turns mood events into display changes. The Board is the
// display surface the browser page renders; the Dispatcher drives it.
package reaction

import (
	"sort"
	"sync"
	"time"

	"github.com/ayusman/moodplayer/internal/detector"
	"github.com/ayusman/moodplayer/internal/mood"
)

// Label is the mood text sink.
type Label struct {
	Text  string     `json:"text"`
	Class mood.Kind  `json:"class"`
	Theme mood.Theme `json:"theme"`
	// ConfidenceWidth is the confidence bar width in percent; 0 hides the bar.
	ConfidenceWidth float64 `json:"confidence_width"`
}

// Frame is a media frame registered for a mood.
type Frame struct {
	Mood     mood.Kind `json:"mood"`
	Title    string    `json:"title"`
	EmbedURL string    `json:"embed_url"`
}

// FrameState is a frame with its visibility.
type FrameState struct {
	Frame
	Visible bool `json:"visible"`
	Active  bool `json:"active"`
}

// Effect is a transient ripple drawn over the video.
type Effect struct {
	ID        string    `json:"id"`
	Mood      mood.Kind `json:"mood"`
	Color     string    `json:"color"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	CreatedAt time.Time `json:"created_at"`
	Duration  int64     `json:"duration_ms"`
}

// Overlay is the face box with its leading expressions.
type Overlay struct {
	Box detector.Box `json:"box"`
	Top mood.Reading `json:"top"`
}

// Snapshot is a consistent copy of the board.
type Snapshot struct {
	Version uint64       `json:"version"`
	Label   Label        `json:"label"`
	Frames  []FrameState `json:"frames"`
	Effects []Effect     `json:"effects"`
	Overlay *Overlay     `json:"overlay,omitempty"`
}

// Board holds the display state. Every change is published to subscribers.
type Board struct {
	mu      sync.Mutex
	label   Label
	frames  map[mood.Kind]*FrameState
	effects map[string]Effect
	overlay *Overlay
	version uint64

	subMu  sync.RWMutex
	subs   map[int]func(Snapshot)
	nextID int
}

// NewBoard creates an empty board showing the loading state.
func NewBoard() *Board {
	return &Board{
		label:   Label{Class: mood.Loading, Theme: mood.FallbackTheme},
		frames:  make(map[mood.Kind]*FrameState),
		effects: make(map[string]Effect),
		subs:    make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn for every change and returns a cancel func.
// fn runs on the goroutine that changed the board and must not block.
func (b *Board) Subscribe(fn func(Snapshot)) func() {
	b.subMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.subMu.Unlock()

	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

// Snapshot returns the current board.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// SetLabel replaces the label.
func (b *Board) SetLabel(l Label) {
	b.update(func() bool {
		b.label = l
		return true
	})
}

// SetFrames replaces the registered frames. Visibility of frames that stay
// registered is kept.
func (b *Board) SetFrames(frames []Frame) {
	b.update(func() bool {
		next := make(map[mood.Kind]*FrameState, len(frames))
		for _, f := range frames {
			fs := &FrameState{Frame: f}
			if old, ok := b.frames[f.Mood]; ok {
				fs.Visible = old.Visible
				fs.Active = old.Active
			}
			next[f.Mood] = fs
		}
		b.frames = next
		return true
	})
}

// HasFrame reports whether a frame is registered for kind.
func (b *Board) HasFrame(kind mood.Kind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.frames[kind]
	return ok
}

// HideAll hides and deactivates every frame.
func (b *Board) HideAll() {
	b.update(func() bool {
		changed := false
		for _, f := range b.frames {
			if f.Visible || f.Active {
				changed = true
			}
			f.Visible = false
			f.Active = false
		}
		return changed
	})
}

// Show hides every other frame and makes kind visible but not yet active.
// It returns false when no frame is registered for kind.
func (b *Board) Show(kind mood.Kind) bool {
	found := false
	b.update(func() bool {
		for k, f := range b.frames {
			f.Active = false
			f.Visible = k == kind
			if k == kind {
				found = true
			}
		}
		return true
	})
	return found
}

// Activate marks a visible frame active. Hidden frames are left alone.
func (b *Board) Activate(kind mood.Kind) bool {
	activated := false
	b.update(func() bool {
		f, ok := b.frames[kind]
		if !ok || !f.Visible || f.Active {
			return false
		}
		f.Active = true
		activated = true
		return true
	})
	return activated
}

// AddEffect adds a transient effect.
func (b *Board) AddEffect(e Effect) {
	b.update(func() bool {
		b.effects[e.ID] = e
		return true
	})
}

// RemoveEffect removes an effect if it is still present.
func (b *Board) RemoveEffect(id string) {
	b.update(func() bool {
		if _, ok := b.effects[id]; !ok {
			return false
		}
		delete(b.effects, id)
		return true
	})
}

// SetOverlay replaces the overlay; nil clears it.
func (b *Board) SetOverlay(o *Overlay) {
	b.update(func() bool {
		if o == nil && b.overlay == nil {
			return false
		}
		b.overlay = o
		return true
	})
}

func (b *Board) update(fn func() bool) {
	b.mu.Lock()
	if !fn() {
		b.mu.Unlock()
		return
	}
	b.version++
	snap := b.snapshotLocked()
	b.mu.Unlock()

	b.subMu.RLock()
	defer b.subMu.RUnlock()
	for _, sub := range b.subs {
		sub(snap)
	}
}

func (b *Board) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version: b.version,
		Label:   b.label,
		Frames:  make([]FrameState, 0, len(b.frames)),
		Effects: make([]Effect, 0, len(b.effects)),
	}
	for _, f := range b.frames {
		snap.Frames = append(snap.Frames, *f)
	}
	sort.Slice(snap.Frames, func(i, j int) bool {
		return snap.Frames[i].Mood < snap.Frames[j].Mood
	})
	for _, e := range b.effects {
		snap.Effects = append(snap.Effects, e)
	}
	sort.Slice(snap.Effects, func(i, j int) bool {
		return snap.Effects[i].CreatedAt.Before(snap.Effects[j].CreatedAt)
	})
	if b.overlay != nil {
		o := Overlay{Box: b.overlay.Box, Top: b.overlay.Top.TopN(len(b.overlay.Top))}
		snap.Overlay = &o
	}
	return snap
}
