package scan

import (
	"testing"

	"github.com/ayusman/moodplayer/internal/detector"
	"github.com/ayusman/moodplayer/internal/mood"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(DefaultThreshold)

	tests := []struct {
		name      string
		current   mood.Kind
		displayed mood.Kind
		faces     []detector.Face
		wantKind  OutcomeKind
		wantMood  mood.Kind
	}{
		{
			name:     "first happy reading is an event",
			current:  mood.None,
			faces:    []detector.Face{detector.HappyFace()},
			wantKind: OutcomeEvent,
			wantMood: mood.Happy,
		},
		{
			name:     "same mood again is filtered",
			current:  mood.Happy,
			faces:    []detector.Face{detector.HappyFace()},
			wantKind: OutcomeNone,
		},
		{
			name:     "below threshold",
			faces:    []detector.Face{detector.FaceWith(map[string]float64{"sad": 0.28})},
			wantKind: OutcomeNone,
		},
		{
			name:     "exactly at threshold does not qualify",
			faces:    []detector.Face{detector.FaceWith(map[string]float64{"angry": 0.3})},
			wantKind: OutcomeNone,
		},
		{
			name:     "just above threshold qualifies",
			faces:    []detector.Face{detector.FaceWith(map[string]float64{"angry": 0.3001})},
			wantKind: OutcomeEvent,
			wantMood: mood.Angry,
		},
		{
			name:    "only the first face counts",
			current: mood.None,
			faces: []detector.Face{
				detector.FaceWith(map[string]float64{"fearful": 0.6}),
				detector.HappyFace(),
			},
			wantKind: OutcomeEvent,
			wantMood: mood.Fearful,
		},
		{
			name:      "no face shows no-face",
			current:   mood.Happy,
			displayed: mood.Happy,
			wantKind:  OutcomeNoFace,
			wantMood:  mood.NoFace,
		},
		{
			name:      "no face while already showing no-face",
			displayed: mood.NoFace,
			wantKind:  OutcomeNone,
		},
		{
			name:     "face with only unknown labels",
			faces:    []detector.Face{detector.FaceWith(map[string]float64{"bored": 0.9})},
			wantKind: OutcomeNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Resolve(tt.current, tt.displayed, tt.faces)
			if out.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", out.Kind, tt.wantKind)
			}
			if out.Mood != tt.wantMood {
				t.Errorf("Mood = %q, want %q", out.Mood, tt.wantMood)
			}
			if len(tt.faces) > 0 && out.Face == nil {
				t.Error("Face should be set when faces were detected")
			}
			if len(tt.faces) == 0 && out.Face != nil {
				t.Error("Face should be nil when no faces were detected")
			}
		})
	}
}

func TestResolver_NoEventAtOrBelowThreshold(t *testing.T) {
	r := NewResolver(DefaultThreshold)

	for c := 0.0; c <= 0.30; c += 0.01 {
		for _, k := range mood.ClassifierOrder {
			face := detector.FaceWith(map[string]float64{string(k): c})
			if out := r.Resolve(mood.None, mood.Detecting, []detector.Face{face}); out.Kind == OutcomeEvent {
				t.Errorf("event emitted for %s at %.2f", k, c)
			}
		}
	}
}

func TestResolver_TopOverlay(t *testing.T) {
	r := NewResolver(DefaultThreshold)
	face := detector.FaceWith(map[string]float64{
		"happy": 0.5, "sad": 0.2, "angry": 0.15, "neutral": 0.1, "fearful": 0.05,
	})

	out := r.Resolve(mood.None, mood.Detecting, []detector.Face{face})
	if len(out.Top) != OverlaySize {
		t.Fatalf("Top len = %d, want %d", len(out.Top), OverlaySize)
	}
	if out.Top[0].Kind != mood.Happy || out.Top[2].Kind != mood.Angry {
		t.Errorf("Top = %+v", out.Top)
	}
	if out.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", out.Confidence)
	}
}

func TestNewResolver_Threshold(t *testing.T) {
	if got := NewResolver(0.5).Threshold(); got != 0.5 {
		t.Errorf("Threshold() = %v, want 0.5", got)
	}
	if got := NewResolver(-1).Threshold(); got != DefaultThreshold {
		t.Errorf("Threshold() = %v, want default", got)
	}
	if got := NewResolver(1).Threshold(); got != DefaultThreshold {
		t.Errorf("Threshold() = %v, want default", got)
	}
}
