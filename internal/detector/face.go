package detector

import "github.com/ayusman/moodplayer/internal/mood"

// Box is a face bounding box in frame pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scale maps the box from a frame of size (fromW, fromH) to (toW, toH).
// A zero source dimension leaves the box unchanged.
func (b Box) Scale(fromW, fromH, toW, toH int) Box {
	if fromW <= 0 || fromH <= 0 {
		return b
	}
	sx := float64(toW) / float64(fromW)
	sy := float64(toH) / float64(fromH)
	return Box{
		X:      b.X * sx,
		Y:      b.Y * sy,
		Width:  b.Width * sx,
		Height: b.Height * sy,
	}
}

// Face is one detected face with its expression confidences keyed by label.
type Face struct {
	Box         Box                `json:"box"`
	Score       float64            `json:"score"`
	Expressions map[string]float64 `json:"expressions"`
}

// Reading returns the face expressions ordered by descending confidence.
func (f Face) Reading() mood.Reading {
	return mood.NewReading(f.Expressions)
}
