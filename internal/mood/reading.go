package mood

import "sort"

// Score is a single expression with its confidence in [0,1].
type Score struct {
	Kind       Kind    `json:"kind"`
	Confidence float64 `json:"confidence"`
}

// Reading is an ordered sequence of scores, highest confidence first.
type Reading []Score

// NewReading builds a Reading from classifier label/confidence pairs.
// Unknown labels are dropped. Ties keep ClassifierOrder.
func NewReading(expressions map[string]float64) Reading {
	byKind := make(map[Kind]float64, len(expressions))
	for label, conf := range expressions {
		if k, ok := Parse(label); ok {
			byKind[k] = clamp(conf)
		}
	}

	r := make(Reading, 0, len(byKind))
	for _, k := range ClassifierOrder {
		if conf, ok := byKind[k]; ok {
			r = append(r, Score{Kind: k, Confidence: conf})
		}
	}

	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Confidence > r[j].Confidence
	})
	return r
}

// Top returns the highest-confidence score.
func (r Reading) Top() (Score, bool) {
	if len(r) == 0 {
		return Score{}, false
	}
	return r[0], true
}

// TopN returns at most n leading scores.
func (r Reading) TopN(n int) Reading {
	if n < 0 {
		n = 0
	}
	if n > len(r) {
		n = len(r)
	}
	out := make(Reading, n)
	copy(out, r[:n])
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
