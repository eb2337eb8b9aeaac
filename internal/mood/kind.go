// Package mood defines the closed set of moods, their visual themes and
// the per-poll expression readings produced by the classifier.
package mood

import "strings"

// Kind identifies a mood. Detectable kinds come from the classifier; the
// remaining kinds are display-only states and are never detection results.
type Kind string

// Detectable expressions.
const (
	Happy     Kind = "happy"
	Sad       Kind = "sad"
	Angry     Kind = "angry"
	Neutral   Kind = "neutral"
	Disgusted Kind = "disgusted"
	Surprised Kind = "surprised"
	Fearful   Kind = "fearful"
)

// Display-only states.
const (
	None      Kind = ""
	Loading   Kind = "loading"
	Ready     Kind = "ready"
	Detecting Kind = "detecting"
	NoFace    Kind = "no-face"
	Error     Kind = "error"
)

// ClassifierOrder is the enumeration order of the expression classifier.
// Readings break confidence ties using this order.
var ClassifierOrder = []Kind{Neutral, Happy, Sad, Angry, Fearful, Disgusted, Surprised}

// Detectable reports whether k is an expression the classifier can return.
func (k Kind) Detectable() bool {
	switch k {
	case Happy, Sad, Angry, Neutral, Disgusted, Surprised, Fearful:
		return true
	}
	return false
}

// Label returns the kind with its first letter upper-cased, e.g. "Happy".
func (k Kind) Label() string {
	if k == None {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Parse maps a classifier label to a detectable Kind.
func Parse(label string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(label)))
	if !k.Detectable() {
		return None, false
	}
	return k, true
}
