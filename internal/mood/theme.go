package mood

// Theme is the static visual configuration of a mood.
type Theme struct {
	Color       string `json:"color"`
	Gradient    string `json:"gradient"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
	// Fallback is set on the generic theme returned for kinds without an entry.
	Fallback bool `json:"fallback,omitempty"`
}

// FallbackTheme is used for kinds with no theme of their own.
var FallbackTheme = Theme{
	Color:    "#fff",
	Fallback: true,
}

var themes = map[Kind]Theme{
	Happy: {
		Color:       "#fff700",
		Gradient:    "linear-gradient(45deg, rgba(255, 193, 7, 0.3), rgba(255, 235, 59, 0.3))",
		Emoji:       "😊",
		Description: "Joyful & Energetic",
	},
	Sad: {
		Color:       "#64b5f6",
		Gradient:    "linear-gradient(45deg, rgba(33, 150, 243, 0.3), rgba(63, 81, 181, 0.3))",
		Emoji:       "😢",
		Description: "Melancholic & Reflective",
	},
	Angry: {
		Color:       "#ff5722",
		Gradient:    "linear-gradient(45deg, rgba(244, 67, 54, 0.3), rgba(255, 87, 34, 0.3))",
		Emoji:       "😠",
		Description: "Intense & Powerful",
	},
	Neutral: {
		Color:       "#e0e0e0",
		Gradient:    "linear-gradient(45deg, rgba(158, 158, 158, 0.3), rgba(189, 189, 189, 0.3))",
		Emoji:       "😐",
		Description: "Calm & Balanced",
	},
	Disgusted: {
		Color:       "#8bc34a",
		Gradient:    "linear-gradient(45deg, rgba(76, 175, 80, 0.3), rgba(139, 195, 74, 0.3))",
		Emoji:       "🤢",
		Description: "Uncomfortable & Uneasy",
	},
	Surprised: {
		Color:       "#ff9800",
		Gradient:    "linear-gradient(45deg, rgba(255, 152, 0, 0.3), rgba(255, 193, 7, 0.3))",
		Emoji:       "😲",
		Description: "Amazed & Astonished",
	},
	Fearful: {
		Color:       "#9c27b0",
		Gradient:    "linear-gradient(45deg, rgba(156, 39, 176, 0.3), rgba(142, 36, 170, 0.3))",
		Emoji:       "😨",
		Description: "Anxious & Worried",
	},
}

// ThemeFor returns the theme for k, or FallbackTheme when k has none.
func ThemeFor(k Kind) Theme {
	if t, ok := themes[k]; ok {
		return t
	}
	return FallbackTheme
}

// HasTheme reports whether k has a theme of its own.
func HasTheme(k Kind) bool {
	_, ok := themes[k]
	return ok
}
