package banter

// Style is a reply-style hint passed through verbatim on every send.
type Style string

const (
	StyleConfident Style = "confident"
	StyleFlirty    Style = "flirty"
	StyleFunny     Style = "funny"
	StyleChill     Style = "smooth"
)

// StylePreset pairs a display label with the wire value it maps to.
type StylePreset struct {
	Label string
	Style Style
}

// StylePresets is the fixed set of selectable styles, in display order.
var StylePresets = []StylePreset{
	{"Confident", StyleConfident},
	{"Flirty", StyleFlirty},
	{"Funny", StyleFunny},
	{"Chill", StyleChill},
}

// ParseStyle maps a wire value to a known Style, defaulting to confident.
func ParseStyle(s string) Style {
	for _, p := range StylePresets {
		if string(p.Style) == s {
			return p.Style
		}
	}
	return StyleConfident
}
