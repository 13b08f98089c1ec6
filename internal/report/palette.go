package report

import "github.com/newthinker/tradermood/internal/core"

// Palette maps each classification to its chart color.
var Palette = map[core.Classification]string{
	core.ExtremeFear:  "darkred",
	core.Fear:         "firebrick",
	core.Neutral:      "gray",
	core.Greed:        "forestgreen",
	core.ExtremeGreed: "darkgreen",
}

// Color returns the chart color for c, or "black" for an unknown value.
func Color(c core.Classification) string {
	if color, ok := Palette[c]; ok {
		return color
	}
	return "black"
}
