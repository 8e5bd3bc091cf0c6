package output

import (
	"github.com/fatih/color"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

const FallbackGlyph = "❓"

var defaultGlyphs = map[int]string{
	1: "ℹ️",
	2: "✅",
	3: "🔀",
	4: "⛔",
	5: "💥",
}

var familyColors = map[int]*color.Color{
	1: color.New(color.FgCyan),
	2: color.New(color.FgGreen),
	3: color.New(color.FgYellow),
	4: color.New(color.FgRed),
	5: color.New(color.FgHiRed, color.Bold),
}

// Glyphs maps a status family (the leading digit of a status code) to a
// marker.
type Glyphs struct {
	mapping  map[int]string
	fallback string
}

func DefaultGlyphs() Glyphs {
	return NewGlyphs(nil, FallbackGlyph)
}

func NewGlyphs(mapping map[int]string, fallback string) Glyphs {
	m := make(map[int]string, len(defaultGlyphs))
	src := mapping
	if src == nil {
		src = defaultGlyphs
	}
	for family, glyph := range src {
		m[family] = glyph
	}
	return Glyphs{mapping: m, fallback: fallback}
}

func (g Glyphs) For(status *int) string {
	if status == nil {
		return g.fallback
	}
	if glyph, ok := g.mapping[domain.StatusFamily(*status)]; ok {
		return glyph
	}
	return g.fallback
}

// colorStatus paints a status code with its family colour. fatih/color turns
// itself off when stdout is not a terminal.
func colorStatus(status int) string {
	c, ok := familyColors[domain.StatusFamily(status)]
	if !ok {
		return color.New(color.Reset).Sprint(status)
	}
	return c.Sprint(status)
}
