package render

import (
	"strconv"
	"strings"

	"github.com/gogpu/gg"
)

var named = map[string]gg.RGBA{
	"white":  {R: 1, G: 1, B: 1, A: 1},
	"black":  {A: 1},
	"red":    {R: 1, A: 1},
	"green":  {G: 128.0 / 255, A: 1},
	"blue":   {B: 1, A: 1},
	"yellow": {R: 1, G: 1, A: 1},
	"gray":   {R: 128.0 / 255, G: 128.0 / 255, B: 128.0 / 255, A: 1},
}

// ParseColor understands #hex (3, 4, 6 or 8 digits), rgb(), rgba() and a
// few names. Empty, "none" and "transparent" report false.
func ParseColor(s string) (gg.RGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "", s == "none", s == "transparent":
		return gg.RGBA{}, false
	case strings.HasPrefix(s, "#"):
		switch len(s) - 1 {
		case 3, 4, 6, 8:
			return gg.Hex(s), true
		}
		return gg.RGBA{}, false
	case strings.HasPrefix(s, "rgb"):
		return parseFunc(s)
	}
	c, ok := named[s]
	return c, ok
}

func parseFunc(s string) (gg.RGBA, bool) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return gg.RGBA{}, false
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return gg.RGBA{}, false
	}
	var v [4]float64
	v[3] = 1
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return gg.RGBA{}, false
		}
		if i < 3 {
			n /= 255
		}
		v[i] = min(1, max(0, n))
	}
	return gg.RGBA2(v[0], v[1], v[2], v[3]), true
}

func fade(c gg.RGBA, opacity float64) gg.RGBA {
	c.A *= min(1, max(0, opacity))
	return c
}

// colorOr parses s, falling back to def when it is not a color.
func colorOr(s string, def gg.RGBA) gg.RGBA {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return def
}
