package render

import (
	"fmt"
	"math"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts holds one font source and caches a face per pixel size. It is
// also the canvas Measurer so hit testing and painting agree on text
// extents. Not safe for concurrent use.
type Fonts struct {
	src   *text.FontSource
	faces map[float64]text.Face
}

// LoadFonts parses the embedded Go Regular font.
func LoadFonts() (*Fonts, error) {
	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return &Fonts{src: src, faces: make(map[float64]text.Face)}, nil
}

// Face returns a face at size pixels, rounded to the nearest half pixel.
func (f *Fonts) Face(size float64) text.Face {
	size = math.Round(size*2) / 2
	if face, ok := f.faces[size]; ok {
		return face
	}
	face := f.src.Face(size)
	f.faces[size] = face
	return face
}

func (f *Fonts) Measure(s string, fontSize float64) (float64, float64) {
	w, _ := text.Measure(s, f.Face(fontSize))
	return w, fontSize
}

func (f *Fonts) Close() error {
	return f.src.Close()
}
