// Package export renders a room snapshot to a PNG image.
package export

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/inkroom/inkroom/internal/canvas"
	"github.com/inkroom/inkroom/internal/gesture"
	"github.com/inkroom/inkroom/internal/render"
	"github.com/inkroom/inkroom/internal/shape"
	"github.com/inkroom/inkroom/internal/viewport"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	MaxDimension  = 4096
)

// Options controls one export.
type Options struct {
	Width  int
	Height int
	Fonts  *render.Fonts
}

// PNG paints shapes fitted into the frame, the same way a client's reset
// view frames them, and writes the PNG to w.
func PNG(w io.Writer, shapes []shape.Shape, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > MaxDimension || opts.Height > MaxDimension {
		return fmt.Errorf("export: invalid size %dx%d", opts.Width, opts.Height)
	}

	var ropts []render.Option
	if opts.Fonts != nil {
		ropts = append(ropts, render.WithFonts(opts.Fonts))
	}
	r := render.New(opts.Width, opts.Height, ropts...)
	defer r.Close()

	store := canvas.New(canvas.WithMeasurer(r.Measurer()))
	if skipped := store.Load(shapes); skipped > 0 {
		slog.Warn("export skipped invalid shapes", "count", skipped)
	}
	vp := viewport.New(float64(opts.Width), float64(opts.Height))
	b, ok := store.Bounds()
	vp.Reset(b, !ok)

	if err := r.Draw(render.Frame{Shapes: store.Shapes(), Viewport: vp, Overlay: gesture.Overlay{}}); err != nil {
		return fmt.Errorf("export draw: %w", err)
	}
	if err := r.EncodePNG(w); err != nil {
		return fmt.Errorf("export encode: %w", err)
	}
	return nil
}
