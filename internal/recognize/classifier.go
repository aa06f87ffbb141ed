package recognize

import (
	"context"

	"github.com/inkroom/inkroom/internal/shape"
)

// Classifier turns a finished stroke into a Result. An external analysis
// service can sit behind this interface; Heuristic runs in process.
type Classifier interface {
	Classify(ctx context.Context, pts []shape.Point) (Result, error)
}

// Heuristic is the in-process Classifier backed by Analyze.
type Heuristic struct{}

func (Heuristic) Classify(ctx context.Context, pts []shape.Point) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Analyze(pts), nil
}
