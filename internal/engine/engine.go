// Package engine is the client composition root. One goroutine owns the
// shape store, viewport, gesture machine and renderer; the host feeds it
// input events and receives painted frames and UI signals.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/inkroom/inkroom/internal/canvas"
	"github.com/inkroom/inkroom/internal/gesture"
	"github.com/inkroom/inkroom/internal/protocol"
	"github.com/inkroom/inkroom/internal/render"
	"github.com/inkroom/inkroom/internal/shape"
	"github.com/inkroom/inkroom/internal/syncclient"
	"github.com/inkroom/inkroom/internal/viewport"
)

const (
	SweepInterval = 10 * time.Second
	BlinkInterval = 500 * time.Millisecond

	inputBuffer = 64
)

var ErrStopped = errors.New("engine stopped")

// Sync is the room connection the engine publishes to and applies from.
// *syncclient.Client satisfies it.
type Sync interface {
	SendDraw(sh shape.Shape) error
	SendEdit(sh shape.Shape, dragging bool) error
	SendErase(id string) error
	SendCursor(x, y float64, drawing bool) bool
	Inbound() <-chan protocol.Message
	Done() <-chan struct{}
	Err() error
	Apply(store *canvas.Store, m protocol.Message) bool
	PruneCursors() int
	Cursors() []syncclient.Cursor
	Participants() []string
}

// Signal is a UI notification: one of the gesture UI intents
// (TextEditStarted, TextChanged, TextEditFinished, QuickTipsToggled,
// ColorPicked, ViewportChanged, PanningChanged), PresenceChanged or
// ConnectionLost.
type Signal interface{}

// ConnectionLost is emitted once when the room socket closes.
type ConnectionLost struct {
	Err error
}

// PresenceChanged carries the participant list after a count update.
type PresenceChanged struct {
	Participants []string
}

type Engine struct {
	store    *canvas.Store
	vp       *viewport.Viewport
	machine  *gesture.Machine
	renderer *render.Renderer
	sched    *render.Scheduler
	sync     Sync
	log      *slog.Logger

	onSignal     func(Signal)
	onPaint      func(image.Image)
	requestFrame func()

	input   chan Input
	frames  chan struct{}
	pending func()
	blink   *time.Ticker
	done    chan struct{}

	sweepEvery time.Duration
	blinkEvery time.Duration
	gestureOps []gesture.Option
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSignals receives UI signals on the engine goroutine.
func WithSignals(f func(Signal)) Option {
	return func(e *Engine) { e.onSignal = f }
}

// WithPaint receives every painted frame on the engine goroutine. The
// image is reused by the next paint.
func WithPaint(f func(image.Image)) Option {
	return func(e *Engine) { e.onPaint = f }
}

// WithFrameRequester replaces the default of painting on the next loop
// iteration. The host must answer each request with one Frame call, for
// example from requestAnimationFrame.
func WithFrameRequester(f func()) Option {
	return func(e *Engine) { e.requestFrame = f }
}

func WithGestureOptions(opts ...gesture.Option) Option {
	return func(e *Engine) { e.gestureOps = append(e.gestureOps, opts...) }
}

func WithIntervals(sweep, blink time.Duration) Option {
	return func(e *Engine) {
		e.sweepEvery = sweep
		e.blinkEvery = blink
	}
}

// New wires an engine around renderer. sync may be nil for an offline
// canvas.
func New(renderer *render.Renderer, sync Sync, opts ...Option) *Engine {
	e := &Engine{
		renderer:   renderer,
		sync:       sync,
		log:        slog.Default(),
		onSignal:   func(Signal) {},
		onPaint:    func(image.Image) {},
		input:      make(chan Input, inputBuffer),
		frames:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		sweepEvery: SweepInterval,
		blinkEvery: BlinkInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.requestFrame == nil {
		e.requestFrame = e.Frame
	}

	w, h := renderer.Size()
	e.store = canvas.New(canvas.WithMeasurer(renderer.Measurer()))
	e.vp = viewport.New(float64(w), float64(h))
	e.machine = gesture.New(e.store, e.vp, e.handleIntent,
		append([]gesture.Option{gesture.WithLogger(e.log)}, e.gestureOps...)...)
	e.sched = render.NewScheduler(func(frame func()) {
		e.pending = frame
		e.requestFrame()
	}, e.paint)
	return e
}

// Post queues an input event. It blocks while the input buffer is full
// and fails once the engine has stopped.
func (e *Engine) Post(ctx context.Context, in Input) error {
	select {
	case e.input <- in:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPost queues in without blocking. Input arriving faster than the
// engine drains it is dropped.
func (e *Engine) TryPost(in Input) bool {
	select {
	case e.input <- in:
		return true
	default:
		e.log.Warn("engine input buffer full, dropping event", "input", fmt.Sprintf("%T", in))
		return false
	}
}

// Frame tells the engine a requested frame may be painted now. Safe to
// call from any goroutine.
func (e *Engine) Frame() {
	select {
	case e.frames <- struct{}{}:
	default:
	}
}

// Do runs fn on the engine goroutine and waits for it.
func (e *Engine) Do(ctx context.Context, fn func(e *Engine)) error {
	c := call{fn: fn, done: make(chan struct{})}
	if err := e.Post(ctx, c); err != nil {
		return err
	}
	select {
	case <-c.done:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shapes returns a copy of the store contents.
func (e *Engine) Shapes(ctx context.Context) ([]shape.Shape, error) {
	var out []shape.Shape
	err := e.Do(ctx, func(e *Engine) { out = e.store.Shapes() })
	return out, err
}

// Store, Viewport and Machine are only safe to use inside Do.
func (e *Engine) Store() *canvas.Store         { return e.store }
func (e *Engine) Viewport() *viewport.Viewport { return e.vp }
func (e *Engine) Machine() *gesture.Machine    { return e.machine }

// Run drives the engine until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.stopBlink()

	sweep := time.NewTicker(e.sweepEvery)
	defer sweep.Stop()

	var inbound <-chan protocol.Message
	var lost <-chan struct{}
	if e.sync != nil {
		inbound = e.sync.Inbound()
		lost = e.sync.Done()
	}

	e.sched.Invalidate()
	for {
		var blinkC <-chan time.Time
		if e.blink != nil {
			blinkC = e.blink.C
		}

		select {
		case in := <-e.input:
			in.apply(e)
			e.sched.Invalidate()

		case m := <-inbound:
			e.applyRemote(m)

		case <-lost:
			lost = nil
			err := e.sync.Err()
			e.log.Warn("connection lost", "error", err)
			e.onSignal(ConnectionLost{Err: err})

		case <-e.frames:
			if f := e.pending; f != nil {
				e.pending = nil
				f()
			}

		case <-sweep.C:
			removed := e.store.Sweep()
			pruned := 0
			if e.sync != nil {
				pruned = e.sync.PruneCursors()
			}
			if removed > 0 {
				e.log.Warn("integrity sweep removed shapes", "count", removed)
			}
			if removed+pruned > 0 {
				e.sched.Invalidate()
			}

		case <-blinkC:
			if e.machine.Blink() {
				e.sched.Invalidate()
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) applyRemote(m protocol.Message) {
	changed := e.sync.Apply(e.store, m)
	if m.Type == protocol.TypeParticipantCount {
		e.onSignal(PresenceChanged{Participants: e.sync.Participants()})
	}
	if changed {
		e.sched.Invalidate()
	}
}

// handleIntent runs on the engine goroutine, inside gesture calls.
func (e *Engine) handleIntent(in gesture.Intent) {
	var err error
	switch in := in.(type) {
	case gesture.Draw:
		if e.sync != nil {
			err = e.sync.SendDraw(in.Shape)
		}
	case gesture.Edit:
		if e.sync != nil {
			err = e.sync.SendEdit(in.Shape, in.Dragging)
		}
	case gesture.Erase:
		if e.sync != nil {
			err = e.sync.SendErase(in.ShapeID)
		}
	case gesture.Cursor:
		if e.sync != nil {
			e.sync.SendCursor(in.X, in.Y, in.Drawing)
		}
	case gesture.TextEditStarted:
		e.startBlink()
		e.onSignal(in)
	case gesture.TextEditFinished:
		e.stopBlink()
		e.onSignal(in)
	default:
		e.onSignal(in)
	}
	if err != nil {
		e.log.Debug("send intent", "error", err)
	}
}

func (e *Engine) startBlink() {
	if e.blink == nil {
		e.blink = time.NewTicker(e.blinkEvery)
	}
}

func (e *Engine) stopBlink() {
	if e.blink != nil {
		e.blink.Stop()
		e.blink = nil
	}
}

func (e *Engine) paint() {
	var cursors []render.Cursor
	if e.sync != nil {
		for _, c := range e.sync.Cursors() {
			cursors = append(cursors, render.Cursor{
				UserID:  c.UserID,
				Name:    c.UserName,
				X:       c.X,
				Y:       c.Y,
				Drawing: c.Drawing,
				Color:   c.Color,
			})
		}
	}
	err := e.renderer.Draw(render.Frame{
		Shapes:   e.store.Shapes(),
		Viewport: e.vp,
		Overlay:  e.machine.Overlay(),
		Cursors:  cursors,
	})
	if err != nil {
		e.log.Warn("paint frame", "error", err)
	}
	e.onPaint(e.renderer.Image())
}
