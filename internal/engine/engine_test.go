package engine

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/inkroom/inkroom/internal/gesture"
	"github.com/inkroom/inkroom/internal/protocol"
	"github.com/inkroom/inkroom/internal/render"
	"github.com/inkroom/inkroom/internal/shape"
	"github.com/inkroom/inkroom/internal/syncclient"
)

type pipeConn struct {
	mu      sync.Mutex
	written []protocol.Message
	reads   chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{reads: make(chan []byte, 16), closed: make(chan struct{})}
}

func (p *pipeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.reads:
		return data, nil
	case <-p.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConn) Write(_ context.Context, data []byte) error {
	var m protocol.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	p.mu.Lock()
	p.written = append(p.written, m)
	p.mu.Unlock()
	return nil
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) sent(typ protocol.Type) []protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []protocol.Message
	for _, m := range p.written {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type signals struct {
	mu  sync.Mutex
	got []Signal
}

func (s *signals) add(sig Signal) {
	s.mu.Lock()
	s.got = append(s.got, sig)
	s.mu.Unlock()
}

func (s *signals) has(match func(Signal) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range s.got {
		if match(sig) {
			return true
		}
	}
	return false
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func start(t *testing.T, e *Engine) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v", err)
		}
	})
	return ctx
}

func post(t *testing.T, ctx context.Context, e *Engine, ins ...Input) {
	t.Helper()
	for _, in := range ins {
		if err := e.Post(ctx, in); err != nil {
			t.Fatalf("post %T: %v", in, err)
		}
	}
}

func drawRect(t *testing.T, ctx context.Context, e *Engine) {
	post(t, ctx, e,
		SetTool{Tool: gesture.ToolRect},
		PointerDown{X: 10, Y: 10},
		PointerMove{X: 40, Y: 30},
		PointerUp{X: 60, Y: 50},
	)
}

func TestOfflineDrawPaints(t *testing.T) {
	var mu sync.Mutex
	var frames int
	var last image.Image
	e := New(render.New(120, 80), nil, WithLogger(quiet()), WithPaint(func(img image.Image) {
		mu.Lock()
		frames++
		last = img
		mu.Unlock()
	}))
	ctx := start(t, e)
	drawRect(t, ctx, e)

	shapes, err := e.Shapes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(shapes) != 1 {
		t.Fatalf("shapes = %d, want 1", len(shapes))
	}
	b, ok := shapes[0].Geom.(shape.Box)
	if !ok || b.X != 10 || b.Y != 10 || b.Width != 50 || b.Height != 40 {
		t.Errorf("geometry = %+v", shapes[0].Geom)
	}

	eventually(t, "a painted frame", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return frames > 0 && last != nil
	})
	if got := last.Bounds(); got.Dx() != 120 || got.Dy() != 80 {
		t.Errorf("frame bounds = %v", got)
	}
}

func TestFramesCoalesceWithHostRequester(t *testing.T) {
	var mu sync.Mutex
	requests, paints := 0, 0
	e := New(render.New(60, 40), nil, WithLogger(quiet()),
		WithFrameRequester(func() { mu.Lock(); requests++; mu.Unlock() }),
		WithPaint(func(image.Image) { mu.Lock(); paints++; mu.Unlock() }))
	ctx := start(t, e)

	for i := 0; i < 20; i++ {
		post(t, ctx, e, PointerMove{X: float64(i), Y: 1})
	}
	if _, err := e.Shapes(ctx); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	if requests != 1 || paints != 0 {
		t.Errorf("requests = %d, paints = %d before frame", requests, paints)
	}
	mu.Unlock()

	e.Frame()
	eventually(t, "one paint", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return paints == 1
	})
}

func TestTextSignalsAndBlink(t *testing.T) {
	sigs := &signals{}
	e := New(render.New(100, 100), nil, WithLogger(quiet()), WithSignals(sigs.add),
		WithIntervals(time.Hour, 5*time.Millisecond))
	ctx := start(t, e)

	post(t, ctx, e, SetTool{Tool: gesture.ToolText}, PointerDown{X: 20, Y: 20})
	eventually(t, "text edit started", func() bool {
		return sigs.has(func(s Signal) bool { _, ok := s.(gesture.TextEditStarted); return ok })
	})

	var id string
	e.Do(ctx, func(e *Engine) { id = e.Machine().TypingID() })
	if id == "" {
		t.Fatal("not typing")
	}
	post(t, ctx, e, SetText{ShapeID: id, Text: "hi"}, FinishTyping{})
	eventually(t, "text edit finished", func() bool {
		return sigs.has(func(s Signal) bool { _, ok := s.(gesture.TextEditFinished); return ok })
	})

	shapes, _ := e.Shapes(ctx)
	if len(shapes) != 1 || shapes[0].Geom.(shape.Text).Text != "hi" {
		t.Fatalf("shapes = %+v", shapes)
	}
	e.Do(ctx, func(e *Engine) {
		if e.blink != nil {
			t.Error("blink ticker still running after typing finished")
		}
	})
}

func TestSyncedSession(t *testing.T) {
	conn := newPipeConn()
	sc := syncclient.New(syncclient.Config{
		ServerURL: "http://example.test",
		RoomID:    "room",
		UserID:    "me",
		Token:     "tok",
	}, syncclient.WithLogger(quiet()), syncclient.WithDialer(func(context.Context, string) (syncclient.Conn, error) {
		return conn, nil
	}))
	if err := sc.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	sigs := &signals{}
	e := New(render.New(200, 200), sc, WithLogger(quiet()), WithSignals(sigs.add))
	ctx := start(t, e)

	drawRect(t, ctx, e)
	eventually(t, "draw sent", func() bool { return len(conn.sent(protocol.TypeDraw)) == 1 })
	if cursors := conn.sent(protocol.TypeCursorUpdate); len(cursors) == 0 {
		t.Error("no cursor update sent")
	}

	remote := shape.New(shape.Line{StartX: 0, StartY: 0, EndX: 10, EndY: 0}, nil)
	for i := 0; i < 2; i++ {
		data, _ := protocol.Encode(protocol.Draw("room", remote))
		conn.reads <- data
	}
	data, _ := protocol.Encode(protocol.ParticipantCount("room", []string{"me", "you"}))
	conn.reads <- data

	eventually(t, "presence signal", func() bool {
		return sigs.has(func(s Signal) bool {
			p, ok := s.(PresenceChanged)
			return ok && len(p.Participants) == 2
		})
	})
	shapes, _ := e.Shapes(ctx)
	if len(shapes) != 2 {
		t.Fatalf("shapes = %d, want 2 after duplicate remote draw", len(shapes))
	}

	conn.Close()
	eventually(t, "connection lost", func() bool {
		return sigs.has(func(s Signal) bool { _, ok := s.(ConnectionLost); return ok })
	})
}
