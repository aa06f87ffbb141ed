// Package syncclient connects one canvas to a room: it turns local
// mutations into socket messages, applies inbound messages idempotently
// and keeps the map of remote cursors.
package syncclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/inkroom/inkroom/internal/canvas"
	"github.com/inkroom/inkroom/internal/protocol"
	"github.com/inkroom/inkroom/internal/shape"
)

const (
	// CursorTTL is how long a remote cursor survives without an update.
	CursorTTL = 10 * time.Second
	// CursorInterval is the minimum spacing of outbound cursor updates.
	CursorInterval = 50 * time.Millisecond

	DefaultQueueSize = 256
	maxActivity      = 50
	writeWait        = 10 * time.Second
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrConnected = errors.New("already connected")
)

type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateOpen
	stateClosed
)

// Cursor is a remote participant's pointer as last reported.
type Cursor struct {
	UserID     string
	UserName   string
	X          float64
	Y          float64
	Drawing    bool
	Color      string
	LastUpdate time.Time
}

// Activity is one user_activity_update.
type Activity struct {
	UserID   string
	UserName string
	Activity string
	At       time.Time
}

type Config struct {
	ServerURL string
	RoomID    string
	UserID    string
	UserName  string
	Token     string
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithClock replaces time.Now for cursor throttling and pruning.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithQueueSize bounds the messages held while the socket is not yet open.
func WithQueueSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.queueMax = n
		}
	}
}

// WithCursorColor assigns display colors to remote users.
func WithCursorColor(f func(userID string) string) Option {
	return func(c *Client) { c.colorFor = f }
}

// Client is safe for concurrent Send; Apply, the cursor map and the
// participant state belong to the goroutine that drains Inbound.
type Client struct {
	cfg      Config
	log      *slog.Logger
	dial     Dialer
	now      func() time.Time
	colorFor func(string) string
	limiter  *rate.Limiter

	mu       sync.Mutex
	state    connState
	conn     Conn
	queue    [][]byte
	queueMax int
	dropped  int
	out      chan []byte
	cancel   context.CancelFunc
	done     chan struct{}
	err      error

	inbound chan protocol.Message

	cursors      map[string]*Cursor
	names        map[string]string
	participants []string
	activity     []Activity
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		log:      slog.Default(),
		dial:     DialWebsocket,
		now:      time.Now,
		colorFor: func(string) string { return "" },
		queueMax: DefaultQueueSize,
		done:     make(chan struct{}),
		inbound:  make(chan protocol.Message, DefaultQueueSize),
		cursors:  make(map[string]*Cursor),
		names:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.out = make(chan []byte, c.queueMax+1)
	c.limiter = rate.NewLimiter(rate.Every(CursorInterval), 1)
	return c
}

func (c *Client) RoomID() string { return c.cfg.RoomID }
func (c *Client) UserID() string { return c.cfg.UserID }

// Connect dials the room socket, joins the room and flushes anything
// queued while connecting. The pumps stop when ctx is canceled or the
// socket fails; Done is closed then.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != stateIdle {
		c.mu.Unlock()
		return ErrConnected
	}
	c.state = stateConnecting
	c.mu.Unlock()

	socketURL, err := SocketURL(c.cfg.ServerURL, c.cfg.Token)
	if err != nil {
		c.fail(err)
		return err
	}
	conn, err := c.dial(ctx, socketURL)
	if err != nil {
		c.fail(err)
		return fmt.Errorf("connect room %s: %w", c.cfg.RoomID, err)
	}

	join, err := protocol.Encode(protocol.Join(c.cfg.RoomID))
	if err != nil {
		conn.Close()
		c.fail(err)
		return err
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		cancel()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.cancel = cancel
	c.state = stateOpen
	c.out <- join
	for _, data := range c.queue {
		c.enqueueLocked(data)
	}
	c.queue = nil
	c.mu.Unlock()

	go c.writePump(pumpCtx, conn)
	go c.readPump(pumpCtx, conn)

	c.log.Info("joined room", "room", c.cfg.RoomID, "user", c.cfg.UserID)
	return nil
}

// Send encodes m and hands it to the socket. Before the socket opens the
// message is queued (oldest dropped past the bound); after close it is
// dropped and ErrClosed returned.
func (c *Client) Send(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateIdle, stateConnecting:
		if len(c.queue) >= c.queueMax {
			c.queue = c.queue[1:]
			c.dropped++
		}
		c.queue = append(c.queue, data)
	case stateOpen:
		c.enqueueLocked(data)
	default:
		c.dropped++
		return ErrClosed
	}
	return nil
}

func (c *Client) enqueueLocked(data []byte) {
	select {
	case c.out <- data:
	default:
		c.dropped++
		c.log.Warn("client send buffer full, dropping message", "room", c.cfg.RoomID)
	}
}

func (c *Client) SendDraw(sh shape.Shape) error {
	return c.Send(protocol.Draw(c.cfg.RoomID, sh))
}

func (c *Client) SendEdit(sh shape.Shape, dragging bool) error {
	return c.Send(protocol.Edit(c.cfg.RoomID, sh, dragging))
}

func (c *Client) SendErase(id string) error {
	return c.Send(protocol.Erase(c.cfg.RoomID, id))
}

func (c *Client) SendActivity(activity string) error {
	return c.Send(protocol.Activity(c.cfg.RoomID, activity, c.cfg.UserName))
}

func (c *Client) RequestCount() error {
	return c.Send(protocol.CountRequest(c.cfg.RoomID))
}

// SendCursor sends a cursor update unless one went out within the last
// CursorInterval. It reports whether the update was sent.
func (c *Client) SendCursor(x, y float64, drawing bool) bool {
	if !c.limiter.AllowN(c.now(), 1) {
		return false
	}
	return c.Send(protocol.Cursor(c.cfg.RoomID, c.cfg.UserID, x, y, drawing)) == nil
}

// Dropped counts messages discarded by the queue bound, a full send
// buffer or a closed socket.
func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Client) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// Inbound delivers decoded messages from the room.
func (c *Client) Inbound() <-chan protocol.Message { return c.inbound }

// Done is closed once the connection is gone for good.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended, or nil.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close leaves the room and shuts the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	conn, open := c.conn, c.state == stateOpen
	c.mu.Unlock()

	if open {
		if data, err := protocol.Encode(protocol.Leave(c.cfg.RoomID)); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			_ = conn.Write(ctx, data)
			cancel()
		}
	}
	c.fail(nil)
	return nil
}

// fail moves to the closed state once.
func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	c.err = err
	conn, cancel := c.conn, c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	close(c.done)
}

func (c *Client) writePump(ctx context.Context, conn Conn) {
	for {
		select {
		case data := <-c.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Write(writeCtx, data)
			cancel()
			if err != nil {
				c.log.Debug("write error", "error", err, "room", c.cfg.RoomID)
				c.fail(fmt.Errorf("write: %w", err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) readPump(ctx context.Context, conn Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Debug("read error", "error", err, "room", c.cfg.RoomID)
				c.fail(fmt.Errorf("read: %w", err))
			}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			if !errors.Is(err, protocol.ErrUnknownType) {
				c.log.Warn("invalid message", "error", err, "room", c.cfg.RoomID)
			}
			continue
		}
		if msg.RoomID != "" && msg.RoomID != c.cfg.RoomID {
			continue
		}
		select {
		case c.inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// Apply folds one inbound message into store and the presence state. It
// reports whether anything visible changed. Applying the same message
// twice has the same effect as applying it once.
func (c *Client) Apply(store *canvas.Store, m protocol.Message) bool {
	switch m.Type {
	case protocol.TypeDraw:
		if m.Shape == nil || store.Has(m.Shape.ID) {
			return false
		}
		if err := store.Add(*m.Shape); err != nil {
			c.log.Warn("apply draw", "error", err, "shape", m.Shape.ID)
			return false
		}
		return true
	case protocol.TypeEditShape:
		if m.Shape == nil {
			return false
		}
		return store.Update(*m.Shape)
	case protocol.TypeErase:
		return store.Delete(m.ShapeID)
	case protocol.TypeCursorUpdate:
		return c.applyCursor(m)
	case protocol.TypeParticipantCount:
		c.participants = append([]string(nil), m.Participants...)
		return false
	case protocol.TypeActivityUpdate:
		if m.UserName != "" {
			c.names[m.UserID] = m.UserName
		}
		c.activity = append(c.activity, Activity{
			UserID:   m.UserID,
			UserName: m.UserName,
			Activity: m.Activity,
			At:       time.UnixMilli(m.Timestamp),
		})
		if len(c.activity) > maxActivity {
			c.activity = c.activity[len(c.activity)-maxActivity:]
		}
		return false
	case protocol.TypeError:
		c.log.Warn("server error", "error", m.Error, "room", c.cfg.RoomID)
	}
	return false
}

func (c *Client) applyCursor(m protocol.Message) bool {
	if m.UserID == "" || m.UserID == c.cfg.UserID {
		return false
	}
	cur, ok := c.cursors[m.UserID]
	if !ok {
		cur = &Cursor{UserID: m.UserID, Color: c.colorFor(m.UserID)}
		c.cursors[m.UserID] = cur
	}
	if m.UserName != "" {
		c.names[m.UserID] = m.UserName
	}
	cur.UserName = c.names[m.UserID]
	cur.X, cur.Y = m.X, m.Y
	cur.Drawing = m.IsDrawing
	cur.LastUpdate = c.now()
	return true
}

// PruneCursors drops cursors idle for longer than CursorTTL and returns
// how many were removed.
func (c *Client) PruneCursors() int {
	now := c.now()
	n := 0
	for id, cur := range c.cursors {
		if now.Sub(cur.LastUpdate) > CursorTTL {
			delete(c.cursors, id)
			n++
		}
	}
	return n
}

// Cursors returns the live remote cursors ordered by user id.
func (c *Client) Cursors() []Cursor {
	out := make([]Cursor, 0, len(c.cursors))
	for _, cur := range c.cursors {
		out = append(out, *cur)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Participants returns the user ids from the last count update.
func (c *Client) Participants() []string {
	return append([]string(nil), c.participants...)
}

func (c *Client) Activity() []Activity {
	return append([]Activity(nil), c.activity...)
}
