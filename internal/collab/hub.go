package collab

import (
	"context"
	"log/slog"
	"time"

	"github.com/inkroom/inkroom/internal/eventlog"
	"github.com/inkroom/inkroom/internal/protocol"
	"github.com/inkroom/inkroom/internal/shape"
)

const (
	DefaultDragDebounce = 100 * time.Millisecond
	DefaultDrawingTTL   = 2 * time.Second
	DefaultSendBuffer   = 256

	persistTimeout = 5 * time.Second
)

type inbound struct {
	client *Client
	msg    protocol.Message
}

// pendingWrite is the latest dragging state of one shape, waiting for the
// trailing debounce to persist it.
type pendingWrite struct {
	gen    uint64
	timer  TimerHandle
	roomID string
	userID string
	shape  shape.Shape
}

// Hub relays room messages between connections and appends mutations to
// the event log. Run is the only goroutine that touches the registry,
// client room sets and pending writes; everything else posts to it.
type Hub struct {
	reg    Registry
	events eventlog.Log
	log    *slog.Logger

	afterFunc    AfterFunc
	now          func() time.Time
	dragDebounce time.Duration
	drawingTTL   time.Duration
	sendBuffer   int

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	tasks      chan func()
	done       chan struct{}

	pending map[string]*pendingWrite
	gen     uint64
	joins   uint64
}

type HubOption func(*Hub)

func WithRegistry(r Registry) HubOption          { return func(h *Hub) { h.reg = r } }
func WithLogger(l *slog.Logger) HubOption        { return func(h *Hub) { h.log = l } }
func WithAfterFunc(f AfterFunc) HubOption        { return func(h *Hub) { h.afterFunc = f } }
func WithClock(now func() time.Time) HubOption   { return func(h *Hub) { h.now = now } }
func WithDragDebounce(d time.Duration) HubOption { return func(h *Hub) { h.dragDebounce = d } }
func WithDrawingTTL(d time.Duration) HubOption   { return func(h *Hub) { h.drawingTTL = d } }
func WithSendBuffer(n int) HubOption             { return func(h *Hub) { h.sendBuffer = n } }

func NewHub(events eventlog.Log, opts ...HubOption) *Hub {
	h := &Hub{
		reg:          NewRegistry(),
		events:       events,
		log:          slog.Default(),
		afterFunc:    DefaultAfterFunc,
		now:          time.Now,
		dragDebounce: DefaultDragDebounce,
		drawingTTL:   DefaultDrawingTTL,
		sendBuffer:   DefaultSendBuffer,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		inbound:      make(chan inbound),
		tasks:        make(chan func()),
		done:         make(chan struct{}),
		pending:      make(map[string]*pendingWrite),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.sendBuffer < 1 {
		h.sendBuffer = DefaultSendBuffer
	}
	return h
}

// Run processes hub events until ctx is cancelled. Pending debounced
// writes are flushed before it returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)
		case task := <-h.tasks:
			task()
		case <-ctx.Done():
			h.flushAll()
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Deliver hands a decoded message from client to the hub.
func (h *Hub) Deliver(client *Client, msg protocol.Message) {
	select {
	case h.inbound <- inbound{client: client, msg: msg}:
	case <-h.done:
	}
}

// post runs fn on the hub goroutine. It reports false once the hub has
// stopped.
func (h *Hub) post(fn func()) bool {
	select {
	case h.tasks <- fn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) addClient(client *Client) {
	h.reg.Add(client)
	h.log.Info("client connected", "user", client.UserID, "conn", client.ConnID)
}

func (h *Hub) removeClient(client *Client) {
	if _, ok := h.reg.Find(client.ConnID); !ok {
		return
	}
	h.reg.Remove(client)
	close(client.send)

	for roomID := range client.rooms {
		h.broadcastCount(roomID)
	}
	h.log.Info("client disconnected", "user", client.UserID, "conn", client.ConnID, "rooms", len(client.rooms))
}

func (h *Hub) handleMessage(sender *Client, msg protocol.Message) {
	if _, ok := h.reg.Find(sender.ConnID); !ok {
		return
	}
	if err := msg.Validate(); err != nil {
		h.log.Warn("invalid message", "error", err, "user", sender.UserID)
		return
	}

	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.join(sender, msg.RoomID)
		return
	case protocol.TypeLeaveRoom:
		h.leave(sender, msg.RoomID)
		return
	}

	if !sender.InRoom(msg.RoomID) {
		h.log.Debug("message for unjoined room dropped", "type", msg.Type, "room", msg.RoomID, "user", sender.UserID)
		return
	}

	switch msg.Type {
	case protocol.TypeDraw:
		h.handleDraw(sender, msg)
	case protocol.TypeEditShape:
		h.handleEdit(sender, msg)
	case protocol.TypeErase:
		h.handleErase(sender, msg)
	case protocol.TypeCursorUpdate:
		out := protocol.Cursor(msg.RoomID, sender.UserID, msg.X, msg.Y, msg.IsDrawing)
		out.UserName = sender.DisplayName
		h.broadcastToRoom(msg.RoomID, out, sender)
	case protocol.TypeUserActivity:
		sender.lastActivity = h.now()
		name := msg.UserName
		if name == "" {
			name = sender.DisplayName
		}
		out := protocol.ActivityUpdate(msg.RoomID, sender.UserID, name, msg.Activity, sender.lastActivity)
		h.broadcastToRoom(msg.RoomID, out, sender)
	case protocol.TypeGetParticipantCount:
		sender.Send(protocol.ParticipantCount(msg.RoomID, h.participantIDs(msg.RoomID)))
	default:
		h.log.Debug("unexpected message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) join(c *Client, roomID string) {
	if c.InRoom(roomID) {
		return
	}
	h.joins++
	c.rooms[roomID] = h.joins
	h.broadcastCount(roomID)
	h.log.Info("client joined", "user", c.UserID, "room", roomID)
}

func (h *Hub) leave(c *Client, roomID string) {
	if !c.InRoom(roomID) {
		return
	}
	delete(c.rooms, roomID)
	h.broadcastCount(roomID)
	h.log.Info("client left", "user", c.UserID, "room", roomID)
}

func (h *Hub) handleDraw(sender *Client, msg protocol.Message) {
	h.persist(msg.RoomID, sender.UserID, eventlog.Record{Type: eventlog.KindCreate, Shape: msg.Shape})
	h.markDrawing(sender)

	out := protocol.Draw(msg.RoomID, *msg.Shape)
	out.DrawingUser = sender.UserID
	h.broadcastToRoom(msg.RoomID, out, sender)
}

func (h *Hub) handleEdit(sender *Client, msg protocol.Message) {
	if msg.IsDragging {
		h.broadcastToRoom(msg.RoomID, protocol.Edit(msg.RoomID, *msg.Shape, true), sender)
		h.schedulePersist(msg.RoomID, sender.UserID, *msg.Shape)
		return
	}
	h.cancelPending(msg.RoomID, msg.Shape.ID)
	h.persist(msg.RoomID, sender.UserID, eventlog.Record{Type: eventlog.KindUpdate, Shape: msg.Shape})
	h.broadcastToRoom(msg.RoomID, protocol.Edit(msg.RoomID, *msg.Shape, false), sender)
}

func (h *Hub) handleErase(sender *Client, msg protocol.Message) {
	h.cancelPending(msg.RoomID, msg.ShapeID)
	h.persist(msg.RoomID, sender.UserID, eventlog.Record{Type: eventlog.KindDelete, ShapeID: msg.ShapeID})
	h.broadcastToRoom(msg.RoomID, protocol.Erase(msg.RoomID, msg.ShapeID), sender)
}

// markDrawing sets the drawing flag and clears it drawingTTL after the
// latest draw.
func (h *Hub) markDrawing(c *Client) {
	c.drawing = true
	c.lastActivity = h.now()
	c.drawGen++
	gen := c.drawGen
	h.afterFunc(h.drawingTTL, func() {
		h.post(func() {
			if c.drawGen == gen {
				c.drawing = false
			}
		})
	})
}

// persist appends one record. Failures are logged; the caller still
// broadcasts.
func (h *Hub) persist(roomID, userID string, rec eventlog.Record) {
	ev, err := eventlog.NewEvent(roomID, userID, rec)
	if err != nil {
		h.log.Warn("build event", "room", roomID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if _, err := h.events.Append(ctx, ev); err != nil {
		h.log.Error("persist event", "room", roomID, "type", rec.Type, "error", err)
	}
}

func pendingKey(roomID, shapeID string) string { return roomID + "|" + shapeID }

// schedulePersist replaces any pending write for the shape and restarts
// its trailing timer.
func (h *Hub) schedulePersist(roomID, userID string, sh shape.Shape) {
	key := pendingKey(roomID, sh.ID)
	if p, ok := h.pending[key]; ok {
		p.timer.Stop()
	}
	h.gen++
	gen := h.gen
	h.pending[key] = &pendingWrite{
		gen:    gen,
		roomID: roomID,
		userID: userID,
		shape:  sh,
		timer: h.afterFunc(h.dragDebounce, func() {
			h.post(func() { h.flushPending(key, gen) })
		}),
	}
}

func (h *Hub) flushPending(key string, gen uint64) {
	p, ok := h.pending[key]
	if !ok || p.gen != gen {
		return
	}
	delete(h.pending, key)
	sh := p.shape
	h.persist(p.roomID, p.userID, eventlog.Record{Type: eventlog.KindUpdate, Shape: &sh})
}

func (h *Hub) cancelPending(roomID, shapeID string) {
	key := pendingKey(roomID, shapeID)
	if p, ok := h.pending[key]; ok {
		p.timer.Stop()
		delete(h.pending, key)
	}
}

func (h *Hub) flushAll() {
	for key, p := range h.pending {
		p.timer.Stop()
		h.flushPending(key, p.gen)
	}
}

func (h *Hub) participantIDs(roomID string) []string {
	members := h.reg.InRoom(roomID)
	ids := make([]string, 0, len(members))
	for _, c := range members {
		ids = append(ids, c.UserID)
	}
	return ids
}

func (h *Hub) broadcastCount(roomID string) {
	h.broadcastToRoom(roomID, protocol.ParticipantCount(roomID, h.participantIDs(roomID)), nil)
}

// broadcastToRoom encodes msg once and queues it for every member of
// roomID except the excluded connection.
func (h *Hub) broadcastToRoom(roomID string, msg protocol.Message, exclude *Client) {
	data, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error("marshal message", "error", err)
		return
	}
	for _, c := range h.reg.InRoom(roomID) {
		if exclude != nil && c.ConnID == exclude.ConnID {
			continue
		}
		c.sendRaw(data)
	}
}
