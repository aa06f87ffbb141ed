package render

// Scheduler coalesces repaint requests: any number of Invalidate calls
// between frames produce one paint, and at most one frame request is
// outstanding at a time.
type Scheduler struct {
	request func(frame func())
	paint   func()
	dirty   bool
	pending bool
	frames  int
}

// NewScheduler builds a scheduler. request must arrange for frame to be
// called once, later, on the same goroutine that calls Invalidate.
func NewScheduler(request func(frame func()), paint func()) *Scheduler {
	return &Scheduler{request: request, paint: paint}
}

func (s *Scheduler) Invalidate() {
	s.dirty = true
	if s.pending {
		return
	}
	s.pending = true
	s.request(s.frame)
}

func (s *Scheduler) frame() {
	s.pending = false
	if !s.dirty {
		return
	}
	s.dirty = false
	s.frames++
	s.paint()
}

func (s *Scheduler) Dirty() bool   { return s.dirty }
func (s *Scheduler) Pending() bool { return s.pending }

// Frames is the number of paints performed so far.
func (s *Scheduler) Frames() int { return s.frames }
