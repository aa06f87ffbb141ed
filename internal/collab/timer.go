package collab

import "time"

// TimerHandle cancels a scheduled callback.
type TimerHandle interface {
	Stop() bool
}

// AfterFunc schedules f to run after d on its own goroutine.
type AfterFunc func(d time.Duration, f func()) TimerHandle

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

var DefaultAfterFunc AfterFunc = func(d time.Duration, f func()) TimerHandle {
	return realTimer{t: time.AfterFunc(d, f)}
}
