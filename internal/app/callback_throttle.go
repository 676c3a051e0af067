package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/yourusername/batch-download-go/internal/domain"
)

// CallbackThrottle limits how often batch snapshots reach observers.
//
// The first update outside a window is delivered immediately and opens a
// window of the configured interval. Updates inside the window replace each
// other; the latest one is delivered when the window closes, which opens the
// next window. A window that saw no updates closes silently. Terminal
// snapshots bypass the window and discard anything pending.
type CallbackThrottle struct {
	clock    clockwork.Clock
	interval time.Duration
	deliver  func(domain.BatchStatus)

	mu      sync.Mutex
	pending *domain.BatchStatus
	timer   clockwork.Timer
	window  uint64
	stopped bool
	seq     uint64

	deliverMu sync.Mutex
	lastSeq   uint64
}

// NewCallbackThrottle creates a throttle that hands snapshots to deliver
func NewCallbackThrottle(clock clockwork.Clock, interval time.Duration, deliver func(domain.BatchStatus)) *CallbackThrottle {
	return &CallbackThrottle{
		clock:    clock,
		interval: interval,
		deliver:  deliver,
	}
}

// Update offers a snapshot for delivery
func (ct *CallbackThrottle) Update(status domain.BatchStatus) {
	ct.mu.Lock()
	if ct.stopped {
		ct.mu.Unlock()
		return
	}
	if ct.interval <= 0 {
		seq := ct.next()
		ct.mu.Unlock()
		ct.emit(seq, status)
		return
	}
	if ct.timer != nil {
		ct.pending = &status
		ct.mu.Unlock()
		return
	}
	seq := ct.next()
	ct.openWindow()
	ct.mu.Unlock()

	ct.emit(seq, status)
}

// Terminal delivers a snapshot right away, dropping any pending one
func (ct *CallbackThrottle) Terminal(status domain.BatchStatus) {
	ct.mu.Lock()
	if ct.stopped {
		ct.mu.Unlock()
		return
	}
	ct.pending = nil
	if ct.timer != nil {
		ct.timer.Stop()
		ct.timer = nil
	}
	seq := ct.next()
	ct.mu.Unlock()

	ct.emit(seq, status)
}

// Stop discards pending snapshots and ignores further ones
func (ct *CallbackThrottle) Stop() {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.stopped = true
	ct.pending = nil
	if ct.timer != nil {
		ct.timer.Stop()
		ct.timer = nil
	}
}

// openWindow must be called with mu held
func (ct *CallbackThrottle) openWindow() {
	ct.window++
	window := ct.window
	ct.timer = ct.clock.AfterFunc(ct.interval, func() { ct.flushWindow(window) })
}

func (ct *CallbackThrottle) flushWindow(window uint64) {
	ct.mu.Lock()
	if ct.stopped || ct.timer == nil || window != ct.window {
		ct.mu.Unlock()
		return
	}
	if ct.pending == nil {
		ct.timer = nil
		ct.mu.Unlock()
		return
	}
	status := *ct.pending
	ct.pending = nil
	seq := ct.next()
	ct.openWindow()
	ct.mu.Unlock()

	ct.emit(seq, status)
}

// next must be called with mu held
func (ct *CallbackThrottle) next() uint64 {
	ct.seq++
	return ct.seq
}

// emit delivers in sequence order; a snapshot overtaken by a newer one is dropped
func (ct *CallbackThrottle) emit(seq uint64, status domain.BatchStatus) {
	ct.deliverMu.Lock()
	defer ct.deliverMu.Unlock()

	if seq <= ct.lastSeq {
		return
	}
	ct.lastSeq = seq
	ct.deliver(status)
}
