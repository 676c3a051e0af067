package app

import (
	"sync"

	"github.com/yourusername/batch-download-go/internal/domain"
	"go.uber.org/zap"
)

// Notifier fans batch snapshots out to observers from a single goroutine,
// so observers never run on a download worker and see updates in order.
type Notifier struct {
	queue  chan domain.BatchStatus
	done   chan struct{}
	logger *zap.Logger

	obsMu     sync.RWMutex
	observers map[uint64]domain.BatchObserver
	nextID    uint64

	closeMu sync.RWMutex
	closed  bool
}

// NewNotifier creates a notifier and starts its delivery goroutine
func NewNotifier(queueSize int, logger *zap.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = 1
	}
	n := &Notifier{
		queue:     make(chan domain.BatchStatus, queueSize),
		done:      make(chan struct{}),
		logger:    logger,
		observers: make(map[uint64]domain.BatchObserver),
	}
	go n.run()
	return n
}

// Subscribe registers an observer and returns a function removing it
func (n *Notifier) Subscribe(observer domain.BatchObserver) func() {
	n.obsMu.Lock()
	defer n.obsMu.Unlock()

	n.nextID++
	id := n.nextID
	n.observers[id] = observer
	return func() {
		n.obsMu.Lock()
		defer n.obsMu.Unlock()
		delete(n.observers, id)
	}
}

// Publish queues a snapshot for delivery. Snapshots published after Close are dropped.
func (n *Notifier) Publish(status domain.BatchStatus) {
	n.closeMu.RLock()
	defer n.closeMu.RUnlock()

	if n.closed {
		return
	}
	n.queue <- status
}

// Close stops accepting snapshots and waits until queued ones are delivered
func (n *Notifier) Close() {
	n.closeMu.Lock()
	if n.closed {
		n.closeMu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	close(n.queue)
	n.closeMu.Unlock()

	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)

	for status := range n.queue {
		n.obsMu.RLock()
		observers := make([]domain.BatchObserver, 0, len(n.observers))
		for _, observer := range n.observers {
			observers = append(observers, observer)
		}
		n.obsMu.RUnlock()

		for _, observer := range observers {
			n.notify(observer, status)
		}
	}
}

func (n *Notifier) notify(observer domain.BatchObserver, status domain.BatchStatus) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Batch observer panicked",
				zap.String("batch_id", string(status.BatchID)),
				zap.Any("panic", r))
		}
	}()
	observer(status)
}
