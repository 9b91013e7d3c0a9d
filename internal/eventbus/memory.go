package eventbus

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/titan-aas/titan-aas/internal/logging"
)

// MemoryBus is the default single-node Bus: an in-process fan-out over
// one goroutine per subscriber. Each subscriber owns a single FIFO
// queue; once it reaches capacity the oldest queued event is dropped
// to keep memory bounded, matching the documented "shed to a durable
// tail, never block the producer" contract. Because each subscriber
// has exactly one queue and exactly one consumer goroutine draining it
// strictly front-to-back, events sharing an IdentifierB64 are always
// delivered in publish order. A multi-node deployment should
// substitute a persistent-log Bus behind the same interface instead of
// this one.
type MemoryBus struct {
	mu          sync.Mutex
	subscribers map[int]*subscriber
	nextID      int
	closed      bool

	queueCap int
	logger   *logging.Logger
}

type subscriber struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *list.List
	closed bool
}

const defaultQueueCap = 1024

// NewMemoryBus constructs a MemoryBus. queueCap is the maximum number
// of undelivered events retained per subscriber before the oldest is
// dropped; it falls back to a default when <= 0. logger may be nil, in
// which case a default JSON logger is used.
func NewMemoryBus(queueCap int, logger *logging.Logger) *MemoryBus {
	if queueCap <= 0 {
		queueCap = defaultQueueCap
	}
	if logger == nil {
		logger = logging.NewFromEnv("eventbus")
	}
	return &MemoryBus{
		subscribers: make(map[int]*subscriber),
		queueCap:    queueCap,
		logger:      logger,
	}
}

func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("eventbus: publish on closed bus")
	}
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	queueCap := b.queueCap
	b.mu.Unlock()

	for _, s := range subs {
		s.enqueue(event, queueCap)
	}
	return nil
}

// enqueue appends event to the subscriber's queue, evicting the oldest
// queued event first if the queue is already at capacity. This never
// blocks the publisher.
func (s *subscriber) enqueue(event Event, queueCap int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.queue.Len() >= queueCap {
		front := s.queue.Front()
		if front != nil {
			s.queue.Remove(front)
		}
	}
	s.queue.PushBack(event)
	s.cond.Signal()
}

func (b *MemoryBus) Subscribe(handler Handler) func() {
	sub := &subscriber{queue: list.New()}
	sub.cond = sync.NewCond(&sub.mu)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub
	b.mu.Unlock()

	go sub.run(handler, b.logger)

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
		sub.stop()
	}
}

// run drains the subscriber's queue strictly in FIFO order until
// stopped, blocking on the condition variable while the queue is
// empty.
func (s *subscriber) run(handler Handler, logger *logging.Logger) {
	ctx := context.Background()
	for {
		s.mu.Lock()
		for s.queue.Len() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && s.queue.Len() == 0 {
			s.mu.Unlock()
			return
		}
		front := s.queue.Front()
		s.queue.Remove(front)
		s.mu.Unlock()

		invoke(ctx, handler, front.Value.(Event), logger)
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

func invoke(ctx context.Context, handler Handler, event Event, logger *logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithContext(ctx).WithField("event_id", event.EventID).Errorf("handler panic: %v", r)
		}
	}()
	if err := handler(ctx, event); err != nil {
		logger.WithContext(ctx).WithField("event_id", event.EventID).WithError(err).Error("handler error")
	}
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscriber, 0, len(b.subscribers))
	for id, s := range b.subscribers {
		subs = append(subs, s)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
	return nil
}
