package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg/event"
)

const DefaultBufferSize = 256

// Handlers are invoked from the subscription's own goroutine, one call at a
// time, in the order events were dispatched. OnResync means events were lost
// and the subscriber must refetch its view of the restaurant.
type Handlers struct {
	OnAdded   func(event.OrderAddedEvent)
	OnUpdated func(event.OrderUpdatedEvent)
	OnDeleted func(event.OrderDeletedEvent)
	OnResync  func()
}

// Hub fans order changes out to subscribers keyed by restaurant. Each
// subscriber has a bounded queue; a slow one overflows into a resync
// instead of blocking dispatch.
type Hub struct {
	mu         sync.RWMutex
	subs       map[string]map[uint64]*subscriber
	nextID     uint64
	bufferSize int
	closed     bool
	logger     apt.Logger
}

func NewHub(bufferSize int, logger apt.Logger) *Hub {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subs:       make(map[string]map[uint64]*subscriber),
		bufferSize: bufferSize,
		logger:     logger.With("component", "feed-hub"),
	}
}

// Subscribe registers handlers for one restaurant. The returned
// Subscription must be released with Unsubscribe.
func (h *Hub) Subscribe(restaurantID string, handlers Handlers) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := newSubscriber(h.nextID, restaurantID, handlers, h.bufferSize, h.logger)
	if h.closed {
		s.stopOnce.Do(func() { close(s.stop) })
		close(s.done)
		return &Subscription{hub: h, sub: s}
	}

	if h.subs[restaurantID] == nil {
		h.subs[restaurantID] = make(map[uint64]*subscriber)
	}
	h.subs[restaurantID][s.id] = s
	go s.run()

	h.logger.Debug("feed subscriber added", "restaurant_id", restaurantID, "subscriber", s.id)
	return &Subscription{hub: h, sub: s}
}

// Dispatch queues evt for every subscriber of its restaurant.
func (h *Hub) Dispatch(evt event.OrderEvent) {
	restaurantID := evt.RestaurantID()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs[restaurantID] {
		if s.push(evt) {
			h.logger.Info("feed subscriber overflowed, forcing resync", "restaurant_id", restaurantID, "subscriber", s.id)
		}
	}
}

// Resync asks subscribers to refetch. An empty restaurantID targets every
// subscriber, which is what a lost upstream connection calls for.
func (h *Hub) Resync(restaurantID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, group := range h.subs {
		if restaurantID != "" && id != restaurantID {
			continue
		}
		for _, s := range group {
			s.requestResync()
		}
	}
}

// Publish lets the hub stand in for a broker publisher when the service runs
// without NATS.
func (h *Hub) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	evt, err := event.DecodeOrderEvent(msg)
	if err != nil {
		return err
	}
	if restaurantID, ok := event.RestaurantFromTopic(topic); ok && restaurantID != evt.RestaurantID() {
		return fmt.Errorf("event for restaurant %s published on %s", evt.RestaurantID(), topic)
	}
	h.Dispatch(evt)
	return nil
}

func (h *Hub) SubscriberCount(restaurantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[restaurantID])
}

// Close stops every subscription. Later Subscribe calls return inert
// subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*subscriber
	for _, group := range h.subs {
		for _, s := range group {
			all = append(all, s)
		}
	}
	h.subs = make(map[string]map[uint64]*subscriber)
	h.mu.Unlock()

	for _, s := range all {
		s.shutdown()
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group := h.subs[s.restaurantID]
	delete(group, s.id)
	if len(group) == 0 {
		delete(h.subs, s.restaurantID)
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	hub  *Hub
	sub  *subscriber
	once sync.Once
}

// Unsubscribe detaches the subscriber and waits for any running callback
// to return. No callback fires after it returns. It must not be called from
// inside one of the subscription's own callbacks.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s.sub)
		s.sub.shutdown()
		s.hub.logger.Debug("feed subscriber removed", "restaurant_id", s.sub.restaurantID, "subscriber", s.sub.id)
	})
}

// Done is closed once the subscription has stopped delivering.
func (s *Subscription) Done() <-chan struct{} {
	return s.sub.done
}

type subscriber struct {
	id           uint64
	restaurantID string
	handlers     Handlers
	limit        int
	logger       apt.Logger

	mu     sync.Mutex
	queue  []event.OrderEvent
	resync bool

	signal   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newSubscriber(id uint64, restaurantID string, handlers Handlers, limit int, logger apt.Logger) *subscriber {
	return &subscriber{
		id:           id,
		restaurantID: restaurantID,
		handlers:     handlers,
		limit:        limit,
		logger:       logger,
		signal:       make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// push queues evt and reports whether the queue overflowed.
func (s *subscriber) push(evt event.OrderEvent) bool {
	s.mu.Lock()
	overflow := len(s.queue) >= s.limit
	if overflow {
		s.queue = nil
		s.resync = true
	} else {
		s.queue = append(s.queue, evt)
	}
	s.mu.Unlock()

	s.notify()
	return overflow
}

func (s *subscriber) requestResync() {
	s.mu.Lock()
	s.queue = nil
	s.resync = true
	s.mu.Unlock()

	s.notify()
}

func (s *subscriber) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() ([]event.OrderEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, resync := s.queue, s.resync
	s.queue, s.resync = nil, false
	return batch, resync
}

func (s *subscriber) shutdown() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *subscriber) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *subscriber) run() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-s.signal:
		}

		for {
			batch, resync := s.take()
			if !resync && len(batch) == 0 {
				break
			}
			if resync {
				if s.stopped() {
					return
				}
				s.invoke(func() {
					if s.handlers.OnResync != nil {
						s.handlers.OnResync()
					}
				})
			}
			for _, evt := range batch {
				if s.stopped() {
					return
				}
				s.deliver(evt)
			}
		}
	}
}

func (s *subscriber) deliver(evt event.OrderEvent) {
	s.invoke(func() {
		switch {
		case evt.Added != nil && s.handlers.OnAdded != nil:
			s.handlers.OnAdded(*evt.Added)
		case evt.Updated != nil && s.handlers.OnUpdated != nil:
			s.handlers.OnUpdated(*evt.Updated)
		case evt.Deleted != nil && s.handlers.OnDeleted != nil:
			s.handlers.OnDeleted(*evt.Deleted)
		}
	})
}

func (s *subscriber) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("feed callback panicked", "restaurant_id", s.restaurantID, "subscriber", s.id, "panic", r)
		}
	}()
	fn()
}
