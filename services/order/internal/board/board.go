package board

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/feed"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

// OrderSource reads confirmed orders.
type OrderSource interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	List(ctx context.Context, filter order.OrderFilter) ([]*order.Order, error)
}

// StatusWriter persists status transitions.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, target string, expectedVersion int) (*order.Order, error)
}

// Observer receives every snapshot the board renders. It runs on the board
// goroutine and must return quickly.
type Observer interface {
	ObserveSnapshot(Snapshot)
}

type ObserverFunc func(Snapshot)

func (f ObserverFunc) ObserveSnapshot(s Snapshot) {
	f(s)
}

type Config struct {
	Tick          time.Duration
	StaleAfter    time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	IdleAfter     time.Duration
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = 15 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 20 * time.Minute
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = 30 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type Deps struct {
	Hub       *feed.Hub
	Orders    OrderSource
	Writer    StatusWriter
	Observers []Observer
}

// Board is the kitchen view of one restaurant. All state is owned by a
// single goroutine fed through inbox; feed events, commands, write results
// and clock ticks are applied in arrival order.
type Board struct {
	restaurantID uuid.UUID
	hub          *feed.Hub
	orders       OrderSource
	writer       StatusWriter
	observers    []Observer
	cfg          Config
	logger       apt.Logger

	inbox  chan interface{}
	ctx    context.Context
	cancel context.CancelFunc
	sub    *feed.Subscription
	done   chan struct{}
	start  sync.Once
	stop   sync.Once

	// owned by run
	state        map[uuid.UUID]order.Order
	pending      map[uuid.UUID]*command
	gone         map[uuid.UUID]time.Time
	touched      map[uuid.UUID]uint64
	seq          uint64
	loaded       bool
	loading      bool
	reloadQueued bool
	nextCmd      uint64
}

// tombstoneTTL bounds how long a finished or deleted order is remembered.
// Statuses only move forward, so a finished order never returns to the
// board; the tombstone stops late reads from putting it back.
const tombstoneTTL = time.Hour

func New(restaurantID uuid.UUID, deps Deps, cfg Config, logger apt.Logger) *Board {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Board{
		restaurantID: restaurantID,
		hub:          deps.Hub,
		orders:       deps.Orders,
		writer:       deps.Writer,
		observers:    deps.Observers,
		cfg:          cfg.withDefaults(),
		logger:       logger.With("component", "board", "restaurant_id", restaurantID.String()),
		inbox:        make(chan interface{}, 64),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		state:        make(map[uuid.UUID]order.Order),
		pending:      make(map[uuid.UUID]*command),
		gone:         make(map[uuid.UUID]time.Time),
		touched:      make(map[uuid.UUID]uint64),
	}
}

type (
	advanceMsg struct {
		orderID uuid.UUID
		reply   chan advanceReply
	}
	advanceReply struct {
		pending *Pending
		err     error
	}
	snapshotMsg struct {
		reply chan Snapshot
	}
	writeResult struct {
		cmd   *command
		order *order.Order
		err   error
	}
	fetchResult struct {
		orderID uuid.UUID
		order   *order.Order
		err     error
	}
	loadResult struct {
		orders   []*order.Order
		startSeq uint64
		err      error
	}
	addedMsg   struct{ evt event.OrderAddedEvent }
	updatedMsg struct{ evt event.OrderUpdatedEvent }
	deletedMsg struct{ evt event.OrderDeletedEvent }
	resyncMsg  struct{}
	tickMsg    struct{}
)

// Start subscribes to the feed and loads the active orders.
func (b *Board) Start() {
	b.start.Do(func() {
		if b.hub != nil {
			b.sub = b.hub.Subscribe(b.restaurantID.String(), feed.Handlers{
				OnAdded:   func(e event.OrderAddedEvent) { b.send(addedMsg{evt: e}) },
				OnUpdated: func(e event.OrderUpdatedEvent) { b.send(updatedMsg{evt: e}) },
				OnDeleted: func(e event.OrderDeletedEvent) { b.send(deletedMsg{evt: e}) },
				OnResync:  func() { b.send(resyncMsg{}) },
			})
		}
		go b.run()
		go b.clock()
		b.send(resyncMsg{})
	})
}

// Stop releases the feed subscription and waits for the board goroutine.
// Commands still in flight are rejected with ErrStopped.
func (b *Board) Stop() {
	b.stop.Do(func() {
		b.cancel()
		if b.sub != nil {
			b.sub.Unsubscribe()
		}
	})
	// A board that never started has no goroutine to wait for.
	b.start.Do(func() { close(b.done) })
	<-b.done
}

// Advance issues the single forward step for an order. The returned
// Pending already reflects the local application; Wait yields the
// confirmed or rejected outcome.
func (b *Board) Advance(ctx context.Context, orderID uuid.UUID) (*Pending, error) {
	reply := make(chan advanceReply, 1)
	if err := b.request(ctx, advanceMsg{orderID: orderID, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.pending, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, ErrStopped
	}
}

// Snapshot renders the board as it is now.
func (b *Board) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := b.request(ctx, snapshotMsg{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-b.done:
		return Snapshot{}, ErrStopped
	}
}

func (b *Board) request(ctx context.Context, msg interface{}) error {
	select {
	case b.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.ctx.Done():
		return ErrStopped
	}
}

func (b *Board) send(msg interface{}) {
	select {
	case b.inbox <- msg:
	case <-b.ctx.Done():
	}
}

func (b *Board) clock() {
	ticker := time.NewTicker(b.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.send(tickMsg{})
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Board) run() {
	defer close(b.done)
	defer b.rejectPending()

	for {
		select {
		case <-b.ctx.Done():
			return
		case msg := <-b.inbox:
			if b.handle(msg) {
				b.notify()
			}
		}
	}
}

// handle applies one message and reports whether observers should see a
// new snapshot.
func (b *Board) handle(msg interface{}) bool {
	switch m := msg.(type) {
	case advanceMsg:
		p, err := b.advance(m.orderID)
		if err == nil {
			b.notify()
		}
		m.reply <- advanceReply{pending: p, err: err}
		return false
	case snapshotMsg:
		m.reply <- b.snapshot()
		return false
	case writeResult:
		b.applyWrite(m)
	case fetchResult:
		b.applyFetch(m)
	case loadResult:
		b.applyLoad(m)
	case addedMsg:
		b.onAdded(m.evt)
	case updatedMsg:
		b.onUpdated(m.evt)
	case deletedMsg:
		b.onDeleted(m.evt)
	case resyncMsg:
		b.reload()
		return false
	case tickMsg:
		b.pruneTombstones()
		if !b.loaded && !b.loading {
			b.reload()
		}
	}
	return true
}

func (b *Board) advance(orderID uuid.UUID) (*Pending, error) {
	o, ok := b.state[orderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	if _, busy := b.pending[orderID]; busy {
		return nil, ErrCommandInFlight
	}

	from := o.CurrentStatus()
	target, ok := from.Next()
	if !ok {
		return nil, ErrTerminal
	}

	b.nextCmd++
	cmd := &command{
		id:          b.nextCmd,
		orderID:     orderID,
		from:        from,
		target:      target,
		baseVersion: o.Version,
		issuedAt:    b.cfg.Now(),
	}
	cmd.pending = newPending(cmd.outcome(AppliedLocally))
	b.pending[orderID] = cmd

	b.logger.Info("status command applied locally", "order_number", o.OrderNumber, "from", from.Code(), "to", target.Code())
	go b.write(cmd)
	return cmd.pending, nil
}

// write persists cmd, retrying transient failures with exponential
// backoff, and reports back through the inbox.
func (b *Board) write(cmd *command) {
	backoff := b.cfg.RetryBackoff
	var (
		o   *order.Order
		err error
	)
	for attempt := 1; ; attempt++ {
		o, err = b.writer.UpdateStatus(b.ctx, cmd.orderID, cmd.target.Code(), cmd.baseVersion)
		if err == nil || !transient(err) || attempt >= b.cfg.RetryAttempts {
			break
		}
		b.logger.Info("status write failed, retrying", "order_id", cmd.orderID.String(), "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-b.ctx.Done():
			return
		}
	}
	b.send(writeResult{cmd: cmd, order: o, err: err})
}

func (b *Board) applyWrite(r writeResult) {
	if current, ok := b.pending[r.cmd.orderID]; ok && current.id == r.cmd.id {
		delete(b.pending, r.cmd.orderID)
	}

	if r.err != nil {
		b.logger.Info("status command rejected", "order_id", r.cmd.orderID.String(), "to", r.cmd.target.Code(), "error", r.err)
		r.cmd.reject(r.err)
		go b.fetch(r.cmd.orderID)
		return
	}

	b.apply(*r.order)
	r.cmd.confirm(r.order)
}

// apply stores a confirmed record unless a newer version is already known
// or the order has already left the board.
func (b *Board) apply(o order.Order) {
	if _, gone := b.gone[o.ID]; gone {
		return
	}
	if current, ok := b.state[o.ID]; ok && current.Version > o.Version {
		return
	}
	if !o.CurrentStatus().IsActive() {
		b.remove(o.ID)
		return
	}
	b.seq++
	b.touched[o.ID] = b.seq
	b.state[o.ID] = o
}

// remove takes an order off the board for good.
func (b *Board) remove(id uuid.UUID) {
	delete(b.state, id)
	delete(b.touched, id)
	b.gone[id] = b.cfg.Now()
}

func (b *Board) pruneTombstones() {
	cutoff := b.cfg.Now().Add(-tombstoneTTL)
	for id, at := range b.gone {
		if at.Before(cutoff) {
			delete(b.gone, id)
		}
	}
}

func (b *Board) fetch(orderID uuid.UUID) {
	o, err := b.orders.Get(b.ctx, orderID)
	b.send(fetchResult{orderID: orderID, order: o, err: err})
}

func (b *Board) applyFetch(r fetchResult) {
	switch {
	case errors.Is(r.err, order.ErrNotFound):
		b.remove(r.orderID)
	case r.err != nil:
		b.logger.Error("cannot fetch order", "order_id", r.orderID.String(), "error", r.err)
	default:
		b.apply(*r.order)
	}
}

// reload lists the active orders from storage. A request made while a
// load is in flight runs once that load has been applied.
func (b *Board) reload() {
	if b.loading {
		b.reloadQueued = true
		return
	}
	b.loading = true
	startSeq := b.seq
	go func() {
		filter := order.OrderFilter{RestaurantID: b.restaurantID}
		for _, s := range orderstatus.Active {
			filter.Statuses = append(filter.Statuses, s.Code())
		}
		orders, err := b.orders.List(b.ctx, filter)
		b.send(loadResult{orders: orders, startSeq: startSeq, err: err})
	}()
}

// applyLoad merges a listing into the board. Entries the listing lacks are
// dropped only if nothing newer than the listing has touched them; feed
// events and fetches applied while the listing was in flight win.
func (b *Board) applyLoad(r loadResult) {
	b.loading = false
	defer func() {
		if b.reloadQueued {
			b.reloadQueued = false
			b.reload()
		}
	}()
	if r.err != nil {
		b.logger.Error("cannot load active orders", "error", r.err)
		return
	}

	listed := make(map[uuid.UUID]struct{}, len(r.orders))
	for _, o := range r.orders {
		listed[o.ID] = struct{}{}
		b.apply(*o)
	}
	for id := range b.state {
		if _, ok := listed[id]; ok {
			continue
		}
		if b.touched[id] <= r.startSeq {
			delete(b.state, id)
			delete(b.touched, id)
		}
	}
	b.loaded = true
	b.logger.Debug("board loaded", "orders", len(b.state))
}

func (b *Board) onAdded(evt event.OrderAddedEvent) {
	id, err := uuid.Parse(evt.OrderID)
	if err != nil {
		return
	}
	if _, known := b.state[id]; known {
		return
	}
	if _, gone := b.gone[id]; gone {
		return
	}
	go b.fetch(id)
}

func (b *Board) onUpdated(evt event.OrderUpdatedEvent) {
	id, err := uuid.Parse(evt.OrderID)
	if err != nil {
		return
	}

	if _, gone := b.gone[id]; gone {
		return
	}
	current, known := b.state[id]
	if !known {
		if s, ok := orderstatus.Parse(evt.Status); ok && s.IsActive() {
			go b.fetch(id)
		}
		return
	}
	if evt.Version <= current.Version {
		return
	}

	current.Status = evt.Status
	if evt.Priority != "" {
		current.Priority = evt.Priority
	}
	current.Version = evt.Version
	current.UpdatedAt = evt.UpdatedAt
	b.apply(current)
}

func (b *Board) onDeleted(evt event.OrderDeletedEvent) {
	id, err := uuid.Parse(evt.OrderID)
	if err != nil {
		return
	}
	b.remove(id)
}

func (b *Board) snapshot() Snapshot {
	return buildSnapshot(b.restaurantID, b.state, b.pending, b.loaded, b.cfg.Now(), b.cfg.StaleAfter)
}

func (b *Board) notify() {
	if len(b.observers) == 0 {
		return
	}
	s := b.snapshot()
	for _, o := range b.observers {
		o.ObserveSnapshot(s)
	}
}

func (b *Board) rejectPending() {
	for id, cmd := range b.pending {
		cmd.reject(ErrStopped)
		delete(b.pending, id)
	}
}
