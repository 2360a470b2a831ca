package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/board"
	"github.com/google/uuid"
)

const sinkTimeout = 5 * time.Second

// Sink delivers an alert to wherever the sound is played.
type Sink interface {
	Send(ctx context.Context, alert event.NewOrdersAlert) error
}

// Notifier watches board snapshots and raises one alert each time orders
// the previous snapshot of the same restaurant did not show arrive in the
// New lane. A card moving between lanes, including a rolled back advance,
// is not new.
type Notifier struct {
	mutes  MuteStore
	sinks  []Sink
	logger apt.Logger
	now    func() time.Time

	mu    sync.Mutex
	known map[uuid.UUID]map[uuid.UUID]struct{}
	wg    sync.WaitGroup
}

func NewNotifier(mutes MuteStore, sinks []Sink, logger apt.Logger) *Notifier {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if mutes == nil {
		mutes = NewMemoryMuteStore()
	}
	return &Notifier{
		mutes:  mutes,
		sinks:  sinks,
		logger: logger.With("component", "alert-notifier"),
		now:    time.Now,
		known:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// ObserveSnapshot runs on the board goroutine. The first loaded snapshot of
// a restaurant only sets the baseline.
func (n *Notifier) ObserveSnapshot(s board.Snapshot) {
	if !s.Loaded {
		return
	}
	onBoard := make(map[uuid.UUID]struct{})
	for _, lane := range s.Lanes {
		for _, c := range lane.Cards {
			onBoard[c.OrderID] = struct{}{}
		}
	}

	n.mu.Lock()
	prev, seen := n.known[s.RestaurantID]
	n.known[s.RestaurantID] = onBoard
	n.mu.Unlock()

	if !seen {
		return
	}
	pending := s.Lane(orderstatus.Statuses.Pending.Code())
	fresh := 0
	for _, c := range pending.Cards {
		if _, ok := prev[c.OrderID]; !ok {
			fresh++
		}
	}
	if fresh == 0 {
		return
	}

	alert := event.NewOrdersAlert{
		EventType:    event.EventNewOrdersAlert,
		OccurredAt:   n.now().UTC(),
		RestaurantID: s.RestaurantID.String(),
		NewOrders:    fresh,
		PendingCount: pending.Count,
		Message:      message(fresh),
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.fire(alert, s.RestaurantID)
	}()
}

func (n *Notifier) fire(alert event.NewOrdersAlert, restaurantID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	muted, err := n.mutes.Muted(ctx, restaurantID)
	if err != nil {
		n.logger.Error("cannot read mute flag", "restaurant_id", restaurantID.String(), "error", err)
	}
	if muted {
		n.logger.Debug("alert muted", "restaurant_id", restaurantID.String(), "new_orders", alert.NewOrders)
		return
	}

	for _, sink := range n.sinks {
		if err := sink.Send(ctx, alert); err != nil {
			n.logger.Error("alert sink failed", "restaurant_id", restaurantID.String(), "error", err)
		}
	}
}

// Stop waits for alerts already being delivered.
func (n *Notifier) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func message(newOrders int) string {
	if newOrders == 1 {
		return "1 new order"
	}
	return fmt.Sprintf("%d new orders", newOrders)
}
