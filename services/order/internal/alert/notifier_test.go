package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/board"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

var restaurantID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440500")

var orderIDs = func() []uuid.UUID {
	ids := make([]uuid.UUID, 16)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}()

// snapshotWith shows the first pending orders of orderIDs in the New lane.
func snapshotWith(id uuid.UUID, pending int, loaded bool) board.Snapshot {
	return snapshotOf(id, loaded, orderIDs[:pending], nil)
}

func snapshotOf(id uuid.UUID, loaded bool, pending, preparing []uuid.UUID) board.Snapshot {
	cards := func(status string, ids []uuid.UUID) []board.Card {
		out := make([]board.Card, 0, len(ids))
		for _, oid := range ids {
			out = append(out, board.Card{OrderID: oid, Status: status})
		}
		return out
	}
	return board.Snapshot{
		RestaurantID: id,
		Loaded:       loaded,
		Lanes: []board.Lane{
			{Status: "pending", Label: "New", Count: len(pending), Cards: cards("pending", pending)},
			{Status: "preparing", Label: "Preparing", Count: len(preparing), Cards: cards("preparing", preparing)},
			{Status: "ready", Label: "Ready", Cards: []board.Card{}},
		},
	}
}

func drain(t *testing.T, n *Notifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestNotifierFiresOncePerGrowth(t *testing.T) {
	tests := []struct {
		name    string
		counts  []int
		wantNew []int
	}{
		{name: "baselineOnly", counts: []int{3}, wantNew: nil},
		{name: "singleNewOrder", counts: []int{1, 2}, wantNew: []int{1}},
		{name: "batchedOrdersFireOnce", counts: []int{0, 3}, wantNew: []int{3}},
		{name: "shrinkDoesNotFire", counts: []int{3, 1, 1}, wantNew: nil},
		{name: "growAfterShrink", counts: []int{2, 0, 1, 1, 4}, wantNew: []int{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := NewMockSink()
			n := NewNotifier(NewMemoryMuteStore(), []Sink{sink}, nil)

			for _, c := range tt.counts {
				n.ObserveSnapshot(snapshotWith(restaurantID, c, true))
				drain(t, n)
			}

			got := sink.all()
			if len(got) != len(tt.wantNew) {
				t.Fatalf("alerts = %d, want %d", len(got), len(tt.wantNew))
			}
			for i, want := range tt.wantNew {
				if got[i].NewOrders != want {
					t.Errorf("alert[%d].NewOrders = %d, want %d", i, got[i].NewOrders, want)
				}
				if got[i].RestaurantID != restaurantID.String() {
					t.Errorf("alert[%d].RestaurantID = %s", i, got[i].RestaurantID)
				}
			}
		})
	}
}

func TestNotifierIgnoresUnloadedSnapshots(t *testing.T) {
	sink := NewMockSink()
	n := NewNotifier(nil, []Sink{sink}, nil)

	n.ObserveSnapshot(snapshotWith(restaurantID, 0, false))
	n.ObserveSnapshot(snapshotWith(restaurantID, 2, true))
	drain(t, n)

	if len(sink.all()) != 0 {
		t.Errorf("alerts = %d, want 0 for the first loaded snapshot", len(sink.all()))
	}
}

func TestNotifierTracksRestaurantsSeparately(t *testing.T) {
	sink := NewMockSink()
	n := NewNotifier(nil, []Sink{sink}, nil)
	other := uuid.New()

	n.ObserveSnapshot(snapshotWith(restaurantID, 1, true))
	n.ObserveSnapshot(snapshotWith(other, 5, true))
	n.ObserveSnapshot(snapshotWith(restaurantID, 2, true))
	drain(t, n)

	got := sink.all()
	if len(got) != 1 || got[0].RestaurantID != restaurantID.String() || got[0].PendingCount != 2 {
		t.Errorf("alerts = %+v, want one for %s", got, restaurantID)
	}
}

func TestNotifierRespectsMute(t *testing.T) {
	mutes := NewMemoryMuteStore()
	_ = mutes.SetMuted(context.Background(), restaurantID, true)
	sink := NewMockSink()
	n := NewNotifier(mutes, []Sink{sink}, nil)

	n.ObserveSnapshot(snapshotWith(restaurantID, 0, true))
	n.ObserveSnapshot(snapshotWith(restaurantID, 1, true))
	drain(t, n)
	if len(sink.all()) != 0 {
		t.Fatalf("muted restaurant got %d alerts", len(sink.all()))
	}

	_ = mutes.SetMuted(context.Background(), restaurantID, false)
	n.ObserveSnapshot(snapshotWith(restaurantID, 2, true))
	drain(t, n)
	if len(sink.all()) != 1 {
		t.Errorf("alerts after unmute = %d, want 1", len(sink.all()))
	}
}

func TestNotifierSwallowsSinkFailures(t *testing.T) {
	failing := NewMockSink()
	failing.SendFunc = func(context.Context, event.NewOrdersAlert) error { return errors.New("speaker unplugged") }
	ok := NewMockSink()
	mutes := &MockMuteStore{MutedFunc: func(context.Context, uuid.UUID) (bool, error) {
		return false, errors.New("redis down")
	}}
	n := NewNotifier(mutes, []Sink{failing, ok}, nil)

	n.ObserveSnapshot(snapshotWith(restaurantID, 0, true))
	n.ObserveSnapshot(snapshotWith(restaurantID, 1, true))
	drain(t, n)

	if len(failing.all()) != 1 || len(ok.all()) != 1 {
		t.Errorf("sink calls = %d and %d, want 1 each", len(failing.all()), len(ok.all()))
	}
}

func TestNotifierComparesOrdersNotCounts(t *testing.T) {
	a, b, c := orderIDs[0], orderIDs[1], orderIDs[2]
	tests := []struct {
		name    string
		steps   []board.Snapshot
		wantNew []int
	}{
		{
			name: "replacedOrderSameCount",
			steps: []board.Snapshot{
				snapshotOf(restaurantID, true, []uuid.UUID{a, b}, nil),
				snapshotOf(restaurantID, true, []uuid.UUID{a, c}, nil),
			},
			wantNew: []int{1},
		},
		{
			name: "rolledBackAdvance",
			steps: []board.Snapshot{
				snapshotOf(restaurantID, true, []uuid.UUID{a}, nil),
				snapshotOf(restaurantID, true, nil, []uuid.UUID{a}),
				snapshotOf(restaurantID, true, []uuid.UUID{a}, nil),
			},
			wantNew: nil,
		},
		{
			name: "rollbackWithNewArrival",
			steps: []board.Snapshot{
				snapshotOf(restaurantID, true, []uuid.UUID{a}, nil),
				snapshotOf(restaurantID, true, nil, []uuid.UUID{a}),
				snapshotOf(restaurantID, true, []uuid.UUID{a, b}, nil),
			},
			wantNew: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := NewMockSink()
			n := NewNotifier(nil, []Sink{sink}, nil)

			for _, s := range tt.steps {
				n.ObserveSnapshot(s)
				drain(t, n)
			}

			got := sink.all()
			if len(got) != len(tt.wantNew) {
				t.Fatalf("alerts = %+v, want %d", got, len(tt.wantNew))
			}
			for i, want := range tt.wantNew {
				if got[i].NewOrders != want {
					t.Errorf("alert[%d].NewOrders = %d, want %d", i, got[i].NewOrders, want)
				}
			}
		})
	}
}

// A kitchen screen advances an order whose write is refused. The card goes
// to Preparing and back to New without the chime sounding.
func TestNotifierSilentOnBoardRollback(t *testing.T) {
	o := order.NewOrder()
	o.RestaurantID = restaurantID
	o.OrderNumber = "ORD-020"
	o.Status = "pending"
	o.BeforeCreate()

	orders := &MockOrderSource{Order: *o}
	writer := &MockStatusWriter{UpdateStatusFunc: func(context.Context, uuid.UUID, string, int) (*order.Order, error) {
		return nil, order.ErrVersionConflict
	}}
	sink := NewMockSink()
	n := NewNotifier(nil, []Sink{sink}, nil)

	b := board.New(restaurantID, board.Deps{Orders: orders, Writer: writer, Observers: []board.Observer{n}}, board.Config{Tick: time.Hour}, nil)
	b.Start()
	defer b.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s, err := b.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if s.Loaded {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("board never loaded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	p, err := b.Advance(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if _, err := p.Wait(context.Background()); !errors.Is(err, order.ErrVersionConflict) {
		t.Fatalf("Wait() error = %v, want ErrVersionConflict", err)
	}
	s, _ := b.Snapshot(context.Background())
	if s.Count("pending") != 1 {
		t.Fatalf("pending count = %d, want 1 after rollback", s.Count("pending"))
	}

	b.Stop()
	drain(t, n)
	if got := sink.all(); len(got) != 0 {
		t.Errorf("alerts = %+v, want none for a rolled back card", got)
	}
}
