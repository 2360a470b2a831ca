package order

import (
	"context"
	"errors"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/google/uuid"
)

func seededOrder(repo *MockOrderRepo, status string) *Order {
	o := NewOrder()
	o.RestaurantID = testRestaurantID
	o.TableID = testTableID
	o.OrderNumber = "ORD-001"
	o.Status = status
	o.BeforeCreate()
	repo.Put(o)
	return o
}

func TestStatusServiceUpdateStatus(t *testing.T) {
	tests := []struct {
		name            string
		from            string
		target          string
		expectedVersion int
		wantErr         error
		wantStatus      string
	}{
		{
			name:            "forwardStep",
			from:            "pending",
			target:          "preparing",
			expectedVersion: 1,
			wantStatus:      "preparing",
		},
		{
			name:            "anyVersion",
			from:            "ready",
			target:          "served",
			expectedVersion: AnyVersion,
			wantStatus:      "served",
		},
		{
			name:            "staleVersion",
			from:            "pending",
			target:          "preparing",
			expectedVersion: 7,
			wantErr:         ErrVersionConflict,
			wantStatus:      "pending",
		},
		{
			name:            "regression",
			from:            "ready",
			target:          "pending",
			expectedVersion: 1,
			wantErr:         ErrInvalidTransition,
			wantStatus:      "ready",
		},
		{
			name:            "unknownStatus",
			from:            "pending",
			target:          "cancelled",
			expectedVersion: 1,
			wantErr:         ErrInvalidStatus,
			wantStatus:      "pending",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockOrderRepo()
			pub := NewMockPublisher()
			svc := NewStatusService(repo, pub, apt.NewNoopLogger())
			o := seededOrder(repo, tt.from)

			_, err := svc.UpdateStatus(context.Background(), o.ID, tt.target, tt.expectedVersion)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UpdateStatus() error = %v, want %v", err, tt.wantErr)
				}
				if pub.Count() != 0 {
					t.Errorf("published %d events on failure, want 0", pub.Count())
				}
			} else if err != nil {
				t.Fatalf("UpdateStatus() unexpected error = %v", err)
			}

			stored, _ := repo.Get(context.Background(), o.ID)
			if stored.Status != tt.wantStatus {
				t.Errorf("stored Status = %q, want %q", stored.Status, tt.wantStatus)
			}
		})
	}
}

func TestStatusServiceConcurrentWritersConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewMockOrderRepo()
	svc := NewStatusService(repo, NewMockPublisher(), nil)
	o := seededOrder(repo, "ready")

	if _, err := svc.UpdateStatus(ctx, o.ID, "served", 1); err != nil {
		t.Fatalf("first writer error = %v", err)
	}

	_, err := svc.UpdateStatus(ctx, o.ID, "served", 1)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("second writer error = %v, want ErrVersionConflict", err)
	}

	stored, _ := repo.Get(ctx, o.ID)
	if stored.Version != 2 {
		t.Errorf("Version = %d, want 2", stored.Version)
	}
}

func TestStatusServiceLostRaceInStorage(t *testing.T) {
	ctx := context.Background()
	repo := NewMockOrderRepo()
	svc := NewStatusService(repo, NewMockPublisher(), nil)
	o := seededOrder(repo, "pending")

	repo.UpdateFunc = func(ctx context.Context, order *Order, expectedVersion int) error {
		return ErrVersionConflict
	}

	_, err := svc.UpdateStatus(ctx, o.ID, "preparing", AnyVersion)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("UpdateStatus() error = %v, want ErrVersionConflict", err)
	}
}

func TestStatusServicePublishesUpdatedEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewMockOrderRepo()
	pub := NewMockPublisher()
	svc := NewStatusService(repo, pub, nil)
	o := seededOrder(repo, "pending")

	updated, err := svc.UpdateStatus(ctx, o.ID, "preparing", 1)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	if pub.Count() != 1 {
		t.Fatalf("published %d events, want 1", pub.Count())
	}
	evt, err := event.DecodeOrderEvent(pub.Published[0].Data)
	if err != nil {
		t.Fatalf("DecodeOrderEvent() error = %v", err)
	}
	if evt.Updated == nil {
		t.Fatalf("event kind = %q, want updated", evt.Kind)
	}
	if evt.Updated.Status != "preparing" || evt.Updated.PreviousStatus != "pending" {
		t.Errorf("updated event status = %q from %q", evt.Updated.Status, evt.Updated.PreviousStatus)
	}
	if evt.Updated.Version != updated.Version {
		t.Errorf("event Version = %d, want %d", evt.Updated.Version, updated.Version)
	}
}

func TestStatusServiceUpdatePriority(t *testing.T) {
	ctx := context.Background()
	repo := NewMockOrderRepo()
	pub := NewMockPublisher()
	svc := NewStatusService(repo, pub, nil)
	o := seededOrder(repo, "preparing")

	updated, err := svc.UpdatePriority(ctx, o.ID, "high")
	if err != nil {
		t.Fatalf("UpdatePriority() error = %v", err)
	}
	if updated.Priority != "high" || updated.Status != "preparing" {
		t.Errorf("order = %s/%s, want preparing/high", updated.Status, updated.Priority)
	}

	if _, err := svc.UpdatePriority(ctx, o.ID, "high"); err != nil {
		t.Fatalf("repeated UpdatePriority() error = %v", err)
	}
	if pub.Count() != 1 {
		t.Errorf("published %d events, want 1", pub.Count())
	}

	if _, err := svc.UpdatePriority(ctx, o.ID, "urgent"); !errors.Is(err, ErrInvalidPriority) {
		t.Errorf("UpdatePriority(urgent) error = %v, want ErrInvalidPriority", err)
	}
}

func TestStatusServiceBulkUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMockOrderRepo()
	pub := NewMockPublisher()
	svc := NewStatusService(repo, pub, nil)

	first := seededOrder(repo, "pending")
	second := seededOrder(repo, "ready")
	other := seededOrder(repo, "pending")
	other.RestaurantID = uuid.New()
	repo.Put(other)
	missing := uuid.New()

	results := svc.BulkUpdateStatus(ctx, testRestaurantID, []uuid.UUID{first.ID, second.ID, other.ID, missing}, "preparing")

	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	if results[0].Err != nil || results[0].Order.Status != "preparing" {
		t.Errorf("first result = %+v, want preparing", results[0])
	}
	if !errors.Is(results[1].Err, ErrInvalidTransition) {
		t.Errorf("second result error = %v, want ErrInvalidTransition", results[1].Err)
	}
	if !errors.Is(results[2].Err, ErrNotFound) {
		t.Errorf("other restaurant result error = %v, want ErrNotFound", results[2].Err)
	}
	if !errors.Is(results[3].Err, ErrNotFound) {
		t.Errorf("missing result error = %v, want ErrNotFound", results[3].Err)
	}
	if pub.Count() != 1 {
		t.Errorf("published %d events, want 1", pub.Count())
	}

	stored, _ := repo.Get(ctx, other.ID)
	if stored.Status != "pending" {
		t.Errorf("other restaurant order Status = %q, want pending", stored.Status)
	}
}

func TestStatusServiceDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMockOrderRepo()
	pub := NewMockPublisher()
	svc := NewStatusService(repo, pub, nil)
	o := seededOrder(repo, "completed")

	if err := svc.Delete(ctx, o.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	if pub.Count() != 1 {
		t.Fatalf("published %d events, want 1", pub.Count())
	}
	evt, err := event.DecodeOrderEvent(pub.Published[0].Data)
	if err != nil || evt.Deleted == nil {
		t.Fatalf("DecodeOrderEvent() = %+v, %v, want deleted event", evt, err)
	}
}
