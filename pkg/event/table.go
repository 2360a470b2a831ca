package event

import "time"

const (
	TableStatusTopic        = "tables.status"
	EventTableStatusChanged = "table.status.changed"
)

// TableStatusChangedEvent reports a staff change to a table. Orders placed
// at the table keep their own status.
type TableStatusChangedEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	RestaurantID   string    `json:"restaurant_id"`
	TableID        string    `json:"table_id"`
	TableNumber    string    `json:"table_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
}

func NewTableStatusChanged(restaurantID, tableID, number, status, previous string) TableStatusChangedEvent {
	return TableStatusChangedEvent{
		EventType:      EventTableStatusChanged,
		OccurredAt:     time.Now().UTC(),
		RestaurantID:   restaurantID,
		TableID:        tableID,
		TableNumber:    number,
		Status:         status,
		PreviousStatus: previous,
	}
}
