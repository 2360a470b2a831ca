package board

import (
	"sort"
	"time"

	"github.com/appetiteclub/tableside/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableside/pkg/enums/priority"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

// Snapshot is one render of the board.
type Snapshot struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Lanes        []Lane    `json:"lanes"`
	Loaded       bool      `json:"loaded"`
	GeneratedAt  time.Time `json:"generated_at"`
}

type Lane struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Cards  []Card `json:"cards"`
}

type Card struct {
	OrderID             uuid.UUID    `json:"order_id"`
	OrderNumber         string       `json:"order_number"`
	TableID             uuid.UUID    `json:"table_id"`
	CustomerName        string       `json:"customer_name,omitempty"`
	Status              string       `json:"status"`
	Priority            string       `json:"priority"`
	Items               []order.Item `json:"items"`
	ItemCount           int          `json:"item_count"`
	SpecialInstructions string       `json:"special_instructions,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	AgeSeconds          int64        `json:"age_seconds"`
	Stale               bool         `json:"stale"`
	Syncing             bool         `json:"syncing"`
	Version             int          `json:"version"`
}

// Lane returns the lane for status, or an empty lane.
func (s Snapshot) Lane(status string) Lane {
	for _, l := range s.Lanes {
		if l.Status == status {
			return l
		}
	}
	return Lane{Status: status}
}

// Count is the number of cards shown in a lane.
func (s Snapshot) Count(status string) int {
	return s.Lane(status).Count
}

// Find returns the card for an order and whether it is on the board.
func (s Snapshot) Find(orderID uuid.UUID) (Card, bool) {
	for _, l := range s.Lanes {
		for _, c := range l.Cards {
			if c.OrderID == orderID {
				return c, true
			}
		}
	}
	return Card{}, false
}

func laneLabel(s orderstatus.Status) string {
	if s.Name == orderstatus.Statuses.Pending.Name {
		return "New"
	}
	return s.Label()
}

func buildSnapshot(restaurantID uuid.UUID, orders map[uuid.UUID]order.Order, pending map[uuid.UUID]*command, loaded bool, now time.Time, staleAfter time.Duration) Snapshot {
	lanes := make([]Lane, 0, len(orderstatus.Active))
	index := make(map[string]int, len(orderstatus.Active))
	for i, s := range orderstatus.Active {
		lanes = append(lanes, Lane{Status: s.Code(), Label: laneLabel(s), Cards: []Card{}})
		index[s.Code()] = i
	}

	for id, o := range orders {
		status := o.Status
		cmd, syncing := pending[id]
		if syncing {
			status = cmd.target.Code()
		}
		i, ok := index[status]
		if !ok {
			continue
		}

		age := now.Sub(o.CreatedAt)
		if age < 0 {
			age = 0
		}
		limit := staleAfter
		if o.EstimatedTimeMinutes > 0 {
			limit = time.Duration(o.EstimatedTimeMinutes) * time.Minute
		}

		lanes[i].Cards = append(lanes[i].Cards, Card{
			OrderID:             o.ID,
			OrderNumber:         o.OrderNumber,
			TableID:             o.TableID,
			CustomerName:        o.CustomerName,
			Status:              status,
			Priority:            o.Priority,
			Items:               o.Items,
			ItemCount:           o.TotalItems(),
			SpecialInstructions: o.SpecialInstructions,
			CreatedAt:           o.CreatedAt,
			AgeSeconds:          int64(age / time.Second),
			Stale:               limit > 0 && age > limit,
			Syncing:             syncing,
			Version:             o.Version,
		})
	}

	for i := range lanes {
		sortCards(lanes[i].Cards)
		lanes[i].Count = len(lanes[i].Cards)
	}

	return Snapshot{
		RestaurantID: restaurantID,
		Lanes:        lanes,
		Loaded:       loaded,
		GeneratedAt:  now,
	}
}

// sortCards puts high priority first, then the oldest orders.
func sortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		wi, wj := priority.WeightOf(cards[i].Priority), priority.WeightOf(cards[j].Priority)
		if wi != wj {
			return wi > wj
		}
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.Before(cards[j].CreatedAt)
		}
		return cards[i].OrderNumber < cards[j].OrderNumber
	})
}
