package postgres

import (
	"reflect"
	"testing"

	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

func TestOrderWhere(t *testing.T) {
	restaurantID := uuid.New()
	tableID := uuid.New()

	tests := []struct {
		name      string
		filter    order.OrderFilter
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "noFilter",
			filter:    order.OrderFilter{},
			wantWhere: "",
		},
		{
			name:      "activeLanes",
			filter:    order.OrderFilter{RestaurantID: restaurantID, Statuses: []string{"pending", "preparing", "ready"}},
			wantWhere: " WHERE restaurant_id = $1 AND status = ANY($2)",
			wantArgs:  []interface{}{restaurantID, []string{"pending", "preparing", "ready"}},
		},
		{
			name:      "allFields",
			filter:    order.OrderFilter{RestaurantID: restaurantID, TableID: tableID, Statuses: []string{"served"}},
			wantWhere: " WHERE restaurant_id = $1 AND table_id = $2 AND status = ANY($3)",
			wantArgs:  []interface{}{restaurantID, tableID, []string{"served"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := orderWhere(tt.filter)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "total", in: "41.46", want: "41.46"},
		{name: "rate", in: "7.70", want: "7.7"},
		{name: "garbage", in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMoney(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMoney() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("parseMoney() = %s, want %s", got, tt.want)
			}
		})
	}
}
