package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func newTestRouter(t *testing.T, f *fixture) (*chi.Mux, *Registry) {
	t.Helper()
	reg := f.registry()
	t.Cleanup(func() { _ = reg.Stop(context.Background()) })
	r := chi.NewRouter()
	NewHandler(reg, nil).RegisterRoutes(r)
	return r, reg
}

func TestHandlerGetBoard(t *testing.T) {
	f := newFixture(false)
	f.seed(t, "ORD-001", "pending", time.Minute)
	f.seed(t, "ORD-002", "ready", time.Minute)
	router, reg := newTestRouter(t, f)
	b, _ := reg.Board(context.Background(), restaurantID)
	waitSnapshot(t, b, loaded)

	req := httptest.NewRequest(http.MethodGet, "/restaurants/"+restaurantID.String()+"/board", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data Snapshot `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Count("pending") != 1 || resp.Data.Count("ready") != 1 {
		t.Errorf("lanes = %+v", resp.Data.Lanes)
	}
}

func TestHandlerAdvance(t *testing.T) {
	tests := []struct {
		name       string
		orderID    func(o uuid.UUID) string
		query      string
		wantStatus int
	}{
		{
			name:       "acceptedWithoutWait",
			orderID:    func(o uuid.UUID) string { return o.String() },
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "confirmedWithWait",
			orderID:    func(o uuid.UUID) string { return o.String() },
			query:      "?wait=true",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknownOrder",
			orderID:    func(uuid.UUID) string { return uuid.New().String() },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalidOrderID",
			orderID:    func(uuid.UUID) string { return "nope" },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false)
			o := f.seed(t, "ORD-001", "pending", time.Minute)
			router, reg := newTestRouter(t, f)
			b, _ := reg.Board(context.Background(), restaurantID)
			waitSnapshot(t, b, loaded)

			path := "/restaurants/" + restaurantID.String() + "/board/orders/" + tt.orderID(o.ID) + "/advance" + tt.query
			req := httptest.NewRequest(http.MethodPost, path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestHandlerAdvanceConflict(t *testing.T) {
	f := newFixture(false)
	o := f.seed(t, "ORD-001", "pending", time.Minute)
	router, reg := newTestRouter(t, f)
	b, _ := reg.Board(context.Background(), restaurantID)
	waitSnapshot(t, b, loaded)

	if _, err := f.service.UpdateStatus(context.Background(), o.ID, "preparing", 1); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	path := "/restaurants/" + restaurantID.String() + "/board/orders/" + o.ID.String() + "/advance?wait=true"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestHandlerInvalidRestaurant(t *testing.T) {
	router, _ := newTestRouter(t, newFixture(false))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/restaurants/abc/board", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandlerUnknownRestaurant(t *testing.T) {
	f := newFixture(false)
	router, reg := newTestRouter(t, f)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/restaurants/"+uuid.New().String()+"/board", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want no board started", reg.Len())
	}
}
