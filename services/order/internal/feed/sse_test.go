package feed

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestSSEHandlerStreamsRestaurantEvents(t *testing.T) {
	hub := NewHub(0, nil)
	defer hub.Close()

	r := chi.NewRouter()
	NewSSEHandler(hub, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/restaurants/"+restaurantX+"/feed", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET feed error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	waitFor(t, func() bool { return hub.SubscriberCount(restaurantX) == 1 })
	hub.Dispatch(addedEvent(restaurantY, orderB))
	hub.Dispatch(addedEvent(restaurantX, orderA))

	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	for eventLine == "" || dataLine == "" {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && eventLine != "":
			dataLine = strings.TrimPrefix(line, "data: ")
		}
	}

	if eventLine != MessageAdded {
		t.Errorf("event = %q, want %q", eventLine, MessageAdded)
	}
	if !strings.Contains(dataLine, orderA) || strings.Contains(dataLine, orderB) {
		t.Errorf("data = %s, want only order %s", dataLine, orderA)
	}

	cancel()
	waitFor(t, func() bool { return hub.SubscriberCount(restaurantX) == 0 })
}

func TestSSEHandlerRejectsInvalidRestaurant(t *testing.T) {
	hub := NewHub(0, nil)
	defer hub.Close()

	r := chi.NewRouter()
	NewSSEHandler(hub, nil).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/restaurants/not-a-uuid/feed", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
