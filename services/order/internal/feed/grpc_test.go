package feed

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startFeedServer(t *testing.T, hub *Hub) *GRPCClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	NewGRPCServer(hub, nil).RegisterGRPCService(server)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewGRPCClient(conn)
}

func TestGRPCServerStreamsEvents(t *testing.T) {
	hub := NewHub(0, nil)
	defer hub.Close()
	client := startFeedServer(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	recv, err := client.Subscribe(ctx, restaurantX)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	waitFor(t, func() bool { return hub.SubscriberCount(restaurantX) == 1 })
	hub.Dispatch(updatedEvent(restaurantX, orderA, "ready", 3))
	hub.Resync(restaurantX)

	got, err := recv()
	if err != nil {
		t.Fatalf("recv() error = %v", err)
	}
	if got.Type != MessageUpdated {
		t.Errorf("Type = %q, want %q", got.Type, MessageUpdated)
	}
	if got.Payload["order_id"] != orderA || got.Payload["status"] != "ready" {
		t.Errorf("Payload = %v", got.Payload)
	}
	if v, _ := got.Payload["version"].(float64); v != 3 {
		t.Errorf("version = %v, want 3", got.Payload["version"])
	}

	got, err = recv()
	if err != nil {
		t.Fatalf("recv() error = %v", err)
	}
	if got.Type != MessageResync {
		t.Errorf("Type = %q, want %q", got.Type, MessageResync)
	}

	cancel()
	waitFor(t, func() bool { return hub.SubscriberCount(restaurantX) == 0 })
}

func TestGRPCServerRejectsInvalidRestaurant(t *testing.T) {
	hub := NewHub(0, nil)
	defer hub.Close()
	client := startFeedServer(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	recv, err := client.Subscribe(ctx, "not-a-uuid")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	_, err = recv()
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("recv() error = %v, want InvalidArgument", err)
	}
}
