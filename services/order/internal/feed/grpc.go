package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const subscribeMethod = "/tableside.OrderFeed/Subscribe"

// OrderFeedServer is the server side of tableside.OrderFeed. Requests and
// events travel as google.protobuf.Struct so remote displays need no
// generated code beyond the well-known types.
type OrderFeedServer interface {
	Subscribe(req *structpb.Struct, stream grpc.ServerStream) error
}

var orderFeedServiceDesc = grpc.ServiceDesc{
	ServiceName: "tableside.OrderFeed",
	HandlerType: (*OrderFeedServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tableside/feed.proto",
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(OrderFeedServer).Subscribe(req, stream)
}

// GRPCServer streams hub messages to remote kitchen displays.
type GRPCServer struct {
	hub    *Hub
	logger apt.Logger
}

func NewGRPCServer(hub *Hub, logger apt.Logger) *GRPCServer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &GRPCServer{hub: hub, logger: logger.With("component", "feed-grpc")}
}

// RegisterGRPCService registers this service with the gRPC server.
func (s *GRPCServer) RegisterGRPCService(server *grpc.Server) {
	server.RegisterService(&orderFeedServiceDesc, s)
}

func (s *GRPCServer) Subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	restaurantID := req.GetFields()["restaurant_id"].GetStringValue()
	if _, err := uuid.Parse(restaurantID); err != nil {
		return status.Error(codes.InvalidArgument, "restaurant_id must be a uuid")
	}

	ctx := stream.Context()
	s.logger.Info("new order feed subscriber", "restaurant_id", restaurantID)
	defer s.logger.Info("order feed subscriber disconnected", "restaurant_id", restaurantID)

	for msg := range s.hub.Stream(ctx, restaurantID) {
		out, err := toStruct(msg, restaurantID)
		if err != nil {
			s.logger.Error("cannot encode feed message", "error", err)
			continue
		}
		if err := stream.SendMsg(out); err != nil {
			s.logger.Errorf("failed to send event: %v", err)
			return err
		}
	}
	return ctx.Err()
}

func toStruct(msg Message, restaurantID string) (*structpb.Struct, error) {
	data, err := msg.Payload(restaurantID)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	fields["type"] = msg.Type
	return structpb.NewStruct(fields)
}

// GRPCClient subscribes to a remote OrderFeed.
type GRPCClient struct {
	conn grpc.ClientConnInterface
}

func NewGRPCClient(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// RemoteEvent is one message received from a remote feed.
type RemoteEvent struct {
	Type    string
	Payload map[string]interface{}
}

// Subscribe opens the stream and returns a receive function. recv returns
// the stream error, io.EOF included, when the stream ends.
func (c *GRPCClient) Subscribe(ctx context.Context, restaurantID string) (recv func() (RemoteEvent, error), err error) {
	stream, err := c.conn.NewStream(ctx, &orderFeedServiceDesc.Streams[0], subscribeMethod)
	if err != nil {
		return nil, fmt.Errorf("cannot open order feed stream: %w", err)
	}

	req, err := structpb.NewStruct(map[string]interface{}{"restaurant_id": restaurantID})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("cannot send subscribe request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("cannot close subscribe request: %w", err)
	}

	return func() (RemoteEvent, error) {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			return RemoteEvent{}, err
		}
		payload := msg.AsMap()
		kind, _ := payload["type"].(string)
		return RemoteEvent{Type: kind, Payload: payload}, nil
	}, nil
}
