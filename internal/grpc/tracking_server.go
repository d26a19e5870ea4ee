package grpcserver

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/orders"
	"foodDelivery/repository"
)

const (
	trackingServiceName = "fooddelivery.tracking.v1.OrderTracking"
	trackMethod         = "/" + trackingServiceName + "/Track"
	advanceMethod       = "/" + trackingServiceName + "/Advance"
)

// OrderTrackingServer is the server API of the OrderTracking service. Messages are
// protobuf well-known types so no generated code is needed.
type OrderTrackingServer interface {
	Track(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Advance(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
}

func RegisterOrderTrackingServer(s grpc.ServiceRegistrar, srv OrderTrackingServer) {
	s.RegisterService(&orderTrackingDesc, srv)
}

var orderTrackingDesc = grpc.ServiceDesc{
	ServiceName: trackingServiceName,
	HandlerType: (*OrderTrackingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Track", Handler: trackHandler},
		{MethodName: "Advance", Handler: advanceHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fooddelivery/tracking/v1/tracking.proto",
}

func trackHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderTrackingServer).Track(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: trackMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderTrackingServer).Track(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func advanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderTrackingServer).Advance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: advanceMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderTrackingServer).Advance(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// TrackingServer serves order tracking over gRPC.
type TrackingServer struct {
	Orders *orders.Service
	Admins repository.AdminRepositoryI
}

// Track returns {order, tracking, progress} for an order id or number.
func (s *TrackingServer) Track(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "order reference is required")
	}
	t, err := s.Orders.Track(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(t)
}

// Advance moves an order one step forward. Admin only.
func (s *TrackingServer) Advance(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	p, err := auth.RequireAdmin(ctx, s.Admins)
	if err != nil {
		return nil, err
	}
	if in.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order id must be positive")
	}
	o, err := s.Orders.Advance(ctx, in.GetValue(), orders.AdminActor(p.ID))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(o)
}

// toStruct converts v through its JSON form so field names match the REST API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return st, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, orders.ErrInvalidOrder):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrDriverNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, orders.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, orders.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, orders.ErrNotAssigned):
		return status.Error(codes.PermissionDenied, err.Error())
	}
	return status.Errorf(codes.Internal, "internal error: %v", err)
}
