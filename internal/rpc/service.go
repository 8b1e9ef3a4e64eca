// Package rpc exposes the economy manager as a gRPC service. Messages are
// google.protobuf.Struct values so no generated code is needed; the shapes
// are defined by the converter package.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "economy.v1.EconomyService"

const (
	decideMethod     = "/" + ServiceName + "/Decide"
	endSessionMethod = "/" + ServiceName + "/EndSession"
)

// EconomyServer is the server API for the economy service
type EconomyServer interface {
	// Decide runs one economy tick for a session
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// EndSession drops the state kept for a session
	EndSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterEconomyServer registers srv with a gRPC server
func RegisterEconomyServer(s grpc.ServiceRegistrar, srv EconomyServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func decideHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EconomyServer).Decide(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: decideMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EconomyServer).Decide(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func endSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EconomyServer).EndSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: endSessionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EconomyServer).EndSession(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc for the economy service
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EconomyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: decideHandler},
		{MethodName: "EndSession", Handler: endSessionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "economy/v1/economy.proto",
}
