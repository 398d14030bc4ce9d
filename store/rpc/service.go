// Package rpc implements a gRPC service exposing a tagstore backend,
// and a tagstore backend that is a client of that service.
//
// The service and its messages are defined in tagstore.proto.
// Messages are dynamicpb messages built from that file's descriptor.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ServiceName is the fully qualified name of the gRPC service.
const ServiceName = "tagstore.Backend"

const (
	storeMethod    = "/" + ServiceName + "/Store"
	retrieveMethod = "/" + ServiceName + "/Retrieve"
	listMethod     = "/" + ServiceName + "/List"
)

// BackendServer is the server API of the service.
// Requests and responses are messages of the types named in tagstore.proto.
type BackendServer interface {
	Store(context.Context, *dynamicpb.Message) (*dynamicpb.Message, error)
	Retrieve(context.Context, *dynamicpb.Message) (*dynamicpb.Message, error)
	List(context.Context, *dynamicpb.Message, func(*dynamicpb.Message) error) error
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BackendServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Store", Handler: storeHandler},
		{MethodName: "Retrieve", Handler: retrieveHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "List", Handler: listHandler, ServerStreams: true},
	},
}

// Register registers srv with s.
func Register(s grpc.ServiceRegistrar, srv BackendServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func storeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := NewMessage(StoreRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BackendServer).Store(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: storeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BackendServer).Store(ctx, req.(*dynamicpb.Message))
	}
	return interceptor(ctx, in, info, handler)
}

func retrieveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := NewMessage(RetrieveRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BackendServer).Retrieve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: retrieveMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BackendServer).Retrieve(ctx, req.(*dynamicpb.Message))
	}
	return interceptor(ctx, in, info, handler)
}

func listHandler(srv interface{}, stream grpc.ServerStream) error {
	in := NewMessage(ListRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BackendServer).List(stream.Context(), in, func(resp *dynamicpb.Message) error {
		return stream.SendMsg(resp)
	})
}
