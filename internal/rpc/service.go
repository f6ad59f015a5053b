// Package rpc exposes the splix control API over gRPC on a Unix socket.
// Messages use protobuf well-known wrapper types, so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
	"pkt.systems/pslog"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "splix.api.v1.SplixApi"
	// SayHelloMethod is the full method name of SayHello.
	SayHelloMethod = "/" + ServiceName + "/SayHello"

	maxNameLen = 256
)

// APIServer is the server side of the splix API.
type APIServer interface {
	SayHello(ctx context.Context, name *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

var apiServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*APIServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SayHello", Handler: sayHelloHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "splix/api/v1/splix.proto",
}

// RegisterAPIServer registers srv on s.
func RegisterAPIServer(s grpc.ServiceRegistrar, srv APIServer) {
	s.RegisterService(&apiServiceDesc, srv)
}

func sayHelloHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(APIServer).SayHello(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SayHelloMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(APIServer).SayHello(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Service is the placeholder API implementation.
type Service struct{}

// SayHello greets name.
func (Service) SayHello(ctx context.Context, name *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	value := name.GetValue()
	if len(value) > maxNameLen {
		return nil, status.Errorf(codes.InvalidArgument, "name exceeds %d bytes", maxNameLen)
	}
	pslog.Ctx(ctx).Debug("rpc say hello", "name", value)
	return wrapperspb.String("hello, " + value), nil
}
