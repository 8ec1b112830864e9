package grpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName    = "forwarder.Forwarder"
	SendDataMethod = "/" + ServiceName + "/SendData"
)

// ForwarderServer is implemented by upstream services that receive tracking objects.
// The request is {"device_id": string, "payload": struct}; the reply carries success.
type ForwarderServer interface {
	SendData(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
}

func RegisterForwarderServer(s grpc.ServiceRegistrar, srv ForwarderServer) {
	s.RegisterService(&ForwarderServiceDesc, srv)
}

var ForwarderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ForwarderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendData", Handler: sendDataHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "forwarder.proto",
}

func sendDataHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ForwarderServer).SendData(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SendDataMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForwarderServer).SendData(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
