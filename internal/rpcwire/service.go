package rpcwire

import (
	"context"

	"google.golang.org/grpc"

	"github.com/cwsl/sdrctl/internal/receiver"
)

// ServiceName is the gRPC service path every hand-written method below is
// registered under.
const ServiceName = "sdrctl.v1.Receiver"

// Register builds a Server around recv and attaches its hand-written
// ServiceDesc to gs, the way generated *_grpc.pb.go code would via
// RegisterXxxServer — except there is no generated code here, only the
// ServiceDesc constructed directly against the grpc package's public API.
func Register(gs *grpc.Server, recv *receiver.Facade) {
	gs.RegisterService(&serviceDesc, NewServer(recv))
}

func callHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(CallRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).Call(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Call"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).Call(ctx, req.(*CallRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func handshakeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(HandshakeRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).Handshake(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Handshake"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).Handshake(ctx, req.(*HandshakeRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(SubscribeRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*Server).Subscribe(req, stream)
}

func vfoSubscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(VfoSubscribeRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*Server).VfoSubscribe(req, stream)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
		{MethodName: "Handshake", Handler: handshakeHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "VfoSubscribe",
			Handler:       vfoSubscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sdrctl/rpcwire.proto",
}
