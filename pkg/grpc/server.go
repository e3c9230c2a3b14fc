package grpc

import (
	"context"
	"fmt"

	"github.com/bufbuild/protocompile/linker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// UnaryHandler serves one unary method. in is already decoded; the handler
// fills out.
type UnaryHandler func(ctx context.Context, in, out *dynamicpb.Message) error

// NewServiceDesc builds a grpc.ServiceDesc for the named service from compiled
// descriptors so it can be registered without generated code. Every unary
// method of the service must have a handler; streaming methods are not
// supported.
func NewServiceDesc(files linker.Files, service string, handlers map[string]UnaryHandler) (*grpc.ServiceDesc, error) {
	sd, err := FindService(files, service)
	if err != nil {
		return nil, err
	}
	desc := &grpc.ServiceDesc{
		ServiceName: string(sd.FullName()),
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    sd.ParentFile().Path(),
	}
	methods := sd.Methods()
	for i := 0; i < methods.Len(); i++ {
		md := methods.Get(i)
		if md.IsStreamingClient() || md.IsStreamingServer() {
			return nil, fmt.Errorf("method %s is streaming; only unary methods are supported", md.FullName())
		}
		h, ok := handlers[string(md.Name())]
		if !ok {
			return nil, fmt.Errorf("no handler for method %s", md.FullName())
		}
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: string(md.Name()),
			Handler:    unaryHandler(md, h),
		})
	}
	return desc, nil
}

func unaryHandler(md protoreflect.MethodDescriptor, h UnaryHandler) grpc.MethodHandler {
	fullMethod := fullMethodName(md)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := dynamicpb.NewMessage(md.Input())
		if err := dec(in); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		call := func(ctx context.Context, req any) (any, error) {
			out := dynamicpb.NewMessage(md.Output())
			if err := h(ctx, req.(*dynamicpb.Message), out); err != nil {
				return nil, err
			}
			return out, nil
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, call)
	}
}
