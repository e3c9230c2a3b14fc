package node

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// StorageServiceName is the gRPC service spoken by storage nodes.
//
// The service uses protobuf well-known wrapper types so no generated code is
// needed:
//
//	service Storage {
//	  // Upload streams content chunks; root, size, signer, signature and
//	  // commitment tx travel in request metadata. Returns the stored root.
//	  rpc Upload(stream google.protobuf.BytesValue) returns (google.protobuf.StringValue);
//	  rpc Download(google.protobuf.StringValue) returns (stream google.protobuf.BytesValue);
//	  rpc Has(google.protobuf.StringValue) returns (google.protobuf.BoolValue);
//	}
const StorageServiceName = "zgstore.storage.v1.Storage"

const (
	storageUploadMethod   = "/" + StorageServiceName + "/Upload"
	storageDownloadMethod = "/" + StorageServiceName + "/Download"
	storageHasMethod      = "/" + StorageServiceName + "/Has"
)

// StorageServer is the server API for the Storage service.
type StorageServer interface {
	Upload(grpc.ClientStreamingServer[wrapperspb.BytesValue, wrapperspb.StringValue]) error
	Download(*wrapperspb.StringValue, grpc.ServerStreamingServer[wrapperspb.BytesValue]) error
	Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// UnimplementedStorageServer can be embedded to have forward compatible implementations.
type UnimplementedStorageServer struct{}

func (UnimplementedStorageServer) Upload(grpc.ClientStreamingServer[wrapperspb.BytesValue, wrapperspb.StringValue]) error {
	return status.Error(codes.Unimplemented, "method Upload not implemented")
}
func (UnimplementedStorageServer) Download(*wrapperspb.StringValue, grpc.ServerStreamingServer[wrapperspb.BytesValue]) error {
	return status.Error(codes.Unimplemented, "method Download not implemented")
}
func (UnimplementedStorageServer) Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}

// RegisterStorageServer registers the Storage service on a gRPC server.
func RegisterStorageServer(s grpc.ServiceRegistrar, srv StorageServer) {
	s.RegisterService(&Storage_ServiceDesc, srv)
}

// StorageClient is the client API for the Storage service.
type StorageClient interface {
	Upload(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[wrapperspb.BytesValue, wrapperspb.StringValue], error)
	Download(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (grpc.ServerStreamingClient[wrapperspb.BytesValue], error)
	Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type storageClient struct{ cc grpc.ClientConnInterface }

func NewStorageClient(cc grpc.ClientConnInterface) StorageClient { return &storageClient{cc: cc} }

func (c *storageClient) Upload(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[wrapperspb.BytesValue, wrapperspb.StringValue], error) {
	stream, err := c.cc.NewStream(ctx, &Storage_ServiceDesc.Streams[0], storageUploadMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[wrapperspb.BytesValue, wrapperspb.StringValue]{ClientStream: stream}, nil
}

func (c *storageClient) Download(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (grpc.ServerStreamingClient[wrapperspb.BytesValue], error) {
	stream, err := c.cc.NewStream(ctx, &Storage_ServiceDesc.Streams[1], storageDownloadMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[wrapperspb.StringValue, wrapperspb.BytesValue]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *storageClient) Has(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	err := c.cc.Invoke(ctx, storageHasMethod, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _Storage_Upload_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(StorageServer).Upload(&grpc.GenericServerStream[wrapperspb.BytesValue, wrapperspb.StringValue]{ServerStream: stream})
}

func _Storage_Download_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StorageServer).Download(in, &grpc.GenericServerStream[wrapperspb.StringValue, wrapperspb.BytesValue]{ServerStream: stream})
}

func _Storage_Has_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StorageServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: storageHasMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StorageServer).Has(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Storage_ServiceDesc is the grpc.ServiceDesc for Storage service.
var Storage_ServiceDesc = grpc.ServiceDesc{
	ServiceName: StorageServiceName,
	HandlerType: (*StorageServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Has", Handler: _Storage_Has_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Upload", Handler: _Storage_Upload_Handler, ClientStreams: true},
		{StreamName: "Download", Handler: _Storage_Download_Handler, ServerStreams: true},
	},
	Metadata: "zgstore/storage/v1/storage.proto",
}
