// Package grpc provides dynamic gRPC plumbing used by the KV transport.
//
// Proto sources are compiled on the fly with protocompile and calls are
// marshaled through protobuf reflection, so neither protoc nor generated
// stubs are needed. The KV schema (kv.proto) is embedded in the package.
//
// # Client
//
//	client, err := grpc.NewClient("http://127.0.0.1:6789", grpc.KVProtoFiles())
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	out, err := client.CallWithJSON(ctx, "Get", []byte(`{"stream_id":"0x..","key":"dHgtMQ=="}`))
//
// CallWithMap and CallWithProto offer the same call with a Go map or a
// proto.Message request. Responses are marshaled with proto field names and
// unpopulated fields emitted, so a missing bytes value reads as "".
//
// NewClientConn wraps an existing connection (for example one shared with
// the storage service of the same node) without taking ownership of it.
//
// # Server
//
// NewServiceDesc turns a compiled service into a grpc.ServiceDesc whose unary
// methods decode into dynamicpb messages:
//
//	desc, err := grpc.NewServiceDesc(files, "zgstore.kv.v1.KV", map[string]grpc.UnaryHandler{
//		"Put": put,
//		"Get": get,
//	})
//	server.RegisterService(desc, impl)
//
// Field, BytesField, StringField, BoolField and SetField read and write
// dynamic message fields by proto name.
//
// # Transport Security
//
// Transport is determined by endpoint scheme:
//
//	"https://host:443"  → TLS with system certificates
//	"http://host:8080"  → Insecure plaintext
//	"host:8080"         → Insecure plaintext (no scheme)
//
// Any path after the host is dropped.
//
// # Thread Safety
//
// Client instances are safe for concurrent use.
package grpc
