package grpc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bufbuild/protocompile/linker"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Client is a dynamic gRPC client that holds a gRPC connection and a set of
// compiled file descriptors used to locate services/methods at runtime.
type Client struct {
	// GRPC is the underlying client connection.
	GRPC grpc.ClientConnInterface `json:"-"`
	// ProtoFiles are the compiled descriptors of the provided .proto sources.
	ProtoFiles linker.Files `json:"-"`

	conn *grpc.ClientConn
}

// NewClient creates a dynamic gRPC client for the given endpoint and set of
// .proto files (as filename → file content). The endpoint scheme determines
// transport security:
//   - "https://": TLS (system defaults)
//   - "http://":  insecure
//   - no scheme:  insecure
//
// The connection is established lazily on the first call.
func NewClient(endpoint string, protoFiles map[string]string, opts ...grpc.DialOption) (*Client, error) {
	descriptors, err := CompileProtos(protoFiles)
	if err != nil {
		return nil, err
	}
	addr, creds := CredsFromEndpoint(endpoint)
	conn, err := grpc.NewClient(addr, append([]grpc.DialOption{creds}, opts...)...)
	if err != nil {
		zap.L().Error("failed to create grpc client", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}
	return &Client{GRPC: conn, ProtoFiles: descriptors, conn: conn}, nil
}

// NewClientConn wraps an existing connection. The caller keeps ownership of cc;
// Close on the returned client does not close it.
func NewClientConn(cc grpc.ClientConnInterface, files linker.Files) *Client {
	return &Client{GRPC: cc, ProtoFiles: files}
}

// Close shuts down the connection if the client created it.
// It is safe to call on a nil receiver.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// CallWithMap invokes a unary RPC by method name using a map as the request
// body. The map is JSON-encoded and then routed through CallWithJSON.
// Method should be the simple method name as declared in the .proto (not the
// fully-qualified path).
func (c *Client) CallWithMap(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	jsonData, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	jsonStr, err := c.CallWithJSON(ctx, method, jsonData)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(jsonStr, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// CallWithProto invokes a unary RPC by method name with a concrete proto.Message
// request and returns a dynamic proto.Message response.
func (c *Client) CallWithProto(ctx context.Context, method string, req proto.Message, opts ...grpc.CallOption) (proto.Message, error) {
	_, methodDesc, err := FindMethod(c.ProtoFiles, method)
	if err != nil {
		return nil, err
	}
	out := dynamicpb.NewMessage(methodDesc.Output())
	if err := c.GRPC.Invoke(ctx, fullMethodName(methodDesc), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CallWithJSON invokes a unary RPC by method name using a JSON request body.
// The JSON is unmarshalled into a dynamic input message (discarding unknown
// fields and allowing partial messages), the call is performed, and the
// response is marshaled back to JSON with proto field names and unpopulated
// fields emitted.
func (c *Client) CallWithJSON(ctx context.Context, method string, body []byte, opts ...grpc.CallOption) ([]byte, error) {
	_, methodDesc, err := FindMethod(c.ProtoFiles, method)
	if err != nil {
		return nil, err
	}

	in := dynamicpb.NewMessage(methodDesc.Input())
	out := dynamicpb.NewMessage(methodDesc.Output())

	err = protojson.UnmarshalOptions{
		AllowPartial:   true,
		DiscardUnknown: true,
	}.Unmarshal(body, in)
	if err != nil {
		return nil, err
	}

	if err := c.GRPC.Invoke(ctx, fullMethodName(methodDesc), in, out, opts...); err != nil {
		return nil, err
	}

	return protojson.MarshalOptions{
		EmitUnpopulated: true,
		UseProtoNames:   true,
	}.Marshal(out)
}

// CredsFromEndpoint derives a dial address and dial option from an endpoint URL.
// "https://" enables TLS; "http://" and bare addresses use insecure credentials.
// Any path after the host is dropped.
func CredsFromEndpoint(endpoint string) (string, grpc.DialOption) {
	if strings.HasPrefix(endpoint, "https://") {
		return hostOnly(strings.TrimPrefix(endpoint, "https://")), grpc.WithTransportCredentials(credentials.NewTLS(nil))
	}
	if strings.HasPrefix(endpoint, "http://") {
		return hostOnly(strings.TrimPrefix(endpoint, "http://")), grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	return endpoint, grpc.WithTransportCredentials(insecure.NewCredentials())
}

func hostOnly(s string) string {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	return s
}
