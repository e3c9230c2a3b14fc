package node

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bufbuild/protocompile/linker"
	"google.golang.org/grpc"

	"github.com/shamank/zgstore-go/pkg/endpoint"
	zgrpc "github.com/shamank/zgstore-go/pkg/grpc"
	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// URL scheme prefixes selecting a non-gRPC transport.
const (
	// KuboScheme marks a Kubo RPC API, e.g. "kubo+http://127.0.0.1:5001".
	KuboScheme = "kubo+"
	// GatewayScheme marks a read-only HTTP gateway, e.g.
	// "gateway+https://gateway.lighthouse.storage/ipfs/".
	GatewayScheme = "gateway+"
)

// DefaultChunkSize is the size of streamed content chunks.
const DefaultChunkSize = 256 << 10

// Conn is a connected node usable for both file transfer and KV.
type Conn interface {
	storage.Node
	kv.Node
}

// Options configures dialing.
type Options struct {
	// ChunkSize is the upload chunk size for gRPC nodes. Default DefaultChunkSize.
	ChunkSize int
	// HTTPTimeout bounds requests to Kubo and gateway endpoints. Default 60s.
	HTTPTimeout time.Duration
	// HTTPClient overrides the client used for Kubo and gateway endpoints.
	HTTPClient *http.Client
	// DialOptions are appended to the gRPC dial options.
	DialOptions []grpc.DialOption
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 60 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.HTTPTimeout}
	}
	return o
}

// kvSchema compiles the KV schema once per process.
var kvSchema = sync.OnceValues(func() (linker.Files, error) {
	return zgrpc.CompileProtos(zgrpc.KVProtoFiles())
})

// Dial connects to url, choosing the transport from its scheme:
// "kubo+http(s)://" is a Kubo node, "gateway+http(s)://" a read-only HTTP
// gateway, anything else a gRPC storage node. Dialing does not touch the
// network; Health does.
func Dial(ctx context.Context, url string, opts Options) (Conn, error) {
	opts = opts.withDefaults()
	switch {
	case strings.HasPrefix(url, KuboScheme):
		return dialIPFS(url, strings.TrimPrefix(url, KuboScheme), opts)
	case strings.HasPrefix(url, GatewayScheme):
		return dialGateway(url, strings.TrimPrefix(url, GatewayScheme), opts)
	default:
		return dialGRPC(ctx, url, opts)
	}
}

// StorageDialer adapts Dial to an endpoint.Selector of storage nodes.
func StorageDialer(opts Options) endpoint.Dialer[storage.Node] {
	return func(ctx context.Context, url string) (storage.Node, error) {
		return Dial(ctx, url, opts)
	}
}

// KVDialer adapts Dial to an endpoint.Selector of KV nodes.
func KVDialer(opts Options) endpoint.Dialer[kv.Node] {
	return func(ctx context.Context, url string) (kv.Node, error) {
		return Dial(ctx, url, opts)
	}
}
