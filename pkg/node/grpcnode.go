package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/wrapperspb"

	zgrpc "github.com/shamank/zgstore-go/pkg/grpc"
	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// GRPCNode is a storage node reached over gRPC. It serves file transfer
// through the Storage service and KV through the dynamically compiled KV
// schema.
type GRPCNode struct {
	url     string
	conn    *grpc.ClientConn
	storage StorageClient
	kv      *zgrpc.Client
	health  healthpb.HealthClient
	chunk   int
}

func dialGRPC(_ context.Context, url string, opts Options) (*GRPCNode, error) {
	files, err := kvSchema()
	if err != nil {
		return nil, err
	}
	addr, creds := zgrpc.CredsFromEndpoint(url)
	conn, err := grpc.NewClient(addr, append([]grpc.DialOption{creds}, opts.DialOptions...)...)
	if err != nil {
		zap.L().Error("failed to create grpc client", zap.String("endpoint", url), zap.Error(err))
		return nil, err
	}
	return &GRPCNode{
		url:     url,
		conn:    conn,
		storage: NewStorageClient(conn),
		kv:      zgrpc.NewClientConn(conn, files),
		health:  healthpb.NewHealthClient(conn),
		chunk:   opts.ChunkSize,
	}, nil
}

// Close releases the connection.
func (n *GRPCNode) Close() error {
	return n.conn.Close()
}

// Health runs the standard gRPC health check; only SERVING counts as healthy.
func (n *GRPCNode) Health(ctx context.Context) error {
	resp, err := n.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("grpc heartbeat failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("node is %s", resp.GetStatus())
	}
	return nil
}

// Upload streams content in chunks and returns the node's receipt.
func (n *GRPCNode) Upload(ctx context.Context, req storage.UploadRequest, content io.Reader) (storage.Receipt, error) {
	ctx, cancel := context.WithCancel(uploadContext(ctx, req))
	defer cancel()

	stream, err := n.storage.Upload(ctx)
	if err != nil {
		return storage.Receipt{}, mapRPC(err)
	}
	buf := make([]byte, n.chunk)
	for {
		read, rerr := content.Read(buf)
		if read > 0 {
			if err := stream.Send(wrapperspb.Bytes(buf[:read])); err != nil {
				// The real status is delivered by CloseAndRecv.
				if errors.Is(err, io.EOF) {
					break
				}
				return storage.Receipt{}, mapRPC(err)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return storage.Receipt{}, fmt.Errorf("%w: %v", storage.ErrLocalIO, rerr)
		}
	}
	reply, err := stream.CloseAndRecv()
	if err != nil {
		return storage.Receipt{}, mapRPC(err)
	}
	rcpt := storage.Receipt{Root: reply.GetValue(), TxHash: req.TxHash}
	if md, err := stream.Header(); err == nil {
		if v := md.Get(HeaderTx); len(v) > 0 && rcpt.TxHash == "" {
			rcpt.TxHash = v[0]
		}
	}
	return rcpt, nil
}

// Download streams the content of root into w.
func (n *GRPCNode) Download(ctx context.Context, root storage.Root, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := n.storage.Download(ctx, wrapperspb.String(root.String()))
	if err != nil {
		return mapRPC(err)
	}
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return mapRPC(err)
		}
		if _, err := w.Write(chunk.GetValue()); err != nil {
			return err
		}
	}
}

// Has reports whether the node stores root.
func (n *GRPCNode) Has(ctx context.Context, root storage.Root) (bool, error) {
	reply, err := n.storage.Has(ctx, wrapperspb.String(root.String()))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

// kvPut and kvGet mirror the KV schema's JSON form; bytes are base64.
type kvPut struct {
	Batch     []byte `json:"batch"`
	Signer    string `json:"signer"`
	Signature []byte `json:"signature"`
	TxHash    string `json:"tx_hash"`
}

type kvGet struct {
	StreamID string `json:"stream_id"`
	Key      []byte `json:"key"`
}

type kvGetReply struct {
	Found bool   `json:"found"`
	Value []byte `json:"value"`
}

// PutKV submits a signed batch and returns the receipt transaction.
func (n *GRPCNode) PutKV(ctx context.Context, req kv.PutRequest) (string, error) {
	body, err := json.Marshal(kvPut{
		Batch:     req.Batch,
		Signer:    req.Signer.Hex(),
		Signature: req.Signature,
		TxHash:    req.TxHash,
	})
	if err != nil {
		return "", err
	}
	resp, err := n.kv.CallWithJSON(ctx, "Put", body)
	if err != nil {
		return "", mapRPC(err)
	}
	var out struct {
		TxHash string `json:"tx_hash"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

// GetKV reads key from stream.
func (n *GRPCNode) GetKV(ctx context.Context, stream common.Hash, key []byte) ([]byte, bool, error) {
	body, err := json.Marshal(kvGet{StreamID: stream.Hex(), Key: key})
	if err != nil {
		return nil, false, err
	}
	resp, err := n.kv.CallWithJSON(ctx, "Get", body)
	if err != nil {
		return nil, false, mapRPC(err)
	}
	var out kvGetReply
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, false, err
	}
	if !out.Found {
		return nil, false, nil
	}
	if out.Value == nil {
		out.Value = []byte{}
	}
	return out.Value, true, nil
}
