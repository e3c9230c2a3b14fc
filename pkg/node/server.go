package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	zgrpc "github.com/shamank/zgstore-go/pkg/grpc"
	"github.com/shamank/zgstore-go/pkg/kv"
	"github.com/shamank/zgstore-go/pkg/signer"
	"github.com/shamank/zgstore-go/pkg/storage"
)

// KVServiceName is the full name of the KV service in the embedded schema.
const KVServiceName = "zgstore.kv.v1.KV"

// DefaultMaxBlobSize bounds a single upload accepted by Server.
const DefaultMaxBlobSize = 64 << 20

// ServerOptions tunes Server.
type ServerOptions struct {
	// ChunkSize is the download chunk size. Default DefaultChunkSize.
	ChunkSize int
	// MaxBlobSize rejects larger uploads. Default DefaultMaxBlobSize.
	MaxBlobSize int64
}

// Server is a storage node backed by a Store. Uploads must hash to the
// declared root and carry a signature by the declared signer; KV batches
// are checked the same way before they are applied.
type Server struct {
	UnimplementedStorageServer

	store  *Store
	opts   ServerOptions
	health *health.Server
}

// NewServer builds a Server over store.
func NewServer(store *Store, opts ServerOptions) *Server {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxBlobSize <= 0 {
		opts.MaxBlobSize = DefaultMaxBlobSize
	}
	return &Server{store: store, opts: opts, health: health.NewServer()}
}

// Register installs the Storage, KV and health services on r and marks the
// node as serving.
func (s *Server) Register(r grpc.ServiceRegistrar) error {
	files, err := kvSchema()
	if err != nil {
		return err
	}
	desc, err := zgrpc.NewServiceDesc(files, KVServiceName, map[string]zgrpc.UnaryHandler{
		"Put": s.putKV,
		"Get": s.getKV,
	})
	if err != nil {
		return err
	}
	RegisterStorageServer(r, s)
	r.RegisterService(desc, s)
	healthpb.RegisterHealthServer(r, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Shutdown reports NOT_SERVING to health checks so clients fail over.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

// Resume reports SERVING again after Shutdown.
func (s *Server) Resume() {
	s.health.Resume()
}

// Upload receives content chunks, verifies them against the declared root
// and signer, and stores them.
func (s *Server) Upload(stream grpc.ClientStreamingServer[wrapperspb.BytesValue, wrapperspb.StringValue]) error {
	req, err := uploadFromContext(stream.Context())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Size > s.opts.MaxBlobSize {
		return status.Errorf(codes.InvalidArgument, "upload of %d bytes exceeds limit %d", req.Size, s.opts.MaxBlobSize)
	}
	digest := req.Root.Digest()
	if err := verifySigner(digest[:], req.Signature, req.Signer); err != nil {
		return err
	}

	var buf bytes.Buffer
	h := storage.NewRootHasher()
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if int64(buf.Len()+len(chunk.GetValue())) > req.Size {
			return status.Errorf(codes.InvalidArgument, "received more than the declared %d bytes", req.Size)
		}
		buf.Write(chunk.GetValue())
		_, _ = h.Write(chunk.GetValue())
	}
	if int64(buf.Len()) != req.Size {
		return status.Errorf(codes.InvalidArgument, "received %d bytes, declared %d", buf.Len(), req.Size)
	}
	if err := h.Verify(req.Root); err != nil {
		return mapErr(err)
	}
	if err := s.store.PutBlob(req.Root, buf.Bytes()); err != nil {
		return mapErr(err)
	}

	tx := req.TxHash
	if tx == "" {
		tx = LocalReceipt(digest, req.Signature).Hex()
	}
	if err := stream.SetHeader(metadata.Pairs(HeaderTx, tx)); err != nil {
		return err
	}
	zap.L().Info("Stored blob",
		zap.String("root", req.Root.String()),
		zap.Int64("size", req.Size),
		zap.String("signer", req.Signer.Hex()),
		zap.String("tx", tx))
	return stream.SendAndClose(wrapperspb.String(req.Root.String()))
}

// Download streams the stored content of a root.
func (s *Server) Download(in *wrapperspb.StringValue, stream grpc.ServerStreamingServer[wrapperspb.BytesValue]) error {
	root, err := storage.ParseRoot(in.GetValue())
	if err != nil {
		return mapErr(err)
	}
	data, err := s.store.Blob(root)
	if err != nil {
		return mapErr(err)
	}
	for off := 0; off < len(data); off += s.opts.ChunkSize {
		end := min(off+s.opts.ChunkSize, len(data))
		if err := stream.Send(wrapperspb.Bytes(data[off:end])); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether a root is stored.
func (s *Server) Has(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	root, err := storage.ParseRoot(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	ok, err := s.store.HasBlob(root)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Server) putKV(_ context.Context, in, out *dynamicpb.Message) error {
	encoded := zgrpc.BytesField(in, "batch")
	batch, err := kv.DecodeBatch(encoded)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	signerHex := zgrpc.StringField(in, "signer")
	if !common.IsHexAddress(signerHex) {
		return status.Error(codes.InvalidArgument, "invalid signer address")
	}
	root := kv.BatchRoot(encoded)
	sig := zgrpc.BytesField(in, "signature")
	if err := verifySigner(root[:], sig, common.HexToAddress(signerHex)); err != nil {
		return err
	}
	if err := s.store.ApplyBatch(batch); err != nil {
		return mapErr(err)
	}
	tx := zgrpc.StringField(in, "tx_hash")
	if tx == "" {
		tx = LocalReceipt(root, sig).Hex()
	}
	zgrpc.SetField(out, "tx_hash", tx)
	zap.L().Info("Applied kv batch",
		zap.String("stream", batch.Stream().Hex()),
		zap.Int("writes", len(batch.Writes)),
		zap.String("tx", tx))
	return nil
}

func (s *Server) getKV(_ context.Context, in, out *dynamicpb.Message) error {
	streamHex := zgrpc.StringField(in, "stream_id")
	raw := common.FromHex(streamHex)
	if len(raw) != common.HashLength {
		return status.Errorf(codes.InvalidArgument, "stream id must be %d bytes", common.HashLength)
	}
	key := zgrpc.BytesField(in, "key")
	if len(key) == 0 {
		return mapErr(kv.ErrEmptyKey)
	}
	value, found, err := s.store.Value(common.BytesToHash(raw), key)
	if err != nil {
		return mapErr(err)
	}
	zgrpc.SetField(out, "found", found)
	if found {
		zgrpc.SetField(out, "value", value)
	}
	return nil
}

// verifySigner checks that signature over message was produced by want.
func verifySigner(message, signature []byte, want common.Address) error {
	got, err := signer.RecoverAddress(message, signature)
	if err != nil {
		return status.Error(codes.PermissionDenied, fmt.Sprintf("bad signature: %v", err))
	}
	if got != want {
		return status.Errorf(codes.PermissionDenied, "signature by %s does not match signer %s", got.Hex(), want.Hex())
	}
	return nil
}
