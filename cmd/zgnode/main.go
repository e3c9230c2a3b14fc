// Command zgnode runs a development storage node: content-addressed blobs and
// KV streams persisted in badger, served over gRPC with server-side root and
// signer verification.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/shamank/zgstore-go/pkg/node"
	"github.com/shamank/zgstore-go/pkg/sdk"
)

func main() {
	addr := flag.String("addr", ":5678", "gRPC listen address")
	dataDir := flag.String("data", "local/zgnode", "badger directory; empty keeps everything in memory")
	chunk := flag.Int("chunk", node.DefaultChunkSize, "download chunk size in bytes")
	maxBlob := flag.Int64("max-blob", node.DefaultMaxBlobSize, "largest accepted upload in bytes")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	if _, err := sdk.NewLogger(*debug); err != nil {
		zap.L().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = zap.L().Sync() }()

	store, err := node.OpenStore(*dataDir)
	if err != nil {
		zap.L().Fatal("failed to open store", zap.String("dir", *dataDir), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zap.L().Error("failed to close store", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		zap.L().Fatal("failed to listen", zap.String("addr", *addr), zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	srv := node.NewServer(store, node.ServerOptions{ChunkSize: *chunk, MaxBlobSize: *maxBlob})
	if err := srv.Register(grpcServer); err != nil {
		zap.L().Fatal("failed to register services", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down")
		srv.Shutdown()
		grpcServer.GracefulStop()
	}()

	zap.L().Info("zgnode listening", zap.String("addr", lis.Addr().String()), zap.String("data", *dataDir))
	if err := grpcServer.Serve(lis); err != nil {
		zap.L().Error("server exited", zap.Error(err))
	}
}
