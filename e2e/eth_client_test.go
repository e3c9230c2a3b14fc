//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shamank/zgstore-go/pkg/blockchain"
	"github.com/shamank/zgstore-go/pkg/config"
)

func TestETHClientChainID(t *testing.T) {
	rpc := os.Getenv(config.EnvRPCAddr)
	if rpc == "" {
		t.Skip(config.EnvRPCAddr + " not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cli, err := blockchain.InitEvm(ctx, rpc, config.DefaultFlowContract)
	if err != nil {
		t.Fatalf("InitEvm error: %v", err)
	}
	defer cli.Close()
	id, err := cli.ChainID(ctx)
	if err != nil {
		t.Fatalf("ChainID error: %v", err)
	}
	if id == nil || id.Sign() <= 0 {
		t.Fatalf("unexpected chain id %v", id)
	}
}
