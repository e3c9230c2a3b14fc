package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Backend is the subset of an Ethereum client used by this package.
// *ethclient.Client and the simulated backend client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// EVMClient holds a connected chain client and the Flow contract binding.
type EVMClient struct {
	Client Backend
	Flow   *Flow

	rpc *ethclient.Client
}

// InitEvm dials rpcAddr and binds the Flow contract at flowAddr.
// The connection is checked by reading the chain id.
func InitEvm(ctx context.Context, rpcAddr, flowAddr string) (*EVMClient, error) {
	if !common.IsHexAddress(flowAddr) {
		return nil, fmt.Errorf("invalid flow contract address %q", flowAddr)
	}
	client, err := ethclient.DialContext(ctx, rpcAddr)
	if err != nil {
		zap.L().Error("Failed to ethdial", zap.String("rpc", rpcAddr), zap.Error(err))
		return nil, err
	}
	if _, err := client.ChainID(ctx); err != nil {
		client.Close()
		zap.L().Error("Failed to reach evm rpc", zap.String("rpc", rpcAddr), zap.Error(err))
		return nil, err
	}
	eth, err := NewEVMClient(client, common.HexToAddress(flowAddr))
	if err != nil {
		client.Close()
		return nil, err
	}
	eth.rpc = client
	return eth, nil
}

// NewEVMClient binds the Flow contract on an existing backend.
func NewEVMClient(backend Backend, flowAddr common.Address) (*EVMClient, error) {
	if backend == nil {
		return nil, errors.New("blockchain: backend is required")
	}
	flow, err := NewFlow(flowAddr, backend)
	if err != nil {
		return nil, err
	}
	return &EVMClient{Client: backend, Flow: flow}, nil
}

// Close releases the RPC connection opened by InitEvm.
func (eth *EVMClient) Close() {
	if eth != nil && eth.rpc != nil {
		eth.rpc.Close()
	}
}

// ChainID returns the chain id reported by the node.
func (eth *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := eth.Client.ChainID(ctx)
	if err != nil {
		zap.L().Error("failed to get chain ID", zap.Error(err))
		return nil, err
	}
	return id, nil
}

// GetCurrentBlockNumber returns the latest block number.
func (eth *EVMClient) GetCurrentBlockNumber(ctx context.Context) (*big.Int, error) {
	header, err := eth.Client.HeaderByNumber(ctx, nil)
	if err != nil {
		zap.L().Error("failed to get last block number", zap.Error(err))
		return nil, err
	}
	return header.Number, nil
}

// Balance returns the latest balance of account in wei.
func (eth *EVMClient) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return eth.Client.BalanceAt(ctx, account, nil)
}
