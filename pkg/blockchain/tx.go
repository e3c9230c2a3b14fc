package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/signer"
)

// GetTransactOpts creates a transactor bound to the given chainID and credential.
func GetTransactOpts(chainID *big.Int, cred *signer.Credential) (*bind.TransactOpts, error) {
	if cred == nil {
		return nil, fmt.Errorf("credential is required for transactions")
	}
	opts, err := cred.TransactOpts(chainID)
	if err != nil {
		zap.L().Error("failed to create transactor", zap.Error(err))
		return nil, err
	}
	return opts, nil
}

// GetTransactOpts creates a transactor using the chain id of the connected node.
func (eth *EVMClient) GetTransactOpts(ctx context.Context, cred *signer.Credential) (*bind.TransactOpts, error) {
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return GetTransactOpts(chainID, cred)
}
