package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/signer"
)

// ErrCommitReverted is returned when a commitment transaction is mined with a
// failed status.
var ErrCommitReverted = errors.New("blockchain: commitment transaction reverted")

// CommitterOptions tunes FlowCommitter.
type CommitterOptions struct {
	// SubmitTimeout bounds signing and sending the transaction.
	SubmitTimeout time.Duration
	// ReceiptWait bounds waiting for the transaction to be mined.
	ReceiptWait time.Duration
	// GasLimit, when non-zero, skips gas estimation.
	GasLimit uint64
}

// FlowCommitter records storage roots on chain through the Flow contract.
// Commit is never retried: a timeout after submission surfaces as a failure
// because the transaction may still land.
type FlowCommitter struct {
	evm     *EVMClient
	chainID *big.Int
	opts    CommitterOptions
}

// NewFlowCommitter builds a committer for evm. chainID is used for EIP-155
// signing; when nil it is read from the node.
func NewFlowCommitter(ctx context.Context, evm *EVMClient, chainID *big.Int, opts CommitterOptions) (*FlowCommitter, error) {
	if evm == nil || evm.Flow == nil {
		return nil, errors.New("blockchain: evm client with flow binding is required")
	}
	if chainID == nil {
		id, err := evm.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		chainID = id
	}
	return &FlowCommitter{evm: evm, chainID: new(big.Int).Set(chainID), opts: opts}, nil
}

// ChainID returns the chain id used for signing.
func (c *FlowCommitter) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Commit submits flow(root, data) and waits for a successful receipt.
func (c *FlowCommitter) Commit(ctx context.Context, cred *signer.Credential, root [32]byte, data []byte) (common.Hash, error) {
	if cred == nil {
		return common.Hash{}, signer.ErrInvalidCredentialFormat
	}
	opts, err := GetTransactOpts(c.chainID, cred)
	if err != nil {
		return common.Hash{}, err
	}
	opts.GasLimit = c.opts.GasLimit

	submitCtx, cancel := withTimeout(ctx, c.opts.SubmitTimeout)
	opts.Context = submitCtx
	tx, err := c.evm.Flow.Submit(opts, root, data)
	cancel()
	if err != nil {
		zap.L().Error("failed to submit commitment", zap.String("root", common.Hash(root).Hex()), zap.Error(err))
		return common.Hash{}, fmt.Errorf("submit commitment: %w", err)
	}
	zap.L().Debug("Commitment submitted",
		zap.String("root", common.Hash(root).Hex()),
		zap.String("tx", tx.Hash().Hex()))

	waitCtx, cancel := withTimeout(ctx, c.opts.ReceiptWait)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.evm.Client, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("wait for commitment %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrCommitReverted, tx.Hash().Hex())
	}
	zap.L().Info("Commitment mined",
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()))
	return tx.Hash(), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
