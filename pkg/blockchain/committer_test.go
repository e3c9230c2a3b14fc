package blockchain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/shopspring/decimal"
)

var (
	flowAddr = common.HexToAddress("0x22E03a6A89B950F1c82ec5e74F8eCa321a105296")

	// stopCode accepts any call.
	stopCode = []byte{0x00}
	// revertCode reverts every call: PUSH1 0 PUSH1 0 REVERT.
	revertCode = []byte{0x60, 0x00, 0x60, 0x00, 0xfd}
)

// newChain starts a simulated chain with a funded test account and the given
// code at the Flow address. Blocks are mined in the background.
func newChain(t *testing.T, code []byte) (*simulated.Backend, *EVMClient) {
	t.Helper()
	cred := testCredential(t)
	funds := new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))
	sim := simulated.NewBackend(types.GenesisAlloc{
		cred.Address(): {Balance: funds},
		flowAddr:       {Code: code, Balance: big.NewInt(0)},
	})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				sim.Commit()
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		wg.Wait()
		_ = sim.Close()
	})

	evm, err := NewEVMClient(sim.Client(), flowAddr)
	if err != nil {
		t.Fatalf("NewEVMClient: %v", err)
	}
	return sim, evm
}

func TestFlowCommitter_Commit(t *testing.T) {
	sim, evm := newChain(t, stopCode)
	ctx := context.Background()

	committer, err := NewFlowCommitter(ctx, evm, nil, CommitterOptions{ReceiptWait: 10 * time.Second})
	if err != nil {
		t.Fatalf("NewFlowCommitter: %v", err)
	}
	root := crypto.Keccak256Hash([]byte("payload"))
	txHash, err := committer.Commit(ctx, testCredential(t), root, []byte("payload"))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx, _, err := sim.Client().TransactionByHash(ctx, txHash)
	if err != nil {
		t.Fatalf("TransactionByHash: %v", err)
	}
	if tx.To() == nil || *tx.To() != flowAddr {
		t.Fatalf("tx sent to %v", tx.To())
	}
	want, err := evm.Flow.Pack(root, []byte("payload"))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !bytes.Equal(tx.Data(), want) {
		t.Fatal("calldata does not encode flow(root, data)")
	}
	if tx.ChainId().Cmp(committer.ChainID()) != 0 {
		t.Fatalf("chain id = %s, want %s", tx.ChainId(), committer.ChainID())
	}
}

func TestFlowCommitter_Reverted(t *testing.T) {
	_, evm := newChain(t, revertCode)
	ctx := context.Background()

	committer, err := NewFlowCommitter(ctx, evm, nil, CommitterOptions{GasLimit: 100_000, ReceiptWait: 10 * time.Second})
	if err != nil {
		t.Fatalf("NewFlowCommitter: %v", err)
	}
	_, err = committer.Commit(ctx, testCredential(t), [32]byte{1}, nil)
	if !errors.Is(err, ErrCommitReverted) {
		t.Fatalf("expected ErrCommitReverted, got %v", err)
	}
}

func TestFlowCommitter_EstimateFailure(t *testing.T) {
	_, evm := newChain(t, revertCode)
	ctx := context.Background()

	committer, err := NewFlowCommitter(ctx, evm, nil, CommitterOptions{})
	if err != nil {
		t.Fatalf("NewFlowCommitter: %v", err)
	}
	if _, err := committer.Commit(ctx, testCredential(t), [32]byte{1}, nil); err == nil {
		t.Fatal("expected submit error")
	}
	if _, err := committer.Commit(ctx, nil, [32]byte{1}, nil); err == nil {
		t.Fatal("expected error for nil credential")
	}
}

func TestEVMClient_Reads(t *testing.T) {
	_, evm := newChain(t, stopCode)
	ctx := context.Background()

	if _, err := evm.GetCurrentBlockNumber(ctx); err != nil {
		t.Fatalf("GetCurrentBlockNumber: %v", err)
	}
	wei, err := evm.Balance(ctx, testCredential(t).Address())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !WeiToToken(wei).Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance = %s", WeiToToken(wei))
	}
	opts, err := evm.GetTransactOpts(ctx, testCredential(t))
	if err != nil {
		t.Fatalf("GetTransactOpts: %v", err)
	}
	if opts.From != testCredential(t).Address() {
		t.Fatalf("From = %s", opts.From.Hex())
	}
}

func TestNewFlow_ZeroAddress(t *testing.T) {
	if _, err := NewFlow(common.Address{}, nil); err == nil {
		t.Fatal("expected error for zero address")
	}
}

func TestWeiToToken(t *testing.T) {
	if !WeiToToken(nil).IsZero() {
		t.Fatal("nil wei must be zero")
	}
	half, _ := new(big.Int).SetString("500000000000000000", 10)
	if got := WeiToToken(half).String(); got != "0.5" {
		t.Fatalf("WeiToToken = %s", got)
	}
}
