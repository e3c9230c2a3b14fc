package blockchain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FlowABI declares the single Flow entry point used for storage commitments.
const FlowABI = `[{"type":"function","name":"flow","inputs":[{"name":"root","type":"bytes32"},{"name":"data","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"}]`

const flowMethod = "flow"

// Flow is a binding to the Flow contract.
type Flow struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewFlow binds the Flow contract deployed at address.
func NewFlow(address common.Address, backend bind.ContractBackend) (*Flow, error) {
	if address == (common.Address{}) {
		return nil, errors.New("blockchain: flow contract address is zero")
	}
	parsed, err := abi.JSON(strings.NewReader(FlowABI))
	if err != nil {
		return nil, err
	}
	return &Flow{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// Address returns the contract address.
func (f *Flow) Address() common.Address {
	return f.address
}

// Pack returns the calldata of flow(root, data).
func (f *Flow) Pack(root [32]byte, data []byte) ([]byte, error) {
	return f.abi.Pack(flowMethod, root, data)
}

// Submit sends flow(root, data) signed by opts.
func (f *Flow) Submit(opts *bind.TransactOpts, root [32]byte, data []byte) (*types.Transaction, error) {
	input, err := f.Pack(root, data)
	if err != nil {
		return nil, err
	}
	return f.contract.RawTransact(opts, input)
}
