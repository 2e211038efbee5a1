package chainio

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/healchain/healchain-backend/pkg/client/ethclient"
)

// OnChainTask is the escrow contract's record of a published task.
type OnChainTask struct {
	Publisher common.Address
	Status    uint8
	Reward    *big.Int
}

// EscrowReader reads escrow state from one resolved contract address. The
// address is fixed per task at admission time, not taken from configuration.
type EscrowReader struct {
	client  ethclient.EthClient
	address common.Address
}

func NewEscrowReader(client ethclient.EthClient, address common.Address) *EscrowReader {
	return &EscrowReader{
		client:  client,
		address: address,
	}
}

func (r *EscrowReader) Address() common.Address {
	return r.address
}

// HasCode reports whether a contract actually exists at the reader's address.
func (r *EscrowReader) HasCode(ctx context.Context) (bool, error) {
	code, err := r.client.CodeAt(ctx, r.address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch code at %s: %w", r.address.Hex(), err)
	}
	return len(code) > 0, nil
}

// GetTask reads the on-chain task record directly from the contract.
func (r *EscrowReader) GetTask(ctx context.Context, taskID string) (OnChainTask, error) {
	out, err := r.call(ctx, "getTask", taskID)
	if err != nil {
		return OnChainTask{}, err
	}

	values, err := EscrowABI.Unpack("getTask", out)
	if err != nil {
		return OnChainTask{}, fmt.Errorf("failed to unpack getTask result: %w", err)
	}

	publisher, ok := values[0].(common.Address)
	if !ok {
		return OnChainTask{}, fmt.Errorf("unexpected publisher type in getTask result")
	}
	status, ok := values[1].(uint8)
	if !ok {
		return OnChainTask{}, fmt.Errorf("unexpected status type in getTask result")
	}
	reward, ok := values[2].(*big.Int)
	if !ok {
		return OnChainTask{}, fmt.Errorf("unexpected reward type in getTask result")
	}

	return OnChainTask{
		Publisher: publisher,
		Status:    status,
		Reward:    reward,
	}, nil
}

// Balance reads the escrow balance mapping for the task.
func (r *EscrowReader) Balance(ctx context.Context, taskID string) (*big.Int, error) {
	out, err := r.call(ctx, "balances", taskID)
	if err != nil {
		return nil, err
	}

	values, err := EscrowABI.Unpack("balances", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balances result: %w", err)
	}

	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balance type in balances result")
	}
	return balance, nil
}

func (r *EscrowReader) call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	input, err := EscrowABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.address,
		Data: input,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call to %s failed: %w", method, r.address.Hex(), err)
	}
	return out, nil
}
