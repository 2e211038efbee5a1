package chainio

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/healchain/healchain-backend/pkg/client/ethclient"
)

// StakeRegistry reads on-chain stake amounts. Selection uses one batched
// call per attempt so every participant is judged against the same snapshot.
type StakeRegistry struct {
	client  ethclient.EthClient
	address common.Address
}

func NewStakeRegistry(client ethclient.EthClient, address common.Address) *StakeRegistry {
	return &StakeRegistry{
		client:  client,
		address: address,
	}
}

// BatchStakes returns the stakes of the given accounts, index-aligned.
func (s *StakeRegistry) BatchStakes(ctx context.Context, accounts []common.Address) ([]*big.Int, error) {
	out, err := s.call(ctx, "batchStakes", accounts)
	if err != nil {
		return nil, err
	}

	values, err := StakeRegistryABI.Unpack("batchStakes", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack batchStakes result: %w", err)
	}

	stakes, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected stakes type in batchStakes result")
	}
	if len(stakes) != len(accounts) {
		return nil, fmt.Errorf("batchStakes returned %d stakes for %d accounts", len(stakes), len(accounts))
	}
	return stakes, nil
}

func (s *StakeRegistry) call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	input, err := StakeRegistryABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	out, err := s.client.CallContract(ctx, ethereum.CallMsg{
		To:   &s.address,
		Data: input,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call to %s failed: %w", method, s.address.Hex(), err)
	}
	return out, nil
}
