package chainio

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePublishCall(t *testing.T) {
	commit := common.HexToHash("0xabababababababababababababababababababababababababababababababab")
	deadline := big.NewInt(1900000000)

	input, err := EscrowABI.Pack("publishTask", "task-42", commit, deadline)
	require.NoError(t, err)

	call, err := DecodePublishCall(input)
	require.NoError(t, err)
	assert.Equal(t, "task-42", call.TaskID)
	assert.Equal(t, [32]byte(commit), call.CommitHash)
	assert.Zero(t, call.Deadline.Cmp(deadline))
}

func TestDecodePublishCallRejectsOtherInput(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := DecodePublishCall(nil)
		assert.ErrorIs(t, err, ErrNotPublishCall)
	})

	t.Run("unknown selector", func(t *testing.T) {
		_, err := DecodePublishCall([]byte{0xde, 0xad, 0xbe, 0xef})
		assert.ErrorIs(t, err, ErrNotPublishCall)
	})

	t.Run("different escrow method", func(t *testing.T) {
		input, err := EscrowABI.Pack("getTask", "task-42")
		require.NoError(t, err)
		_, err = DecodePublishCall(input)
		assert.ErrorIs(t, err, ErrNotPublishCall)
	})

	t.Run("truncated arguments", func(t *testing.T) {
		input, err := EscrowABI.Pack("publishTask", "task-42", common.Hash{}, big.NewInt(1))
		require.NoError(t, err)
		_, err = DecodePublishCall(input[:8])
		assert.Error(t, err)
	})
}

type scriptedCaller struct {
	out []byte
	err error
}

func (c *scriptedCaller) TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	return nil, false, nil
}

func (c *scriptedCaller) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return nil, nil
}

func (c *scriptedCaller) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (c *scriptedCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.out, c.err
}

func TestBatchStakesLengthMismatch(t *testing.T) {
	accounts := []common.Address{
		common.BytesToAddress([]byte{1}),
		common.BytesToAddress([]byte{2}),
	}
	// Registry answers for one account only.
	out, err := StakeRegistryABI.Methods["batchStakes"].Outputs.Pack([]*big.Int{big.NewInt(5)})
	require.NoError(t, err)

	registry := NewStakeRegistry(&scriptedCaller{out: out}, common.BytesToAddress([]byte{0xee}))
	_, err = registry.BatchStakes(context.Background(), accounts)
	assert.ErrorContains(t, err, "batchStakes returned 1 stakes for 2 accounts")
}

func TestBatchStakesAligned(t *testing.T) {
	accounts := []common.Address{
		common.BytesToAddress([]byte{1}),
		common.BytesToAddress([]byte{2}),
	}
	out, err := StakeRegistryABI.Methods["batchStakes"].Outputs.Pack([]*big.Int{big.NewInt(5), big.NewInt(7)})
	require.NoError(t, err)

	registry := NewStakeRegistry(&scriptedCaller{out: out}, common.BytesToAddress([]byte{0xee}))
	stakes, err := registry.BatchStakes(context.Background(), accounts)
	require.NoError(t, err)
	require.Len(t, stakes, 2)
	assert.Zero(t, stakes[0].Cmp(big.NewInt(5)))
	assert.Zero(t, stakes[1].Cmp(big.NewInt(7)))
}
