package chainio

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// On-chain escrow record statuses, as stored by the contract.
const (
	EscrowStatusPending uint8 = 0
	EscrowStatusLocked  uint8 = 1
	EscrowStatusClosed  uint8 = 2
)

const escrowABIJSON = `[
	{
		"name": "publishTask",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "taskID", "type": "string"},
			{"name": "commitHash", "type": "bytes32"},
			{"name": "deadline", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"name": "getTask",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "taskID", "type": "string"}],
		"outputs": [
			{"name": "publisher", "type": "address"},
			{"name": "status", "type": "uint8"},
			{"name": "reward", "type": "uint256"}
		]
	},
	{
		"name": "balances",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "taskID", "type": "string"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

const stakeRegistryABIJSON = `[
	{
		"name": "batchStakes",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "accounts", "type": "address[]"}],
		"outputs": [{"name": "", "type": "uint256[]"}]
	}
]`

var (
	EscrowABI        = mustParseABI(escrowABIJSON)
	StakeRegistryABI = mustParseABI(stakeRegistryABIJSON)
)

func mustParseABI(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded ABI: %v", err))
	}
	return parsed
}

var ErrNotPublishCall = errors.New("transaction is not a publishTask call")

// PublishCall is the decoded payload of an escrow publish/lock transaction.
type PublishCall struct {
	TaskID     string
	CommitHash [32]byte
	Deadline   *big.Int
}

// DecodePublishCall decodes transaction input against the escrow interface
// and verifies the invoked function is publishTask.
func DecodePublishCall(input []byte) (PublishCall, error) {
	if len(input) < 4 {
		return PublishCall{}, ErrNotPublishCall
	}

	method, err := EscrowABI.MethodById(input[:4])
	if err != nil || method.Name != "publishTask" {
		return PublishCall{}, ErrNotPublishCall
	}

	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return PublishCall{}, fmt.Errorf("failed to unpack publishTask call: %w", err)
	}

	taskID, ok := values[0].(string)
	if !ok {
		return PublishCall{}, fmt.Errorf("unexpected taskID type in publishTask call")
	}
	commitHash, ok := values[1].([32]byte)
	if !ok {
		return PublishCall{}, fmt.Errorf("unexpected commitHash type in publishTask call")
	}
	deadline, ok := values[2].(*big.Int)
	if !ok {
		return PublishCall{}, fmt.Errorf("unexpected deadline type in publishTask call")
	}

	return PublishCall{
		TaskID:     taskID,
		CommitHash: commitHash,
		Deadline:   deadline,
	}, nil
}
