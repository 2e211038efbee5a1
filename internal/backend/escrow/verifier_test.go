package escrow

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healchain/healchain-backend/internal/backend/chainio"
	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/cryptography"
	"github.com/healchain/healchain-backend/pkg/logging"
)

type recordingTaskRepo struct {
	created []types.TaskData
}

func (r *recordingTaskRepo) CreateTask(task *types.TaskData) error {
	r.created = append(r.created, *task)
	return nil
}

func (r *recordingTaskRepo) GetTaskByID(taskID string) (types.TaskData, error) {
	return types.TaskData{}, repository.ErrNotFound
}

func (r *recordingTaskRepo) ListTasksByStatus(status types.TaskStatus) ([]types.TaskData, error) {
	return nil, nil
}

func (r *recordingTaskRepo) CompareAndSetStatus(taskID string, from, to types.TaskStatus) (bool, error) {
	return false, nil
}

func (r *recordingTaskRepo) SetAggregator(taskID string, aggregator string) error { return nil }
func (r *recordingTaskRepo) CountTasks() (int64, error)                           { return 0, nil }

// fakeEthClient serves one transaction and scripted contract reads.
type fakeEthClient struct {
	tx         *ethtypes.Transaction
	pending    bool
	txErr      error
	receipt    *ethtypes.Receipt
	receiptErr error
	code       []byte

	getTaskOut []byte
	getTaskErr error
	balanceOut []byte
	balanceErr error
}

func (c *fakeEthClient) TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	if c.txErr != nil {
		return nil, false, c.txErr
	}
	return c.tx, c.pending, nil
}

func (c *fakeEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	if c.receiptErr != nil {
		return nil, c.receiptErr
	}
	return c.receipt, nil
}

func (c *fakeEthClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return c.code, nil
}

func (c *fakeEthClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	switch {
	case bytes.Equal(call.Data[:4], chainio.EscrowABI.Methods["getTask"].ID):
		if c.getTaskErr != nil {
			return nil, c.getTaskErr
		}
		return c.getTaskOut, nil
	case bytes.Equal(call.Data[:4], chainio.EscrowABI.Methods["balances"].ID):
		if c.balanceErr != nil {
			return nil, c.balanceErr
		}
		return c.balanceOut, nil
	}
	return nil, errors.New("unexpected contract call")
}

var (
	testContract  = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	testPublisher = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	testReward    = big.NewInt(1_000_000)
)

func publishData(t *testing.T, taskID string, commitHash string) []byte {
	t.Helper()
	data, err := chainio.EscrowABI.Pack("publishTask",
		taskID, common.HexToHash(commitHash), big.NewInt(1900000000))
	require.NoError(t, err)
	return data
}

func packGetTask(t *testing.T, publisher common.Address, status uint8, reward *big.Int) []byte {
	t.Helper()
	out, err := chainio.EscrowABI.Methods["getTask"].Outputs.Pack(publisher, status, reward)
	require.NoError(t, err)
	return out
}

func packBalance(t *testing.T, balance *big.Int) []byte {
	t.Helper()
	out, err := chainio.EscrowABI.Methods["balances"].Outputs.Pack(balance)
	require.NoError(t, err)
	return out
}

func admitRequest(commitHash string) *types.AdmitTaskRequest {
	return &types.AdmitTaskRequest{
		TaskID:     "task-1",
		Publisher:  testPublisher.Hex(),
		Accuracy:   "0.95",
		CommitHash: commitHash,
		Nonce:      "nonce-1",
		Deadline:   time.Now().UTC().Add(24 * time.Hour),
		Dataset:    "chest-xray",
		MinMiners:  2,
		MaxMiners:  10,
		TxHash:     "0x0000000000000000000000000000000000000000000000000000000000000001",
	}
}

// healthyClient scripts the full happy path: mined transaction, successful
// receipt, contract code, and a consistent on-chain task record.
func healthyClient(t *testing.T, commitHash string) *fakeEthClient {
	t.Helper()
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    0,
		To:       &testContract,
		Value:    new(big.Int).Set(testReward),
		Gas:      100000,
		GasPrice: big.NewInt(1),
		Data:     publishData(t, "task-1", commitHash),
	})
	return &fakeEthClient{
		tx:         tx,
		receipt:    &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful},
		code:       []byte{0x60, 0x80},
		getTaskOut: packGetTask(t, testPublisher, chainio.EscrowStatusLocked, testReward),
		balanceOut: packBalance(t, testReward),
	}
}

func newTestVerifier(client *fakeEthClient) (*Verifier, *recordingTaskRepo) {
	tasks := &recordingTaskRepo{}
	verifier := NewVerifier(client, tasks, Config{
		ConfiguredContract: testContract,
		BalanceTolerance:   big.NewInt(0),
		ReceiptAttempts:    1,
		ReceiptDelay:       time.Millisecond,
	}, logging.NewNoOpLogger())
	return verifier, tasks
}

func TestAdmitTaskDirectReadPath(t *testing.T) {
	commitHash := cryptography.CommitHash("0.95", "nonce-1")
	verifier, tasks := newTestVerifier(healthyClient(t, commitHash))

	task, err := verifier.AdmitTask(context.Background(), admitRequest(commitHash))
	require.NoError(t, err)
	require.Len(t, tasks.created, 1)

	assert.Equal(t, "task-1", task.TaskID)
	assert.Equal(t, types.TaskStatusOpen, task.Status)
	assert.Equal(t, strings.ToLower(testPublisher.Hex()), task.Publisher)
	assert.Equal(t, testContract.Hex(), task.ContractAddress)
	assert.Equal(t, commitHash, task.CommitHash)
}

func TestAdmitTaskResolvesContractFromTransaction(t *testing.T) {
	commitHash := cryptography.CommitHash("0.95", "nonce-1")
	client := healthyClient(t, commitHash)

	tasks := &recordingTaskRepo{}
	verifier := NewVerifier(client, tasks, Config{
		// Deliberately stale configuration; the transaction recipient wins.
		ConfiguredContract: common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		ReceiptAttempts:    1,
		ReceiptDelay:       time.Millisecond,
	}, logging.NewNoOpLogger())

	task, err := verifier.AdmitTask(context.Background(), admitRequest(commitHash))
	require.NoError(t, err)
	assert.Equal(t, testContract.Hex(), task.ContractAddress)
}

func TestAdmitTaskTransactionDerivedFallback(t *testing.T) {
	commitHash := cryptography.CommitHash("0.95", "nonce-1")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	chainID := big.NewInt(1337)
	signer := ethtypes.LatestSignerForChainID(chainID)
	tx, err := ethtypes.SignNewTx(key, signer, &ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     0,
		To:        &testContract,
		Value:     new(big.Int).Set(testReward),
		Gas:       100000,
		GasFeeCap: big.NewInt(1),
		GasTipCap: big.NewInt(1),
		Data:      publishData(t, "task-1", commitHash),
	})
	require.NoError(t, err)

	client := &fakeEthClient{
		tx:         tx,
		receipt:    &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful},
		code:       []byte{0x60, 0x80},
		getTaskErr: errors.New("execution reverted"),
		balanceOut: packBalance(t, testReward),
	}
	verifier, tasks := newTestVerifier(client)

	req := admitRequest(commitHash)
	req.Publisher = sender.Hex()

	task, err := verifier.AdmitTask(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, tasks.created, 1)
	assert.Equal(t, strings.ToLower(sender.Hex()), task.Publisher)
}

func TestAdmitTaskFallbackRejectsWrongSender(t *testing.T) {
	commitHash := cryptography.CommitHash("0.95", "nonce-1")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	chainID := big.NewInt(1337)
	tx, err := ethtypes.SignNewTx(key, ethtypes.LatestSignerForChainID(chainID), &ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		To:        &testContract,
		Value:     new(big.Int).Set(testReward),
		Gas:       100000,
		GasFeeCap: big.NewInt(1),
		GasTipCap: big.NewInt(1),
		Data:      publishData(t, "task-1", commitHash),
	})
	require.NoError(t, err)

	client := &fakeEthClient{
		tx:         tx,
		receipt:    &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful},
		code:       []byte{0x60, 0x80},
		getTaskErr: errors.New("execution reverted"),
		balanceOut: packBalance(t, testReward),
	}
	verifier, tasks := newTestVerifier(client)

	// Claim a publisher that did not sign the transaction.
	_, err = verifier.AdmitTask(context.Background(), admitRequest(commitHash))
	assert.ErrorIs(t, err, ErrPublisherMismatch)
	assert.Empty(t, tasks.created)
}

func TestAdmitTaskRejections(t *testing.T) {
	commitHash := cryptography.CommitHash("0.95", "nonce-1")

	tests := []struct {
		name    string
		client  func(t *testing.T) *fakeEthClient
		request func() *types.AdmitTaskRequest
		wantErr error
	}{
		{
			name:   "commit hash mismatch",
			client: func(t *testing.T) *fakeEthClient { return healthyClient(t, commitHash) },
			request: func() *types.AdmitTaskRequest {
				req := admitRequest(commitHash)
				req.CommitHash = cryptography.CommitHash("0.99", "nonce-1")
				return req
			},
			wantErr: ErrCommitMismatch,
		},
		{
			name: "transaction not found",
			client: func(t *testing.T) *fakeEthClient {
				return &fakeEthClient{txErr: ethereum.NotFound}
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrTransactionNotFound,
		},
		{
			name: "transaction still pending",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.pending = true
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrTransactionPending,
		},
		{
			name: "receipt unavailable",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.receiptErr = errors.New("not found")
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrReceiptUnavailable,
		},
		{
			name: "transaction reverted",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.receipt = &ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed}
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrTransactionReverted,
		},
		{
			name: "not an escrow publish call",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.tx = ethtypes.NewTx(&ethtypes.LegacyTx{
					To: &testContract, Value: testReward, Gas: 100000,
					GasPrice: big.NewInt(1), Data: []byte{0xde, 0xad, 0xbe, 0xef, 0x01},
				})
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrWrongCall,
		},
		{
			name: "publishes a different task",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.tx = ethtypes.NewTx(&ethtypes.LegacyTx{
					To: &testContract, Value: testReward, Gas: 100000,
					GasPrice: big.NewInt(1), Data: publishData(t, "task-other", commitHash),
				})
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrWrongTaskID,
		},
		{
			name: "no contract code at address",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.code = nil
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrNoContractCode,
		},
		{
			name: "claimed publisher differs from record",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.getTaskOut = packGetTask(t, common.HexToAddress("0x1234"), chainio.EscrowStatusLocked, testReward)
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrPublisherMismatch,
		},
		{
			name: "escrow not locked",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.getTaskOut = packGetTask(t, testPublisher, chainio.EscrowStatusPending, testReward)
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrEscrowNotLocked,
		},
		{
			name: "zero escrow balance",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.balanceOut = packBalance(t, big.NewInt(0))
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrZeroBalance,
		},
		{
			name: "balance does not match reward",
			client: func(t *testing.T) *fakeEthClient {
				client := healthyClient(t, commitHash)
				client.balanceOut = packBalance(t, big.NewInt(999))
				return client
			},
			request: func() *types.AdmitTaskRequest { return admitRequest(commitHash) },
			wantErr: ErrBalanceMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier, tasks := newTestVerifier(tt.client(t))

			_, err := verifier.AdmitTask(context.Background(), tt.request())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var verr *VerificationError
			assert.ErrorAs(t, err, &verr)

			assert.Empty(t, tasks.created, "no failure path may write a task")
		})
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := &VerificationError{Check: "receipt_lookup", Err: ErrReceiptUnavailable}
	assert.True(t, IsRetryable(retryable))
	assert.True(t, IsRetryable(ErrTransactionPending))

	permanent := &VerificationError{Check: "commit_hash", Err: ErrCommitMismatch}
	assert.False(t, IsRetryable(permanent))
}
