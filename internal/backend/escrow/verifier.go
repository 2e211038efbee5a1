package escrow

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/healchain/healchain-backend/internal/backend/chainio"
	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/client/ethclient"
	"github.com/healchain/healchain-backend/pkg/cryptography"
	"github.com/healchain/healchain-backend/pkg/logging"
	"github.com/healchain/healchain-backend/pkg/retry"
)

type Config struct {
	// ConfiguredContract is the convenience default; the transaction's
	// recipient is the source of truth for the escrow address.
	ConfiguredContract common.Address
	// BalanceTolerance is the absolute wei delta allowed between the balance
	// mapping and the transaction value on the fallback path.
	BalanceTolerance *big.Int
	ReceiptAttempts  int
	ReceiptDelay     time.Duration
}

// Verifier admits tasks into the store only after independently confirming
// the claimed escrow lock on the ledger. No failure path writes any state.
type Verifier struct {
	client ethclient.EthClient
	tasks  repository.TaskRepository
	cfg    Config
	logger logging.Logger
}

func NewVerifier(client ethclient.EthClient, tasks repository.TaskRepository, cfg Config, logger logging.Logger) *Verifier {
	if cfg.ReceiptAttempts <= 0 {
		cfg.ReceiptAttempts = 3
	}
	if cfg.ReceiptDelay <= 0 {
		cfg.ReceiptDelay = 2 * time.Second
	}
	if cfg.BalanceTolerance == nil {
		cfg.BalanceTolerance = big.NewInt(0)
	}
	return &Verifier{
		client: client,
		tasks:  tasks,
		cfg:    cfg,
		logger: logger,
	}
}

// AdmitTask verifies the publisher's claim against the ledger and, only if
// every check passes, persists a new task in status OPEN with the resolved
// escrow contract address attached.
func (v *Verifier) AdmitTask(ctx context.Context, req *types.AdmitTaskRequest) (*types.TaskData, error) {
	txHash := req.TxHash

	recomputed := cryptography.CommitHash(req.Accuracy, req.Nonce)
	if !strings.EqualFold(recomputed, req.CommitHash) {
		return nil, v.fail("commit_hash", txHash, ErrCommitMismatch)
	}

	tx, pending, err := v.client.TransactionByHash(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, v.fail("transaction_lookup", txHash, ErrTransactionNotFound)
		}
		return nil, v.fail("transaction_lookup", txHash, err)
	}
	if pending {
		return nil, v.fail("transaction_lookup", txHash, ErrTransactionPending)
	}

	// Receipts can lag behind "mined" on some nodes; absorb that with a
	// small fixed number of linearly spaced attempts.
	receipt, err := retry.Retry(ctx, func() (*ethtypes.Receipt, error) {
		return v.client.TransactionReceipt(ctx, tx.Hash())
	}, retry.LinearConfig(v.cfg.ReceiptAttempts, v.cfg.ReceiptDelay), v.logger)
	if err != nil {
		return nil, v.fail("receipt_lookup", txHash, ErrReceiptUnavailable)
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, v.fail("receipt_status", txHash, ErrTransactionReverted)
	}

	call, err := chainio.DecodePublishCall(tx.Data())
	if err != nil {
		return nil, v.fail("payload_decode", txHash, ErrWrongCall)
	}
	if call.TaskID != req.TaskID {
		return nil, v.fail("payload_task_id", txHash, ErrWrongTaskID)
	}

	if tx.To() == nil {
		return nil, v.fail("payload_decode", txHash, ErrWrongCall)
	}
	resolved := *tx.To()
	if resolved != v.cfg.ConfiguredContract {
		// Operational signal only: the transaction's recipient wins.
		v.logger.Warn("escrow contract address differs from configuration",
			"task_id", req.TaskID,
			"configured", v.cfg.ConfiguredContract.Hex(),
			"resolved", resolved.Hex())
	}

	reader := chainio.NewEscrowReader(v.client, resolved)

	hasCode, err := reader.HasCode(ctx)
	if err != nil {
		return nil, v.fail("contract_code", txHash, err)
	}
	if !hasCode {
		return nil, v.fail("contract_code", txHash, ErrNoContractCode)
	}

	evidence, err := v.verifyFunds(ctx, reader, tx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &types.TaskData{
		TaskID:          req.TaskID,
		Publisher:       strings.ToLower(req.Publisher),
		CommitHash:      req.CommitHash,
		Nonce:           req.Nonce,
		Deadline:        req.Deadline.UTC(),
		Dataset:         req.Dataset,
		MinMiners:       req.MinMiners,
		MaxMiners:       req.MaxMiners,
		EscrowTxHash:    txHash,
		ContractAddress: resolved.Hex(),
		Status:          types.TaskStatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := v.tasks.CreateTask(task); err != nil {
		return nil, err
	}

	v.logger.Info("task admitted",
		"task_id", task.TaskID,
		"tx_hash", txHash,
		"contract", resolved.Hex(),
		"evidence", evidence.Kind())
	return task, nil
}

// verifyFunds confirms fund custody. The direct contract read is preferred;
// when it is unavailable the transaction-derived path still re-reads the
// balance mapping independently, since a successful transaction alone never
// admits a task.
func (v *Verifier) verifyFunds(ctx context.Context, reader *chainio.EscrowReader, tx *ethtypes.Transaction, req *types.AdmitTaskRequest) (FundsEvidence, error) {
	txHash := req.TxHash
	claimedPublisher := common.HexToAddress(req.Publisher)

	onchain, err := reader.GetTask(ctx, req.TaskID)
	if err == nil {
		if onchain.Publisher != claimedPublisher {
			return nil, v.fail("publisher_match", txHash, ErrPublisherMismatch)
		}
		if onchain.Status != chainio.EscrowStatusLocked {
			return nil, v.fail("escrow_status", txHash, ErrEscrowNotLocked)
		}
		balance, err := reader.Balance(ctx, req.TaskID)
		if err != nil {
			return nil, v.fail("balance_read", txHash, err)
		}
		if balance.Sign() == 0 {
			return nil, v.fail("balance_read", txHash, ErrZeroBalance)
		}
		if balance.Cmp(onchain.Reward) != 0 {
			return nil, v.fail("balance_read", txHash, ErrBalanceMismatch)
		}
		return DirectRead{Balance: balance, Status: onchain.Status}, nil
	}

	v.logger.Warn("direct contract read unavailable, using transaction-derived verification",
		"task_id", req.TaskID, "error", err)

	if tx.Value().Sign() == 0 {
		return nil, v.fail("transaction_value", txHash, ErrZeroBalance)
	}

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil || sender != claimedPublisher {
		return nil, v.fail("transaction_sender", txHash, ErrPublisherMismatch)
	}

	balance, err := reader.Balance(ctx, req.TaskID)
	if err != nil {
		return nil, v.fail("balance_read", txHash, err)
	}
	if balance.Sign() == 0 {
		return nil, v.fail("balance_read", txHash, ErrZeroBalance)
	}
	diff := new(big.Int).Sub(balance, tx.Value())
	if diff.CmpAbs(v.cfg.BalanceTolerance) > 0 {
		return nil, v.fail("balance_read", txHash, ErrBalanceMismatch)
	}

	return TransactionDerived{Value: tx.Value(), SenderMatch: true}, nil
}

func (v *Verifier) fail(check string, txHash string, err error) error {
	verr := &VerificationError{Check: check, TxHash: txHash, Err: err}
	if IsRetryable(err) {
		v.logger.Warn("task admission deferred", "check", check, "tx_hash", txHash, "error", err)
	} else {
		v.logger.Error("task admission rejected", "check", check, "tx_hash", txHash, "error", err)
	}
	return verr
}
