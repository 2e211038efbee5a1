package escrow

import (
	"errors"
	"fmt"
)

// Permanent verification failures. These never succeed on retry; curing them
// requires submitting a corrected claim, usually with a new transaction.
var (
	ErrCommitMismatch      = errors.New("recomputed commit hash does not match claim")
	ErrTransactionNotFound = errors.New("escrow transaction not found")
	ErrTransactionReverted = errors.New("escrow transaction reverted")
	ErrWrongCall           = errors.New("transaction is not an escrow publish call")
	ErrWrongTaskID         = errors.New("transaction publishes a different task")
	ErrNoContractCode      = errors.New("no contract code at resolved address")
	ErrPublisherMismatch   = errors.New("on-chain publisher does not match claim")
	ErrEscrowNotLocked     = errors.New("on-chain escrow status is not locked")
	ErrZeroBalance         = errors.New("on-chain escrow balance is zero")
	ErrBalanceMismatch     = errors.New("on-chain escrow balance does not match expected amount")
)

// Retryable ledger-timing failures. The claim may verify once the ledger
// node catches up; callers should back off and resubmit the same claim.
var (
	ErrTransactionPending = errors.New("escrow transaction not yet mined")
	ErrReceiptUnavailable = errors.New("escrow receipt not yet queryable")
)

// VerificationError reports which admission check failed and against which
// transaction, so an operator can resubmit a corrected claim.
type VerificationError struct {
	Check  string
	TxHash string
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("escrow verification failed at %s (tx %s): %v", e.Check, e.TxHash, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is a ledger-timing error that may
// clear on its own, as opposed to a permanent verification failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionPending) || errors.Is(err, ErrReceiptUnavailable)
}
