package escrow

import (
	"math/big"
)

// FundsEvidence records how fund custody was confirmed: either by reading
// the contract's task record directly, or derived from the transaction when
// direct reads are unavailable. Both variants require the independent
// balance read; the type makes that invariant explicit rather than leaving
// it to a fallback branch.
type FundsEvidence interface {
	Kind() string
}

// DirectRead is the primary path: the task record and balance were read
// straight from the resolved contract.
type DirectRead struct {
	Balance *big.Int
	Status  uint8
}

func (DirectRead) Kind() string { return "direct_read" }

// TransactionDerived is the fallback path: custody was confirmed from the
// transaction value and sender, cross-checked against the balance mapping.
type TransactionDerived struct {
	Value       *big.Int
	SenderMatch bool
}

func (TransactionDerived) Kind() string { return "transaction_derived" }
