package keys

import (
	"math/big"
	"sort"
	"strings"

	"github.com/healchain/healchain-backend/pkg/cryptography"
)

// DeriveSharedScalar computes the functional-encryption scalar from public
// inputs only: keccak256(publisher || pk1 || pk2 || ... || taskID || nonce)
// reduced modulo the secp256r1 group order, with the miner public keys in
// sorted order. There is no interactive handshake; the selected aggregator
// recomputes the same scalar offline from the same inputs.
func DeriveSharedScalar(publisher string, minerPublicKeys []string, taskID string, nonce string) (*big.Int, error) {
	sorted := make([]string, len(minerPublicKeys))
	copy(sorted, minerPublicKeys)
	sort.Strings(sorted)

	parts := make([]string, 0, len(sorted)+3)
	parts = append(parts, strings.ToLower(publisher))
	parts = append(parts, sorted...)
	parts = append(parts, taskID, nonce)

	return cryptography.HashToScalar(parts)
}
