package cryptography

import (
	"crypto/elliptic"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// P256Order is the group order of secp256r1, the curve used by the
// functional-encryption layer of the miner and aggregator processes.
var P256Order = elliptic.P256().Params().N

// CommitHash computes the publish-time commitment over a private accuracy
// value and its nonce: keccak256(accuracy || nonce), 0x-prefixed hex.
func CommitHash(accuracy string, nonce string) string {
	return crypto.Keccak256Hash([]byte(accuracy + nonce)).Hex()
}

// HashToScalar joins the given parts with "||", hashes them with keccak256
// and reduces the digest modulo the secp256r1 group order. Any party holding
// the same parts recomputes the same scalar.
func HashToScalar(parts []string) (*big.Int, error) {
	digest := crypto.Keccak256([]byte(strings.Join(parts, "||")))
	scalar := new(big.Int).SetBytes(digest)
	scalar.Mod(scalar, P256Order)
	if scalar.Sign() == 0 {
		return nil, errors.New("derived scalar is zero")
	}
	return scalar, nil
}
