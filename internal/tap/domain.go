// Package tap implements the receipt aggregation engine: EIP-712
// typed-message hashing, signed envelopes, the signer registry, the
// parallel batch verifier, the aggregator fold, the RAV signer, the V1/V2
// version adapter, and the dispatch shell that ties them together.
package tap

import (
	"math/big"

	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

// Version identifies which wire schema a receipt/RAV belongs to.
type Version int

const (
	V1 Version = iota
	V2
)

func (v Version) String() string {
	if v == V2 {
		return "v2"
	}
	return "v1"
}

// Domain is the EIP-712 domain separator input. spec.md §3: "The same
// domain is used across all receipts in one aggregation." V1 and V2 use
// distinct domain names ("TAP" vs "GraphTally") so a V1 digest can never
// collide with a V2 digest even if a field layout were reused.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract tapcrypto.Address
}

// DomainV1 returns the canonical TAP domain for a given chain/contract.
func DomainV1(chainID *big.Int, verifyingContract tapcrypto.Address) Domain {
	return Domain{Name: "TAP", Version: "1", ChainID: chainID, VerifyingContract: verifyingContract}
}

// DomainV2 returns the canonical GraphTally domain (spec.md §3: "historical
// fix" — V2 receipts are hashed under a renamed domain, not the original
// "TAP" name, to keep the two versions from ever sharing a digest).
func DomainV2(chainID *big.Int, verifyingContract tapcrypto.Address) Domain {
	return Domain{Name: "GraphTally", Version: "1", ChainID: chainID, VerifyingContract: verifyingContract}
}
