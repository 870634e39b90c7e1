package tap

import "github.com/graphprotocol/tap-aggregator/internal/tapcrypto"

// ReceiptV1 is the allocation-based receipt (spec.md §3).
type ReceiptV1 struct {
	AllocationID tapcrypto.Address `json:"allocation_id"`
	TimestampNs  uint64            `json:"timestamp_ns"`
	Nonce        uint64            `json:"nonce"`
	Value        tapcrypto.Uint128 `json:"value"`
}

// RavV1 is the allocation-based Receipt Aggregate Voucher (spec.md §3).
type RavV1 struct {
	AllocationID   tapcrypto.Address `json:"allocation_id"`
	TimestampNs    uint64            `json:"timestamp_ns"`
	ValueAggregate tapcrypto.Uint128 `json:"value_aggregate"`
}

// ReceiptV2 is the collection-based receipt (spec.md §3). Field keys stay
// snake_case on the wire; only the RAV uses camelCase. This asymmetry is a
// preserved historical quirk of the ecosystem wire format, not a mistake —
// spec.md §9 is explicit that it must not be normalized.
type ReceiptV2 struct {
	CollectionID    tapcrypto.Hash32  `json:"collection_id"`
	Payer           tapcrypto.Address `json:"payer"`
	DataService     tapcrypto.Address `json:"data_service"`
	ServiceProvider tapcrypto.Address `json:"service_provider"`
	TimestampNs     uint64            `json:"timestamp_ns"`
	Nonce           uint64            `json:"nonce"`
	Value           tapcrypto.Uint128 `json:"value"`
}

// RavV2 is the collection-based RAV (spec.md §3). camelCase keys, per the
// same wire-compatibility requirement.
type RavV2 struct {
	CollectionID    tapcrypto.Hash32  `json:"collectionId"`
	Payer           tapcrypto.Address `json:"payer"`
	DataService     tapcrypto.Address `json:"dataService"`
	ServiceProvider tapcrypto.Address `json:"serviceProvider"`
	TimestampNs     uint64            `json:"timestampNs"`
	ValueAggregate  tapcrypto.Uint128 `json:"valueAggregate"`
	// Metadata has no defined semantics for ingested receipts (spec.md §9
	// Open Questions); the fold always emits it empty unless a pass-through
	// policy is explicitly configured (see Fold's MetadataPolicy).
	Metadata []byte `json:"metadata"`
}

// Signature is a 65-byte ECDSA secp256k1 signature split into its R, S, V
// components, always in canonical low-S form when produced by this engine
// (spec.md §4.2).
type Signature struct {
	R tapcrypto.Hash32 `json:"r"`
	S tapcrypto.Hash32 `json:"s"`
	V uint8            `json:"v"`
}

// Bytes65 packs the signature into go-ethereum's 65-byte R||S||V form with V
// in {0,1}, as required by crypto.SigToPub/crypto.Ecrecover.
func (s Signature) Bytes65() [65]byte {
	var out [65]byte
	copy(out[0:32], s.R[:])
	copy(out[32:64], s.S[:])
	v := s.V
	if v >= 27 {
		v -= 27
	}
	out[64] = v
	return out
}

// SignatureFrom65 unpacks go-ethereum's 65-byte R||S||V signature (V in
// {0,1}) into wire form (V in {27,28}).
func SignatureFrom65(sig [65]byte) Signature {
	var s Signature
	copy(s.R[:], sig[0:32])
	copy(s.S[:], sig[32:64])
	s.V = sig[64] + 27
	return s
}

// SignedReceiptV1 / SignedRavV1 / SignedReceiptV2 / SignedRavV2 are the
// signed-envelope wire types of spec.md §3: "{ message, signature }".

type SignedReceiptV1 struct {
	Message   ReceiptV1 `json:"message"`
	Signature Signature `json:"signature"`
}

type SignedRavV1 struct {
	Message   RavV1     `json:"message"`
	Signature Signature `json:"signature"`
}

type SignedReceiptV2 struct {
	Message   ReceiptV2 `json:"message"`
	Signature Signature `json:"signature"`
}

type SignedRavV2 struct {
	Message   RavV2     `json:"message"`
	Signature Signature `json:"signature"`
}
