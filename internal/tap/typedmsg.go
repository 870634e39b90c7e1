package tap

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

// Type hashes are computed once at package init, mirroring the teacher's
// package-level voucherTypeHash (internal/voucher/eip712.go). Each wire
// schema gets its own type string; V1 and V2 never share one, so a V2
// struct can never hash to a value a V1 verifier would accept even if the
// domain check were somehow bypassed.
var (
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))
	receiptV1TypeHash = crypto.Keccak256Hash([]byte(
		"Receipt(address allocationId,uint64 timestampNs,uint64 nonce,uint128 value)",
	))
	ravV1TypeHash = crypto.Keccak256Hash([]byte(
		"ReceiptAggregateVoucher(address allocationId,uint64 timestampNs,uint128 valueAggregate)",
	))
	receiptV2TypeHash = crypto.Keccak256Hash([]byte(
		"Receipt(bytes32 collectionId,address payer,address dataService,address serviceProvider,uint64 timestampNs,uint64 nonce,uint128 value)",
	))
	ravV2TypeHash = crypto.Keccak256Hash([]byte(
		"ReceiptAggregateVoucher(bytes32 collectionId,address payer,address dataService,address serviceProvider,uint64 timestampNs,uint128 valueAggregate,bytes metadata)",
	))
)

// domainSeparator computes the EIP-712 domain separator (spec.md §4.1),
// generalizing the teacher's internal/voucher/eip712.go domainSeparator
// from one fixed domain to an arbitrary Domain value.
func domainSeparator(d Domain) tapcrypto.Hash32 {
	nameHash := crypto.Keccak256Hash([]byte(d.Name))
	versionHash := crypto.Keccak256Hash([]byte(d.Version))

	encoded := make([]byte, 5*32)
	copy(encoded[0:32], eip712DomainTypeHash[:])
	copy(encoded[32:64], nameHash[:])
	copy(encoded[64:96], versionHash[:])
	d.ChainID.FillBytes(encoded[96:128])
	copy(encoded[140:160], d.VerifyingContract.Bytes())

	return tapcrypto.Hash32(crypto.Keccak256Hash(encoded))
}

func put32(dst []byte, slotStart int, rightAligned []byte) {
	copy(dst[slotStart+32-len(rightAligned):slotStart+32], rightAligned)
}

func putUint64(dst []byte, slotStart int, v uint64) {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	put32(dst, slotStart, b[:])
}

// hashStructReceiptV1 implements hashStruct for a V1 receipt.
func hashStructReceiptV1(r ReceiptV1) tapcrypto.Hash32 {
	enc := make([]byte, 4*32)
	copy(enc[0:32], receiptV1TypeHash[:])
	put32(enc, 32, r.AllocationID.Bytes())
	putUint64(enc, 64, r.TimestampNs)
	putUint64(enc, 96, r.Nonce)
	valueSlot := r.Value.FillBytes32()
	enc = append(enc, valueSlot[:]...)
	return tapcrypto.Hash32(crypto.Keccak256Hash(enc))
}

// hashStructRavV1 implements hashStruct for a V1 RAV.
func hashStructRavV1(r RavV1) tapcrypto.Hash32 {
	enc := make([]byte, 3*32)
	copy(enc[0:32], ravV1TypeHash[:])
	put32(enc, 32, r.AllocationID.Bytes())
	putUint64(enc, 64, r.TimestampNs)
	valueSlot := r.ValueAggregate.FillBytes32()
	enc = append(enc, valueSlot[:]...)
	return tapcrypto.Hash32(crypto.Keccak256Hash(enc))
}

// hashStructReceiptV2 implements hashStruct for a V2 receipt.
func hashStructReceiptV2(r ReceiptV2) tapcrypto.Hash32 {
	enc := make([]byte, 0, 8*32)
	enc = append(enc, receiptV2TypeHash[:]...)
	enc = append(enc, r.CollectionID[:]...)
	enc = append(enc, pad32(r.Payer.Bytes())...)
	enc = append(enc, pad32(r.DataService.Bytes())...)
	enc = append(enc, pad32(r.ServiceProvider.Bytes())...)
	enc = append(enc, pad32(beBytes(r.TimestampNs))...)
	enc = append(enc, pad32(beBytes(r.Nonce))...)
	valueSlot := r.Value.FillBytes32()
	enc = append(enc, valueSlot[:]...)
	return tapcrypto.Hash32(crypto.Keccak256Hash(enc))
}

// hashStructRavV2 implements hashStruct for a V2 RAV. metadata is a
// dynamic `bytes` field: per EIP-712, dynamic types are encoded in the
// struct hash as keccak256(contents) (spec.md §4.1), not inlined.
func hashStructRavV2(r RavV2) tapcrypto.Hash32 {
	enc := make([]byte, 0, 8*32)
	enc = append(enc, ravV2TypeHash[:]...)
	enc = append(enc, r.CollectionID[:]...)
	enc = append(enc, pad32(r.Payer.Bytes())...)
	enc = append(enc, pad32(r.DataService.Bytes())...)
	enc = append(enc, pad32(r.ServiceProvider.Bytes())...)
	enc = append(enc, pad32(beBytes(r.TimestampNs))...)
	valueSlot := r.ValueAggregate.FillBytes32()
	enc = append(enc, valueSlot[:]...)
	metadataHash := crypto.Keccak256Hash(r.Metadata)
	enc = append(enc, metadataHash[:]...)
	return tapcrypto.Hash32(crypto.Keccak256Hash(enc))
}

func pad32(rightAligned []byte) []byte {
	var out [32]byte
	copy(out[32-len(rightAligned):], rightAligned)
	return out[:]
}

func beBytes(v uint64) []byte {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b[:]
}

// digest computes keccak256(0x1901 || domainSeparator || structHash), the
// final EIP-712 signing digest (spec.md §4.1).
func digest(domain Domain, structHash tapcrypto.Hash32) tapcrypto.Hash32 {
	sep := domainSeparator(domain)
	msg := make([]byte, 2+32+32)
	msg[0] = 0x19
	msg[1] = 0x01
	copy(msg[2:34], sep[:])
	copy(msg[34:66], structHash[:])
	return tapcrypto.Hash32(crypto.Keccak256Hash(msg))
}

// DigestReceiptV1 / DigestRavV1 / DigestReceiptV2 / DigestRavV2 are the
// public signing-digest entry points, one per wire type.

func DigestReceiptV1(domain Domain, r ReceiptV1) tapcrypto.Hash32 {
	return digest(domain, hashStructReceiptV1(r))
}

func DigestRavV1(domain Domain, r RavV1) tapcrypto.Hash32 {
	return digest(domain, hashStructRavV1(r))
}

func DigestReceiptV2(domain Domain, r ReceiptV2) tapcrypto.Hash32 {
	return digest(domain, hashStructReceiptV2(r))
}

func DigestRavV2(domain Domain, r RavV2) tapcrypto.Hash32 {
	return digest(domain, hashStructRavV2(r))
}
