package tap

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

var (
	testChainID  = big.NewInt(1)
	testContract = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testDomain   = DomainV1(testChainID, testContract)
	testAlloc    = common.HexToAddress("0xabababababababababababababababababababab")
)

func testKey(t *testing.T) (*ecdsa.PrivateKey, tapcrypto.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func newEngine(t *testing.T, allowed ...tapcrypto.Address) (*Engine, *ecdsa.PrivateKey, tapcrypto.Address) {
	t.Helper()
	key, self := testKey(t)
	registry := NewSignerRegistry(self, allowed)
	signer := NewRavSigner(key, testDomain, Domain{})
	engine := NewEngine(registry, signer, testDomain, Domain{}, DefaultVersionSet(), false)
	return engine, key, self
}

// ── Scenario 1: two receipts, no previous RAV ──────────────────────────────

func TestAggregateV1_TwoReceiptsNoPrevious(t *testing.T) {
	engine, key, _ := newEngine(t)
	r1, err := SignReceiptV1(key, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 1685670449225087255, Nonce: 11835827017881841442,
		Value: tapcrypto.Uint128FromUint64(34),
	})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := SignReceiptV1(key, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 1685670449225830106, Nonce: 17711980309995246801,
		Value: tapcrypto.Uint128FromUint64(23),
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := engine.AggregateV1(context.Background(), AggregateRequestV1{
		APIVersion: "0.0",
		Receipts:   []SignedReceiptV1{r1, r2},
	})
	if err != nil {
		t.Fatalf("AggregateV1: %v", err)
	}
	if result.Rav.Message.AllocationID != testAlloc {
		t.Errorf("allocation_id = %s, want %s", result.Rav.Message.AllocationID.Hex(), testAlloc.Hex())
	}
	if result.Rav.Message.TimestampNs != 1685670449225830106 {
		t.Errorf("timestamp_ns = %d, want 1685670449225830106", result.Rav.Message.TimestampNs)
	}
	if result.Rav.Message.ValueAggregate.Cmp(tapcrypto.Uint128FromUint64(57)) != 0 {
		t.Errorf("value_aggregate = %s, want 57", result.Rav.Message.ValueAggregate)
	}
}

// ── Scenario 2: two receipts + previous RAV ────────────────────────────────

func TestAggregateV1_TwoReceiptsWithPrevious(t *testing.T) {
	engine, key, self := newEngine(t)
	prevRav, err := SignRavV1(key, testDomain, RavV1{
		AllocationID: testAlloc, TimestampNs: 1685670449224324338,
		ValueAggregate: tapcrypto.Uint128FromUint64(101),
	})
	if err != nil {
		t.Fatal(err)
	}
	// the previous RAV's signer must be authorized; self always is.
	_ = self

	r1, _ := SignReceiptV1(key, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 1685670449225087255, Nonce: 11835827017881841442,
		Value: tapcrypto.Uint128FromUint64(34),
	})
	r2, _ := SignReceiptV1(key, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 1685670449225830106, Nonce: 17711980309995246801,
		Value: tapcrypto.Uint128FromUint64(23),
	})

	result, err := engine.AggregateV1(context.Background(), AggregateRequestV1{
		APIVersion:  "0.0",
		Receipts:    []SignedReceiptV1{r1, r2},
		PreviousRav: &prevRav,
	})
	if err != nil {
		t.Fatalf("AggregateV1: %v", err)
	}
	if result.Rav.Message.TimestampNs != 1685670449225830106 {
		t.Errorf("timestamp_ns = %d, want 1685670449225830106", result.Rav.Message.TimestampNs)
	}
	if result.Rav.Message.ValueAggregate.Cmp(tapcrypto.Uint128FromUint64(158)) != 0 {
		t.Errorf("value_aggregate = %s, want 158", result.Rav.Message.ValueAggregate)
	}
}

// ── Scenario 3: stale receipt ───────────────────────────────────────────────

func TestAggregateV1_StaleReceipt(t *testing.T) {
	engine, key, _ := newEngine(t)
	prevRav, _ := SignRavV1(key, testDomain, RavV1{
		AllocationID: testAlloc, TimestampNs: 1000, ValueAggregate: tapcrypto.Uint128FromUint64(10),
	})
	stale, _ := SignReceiptV1(key, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 999, Nonce: 1, Value: tapcrypto.Uint128FromUint64(1),
	})

	_, err := engine.AggregateV1(context.Background(), AggregateRequestV1{
		APIVersion:  "0.0",
		Receipts:    []SignedReceiptV1{stale},
		PreviousRav: &prevRav,
	})
	if kind, ok := KindOf(err); !ok || kind != TimestampError {
		t.Fatalf("expected TimestampError, got %v", err)
	}
}

// ── Scenario 4: overflow ────────────────────────────────────────────────────

func TestAggregateV1_Overflow(t *testing.T) {
	engine, key, _ := newEngine(t)
	maxU128 := tapcrypto.Uint128{Hi: ^uint64(0), Lo: ^uint64(0)}
	prevRav, _ := SignRavV1(key, testDomain, RavV1{
		AllocationID: testAlloc, TimestampNs: 1000, ValueAggregate: maxU128,
	})
	r, _ := SignReceiptV1(key, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 1001, Nonce: 1, Value: tapcrypto.Uint128FromUint64(1),
	})

	_, err := engine.AggregateV1(context.Background(), AggregateRequestV1{
		APIVersion:  "0.0",
		Receipts:    []SignedReceiptV1{r},
		PreviousRav: &prevRav,
	})
	if kind, ok := KindOf(err); !ok || kind != OverflowError {
		t.Fatalf("expected OverflowError, got %v", err)
	}
}

// ── Scenario 5: unauthorized signer ─────────────────────────────────────────

func TestAggregateV1_UnauthorizedSigner(t *testing.T) {
	engine, _, _ := newEngine(t)
	outsiderKey, _ := testKey(t)
	r, _ := SignReceiptV1(outsiderKey, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 1000, Nonce: 1, Value: tapcrypto.Uint128FromUint64(1),
	})

	_, err := engine.AggregateV1(context.Background(), AggregateRequestV1{
		APIVersion: "0.0",
		Receipts:   []SignedReceiptV1{r},
	})
	if kind, ok := KindOf(err); !ok || kind != AuthorizationError {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

// ── Scenario 6: duplicate digest ────────────────────────────────────────────

func TestAggregateV1_DuplicateDigest(t *testing.T) {
	engine, key, _ := newEngine(t)
	r, _ := SignReceiptV1(key, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 1000, Nonce: 1, Value: tapcrypto.Uint128FromUint64(1),
	})

	_, err := engine.AggregateV1(context.Background(), AggregateRequestV1{
		APIVersion: "0.0",
		Receipts:   []SignedReceiptV1{r, r},
	})
	if kind, ok := KindOf(err); !ok || kind != UniquenessError {
		t.Fatalf("expected UniquenessError, got %v", err)
	}
}

// ── Version gating ──────────────────────────────────────────────────────────

func TestAggregateV1_UnsupportedVersion(t *testing.T) {
	engine, key, _ := newEngine(t)
	r, _ := SignReceiptV1(key, testDomain, ReceiptV1{
		AllocationID: testAlloc, TimestampNs: 1, Nonce: 1, Value: tapcrypto.Uint128FromUint64(1),
	})

	_, err := engine.AggregateV1(context.Background(), AggregateRequestV1{
		APIVersion: "9.9",
		Receipts:   []SignedReceiptV1{r},
	})
	if kind, ok := KindOf(err); !ok || kind != VersionError {
		t.Fatalf("expected VersionError, got %v", err)
	}
}

func TestAggregateV2_DisabledByDefault(t *testing.T) {
	engine, _, _ := newEngine(t)
	_, err := engine.AggregateV2(context.Background(), AggregateRequestV2{APIVersion: "0.0"})
	if kind, ok := KindOf(err); !ok || kind != VersionError {
		t.Fatalf("expected VersionError when v2 disabled, got %v", err)
	}
}
