package tap

import (
	"testing"

	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

func TestFoldV1_Commutative(t *testing.T) {
	r1 := ReceiptV1{AllocationID: testAlloc, TimestampNs: 1, Nonce: 1, Value: tapcrypto.Uint128FromUint64(34)}
	r2 := ReceiptV1{AllocationID: testAlloc, TimestampNs: 2, Nonce: 2, Value: tapcrypto.Uint128FromUint64(23)}

	ab, err := FoldV1(nil, []ReceiptV1{r1, r2})
	if err != nil {
		t.Fatalf("FoldV1: %v", err)
	}
	ba, err := FoldV1(nil, []ReceiptV1{r2, r1})
	if err != nil {
		t.Fatalf("FoldV1: %v", err)
	}
	if ab.ValueAggregate.Cmp(ba.ValueAggregate) != 0 {
		t.Errorf("sum depends on input order: %s != %s", ab.ValueAggregate, ba.ValueAggregate)
	}
	if ab.TimestampNs != ba.TimestampNs {
		t.Errorf("watermark depends on input order: %d != %d", ab.TimestampNs, ba.TimestampNs)
	}
}

func TestFoldV1_AssociativeOverChainedRavs(t *testing.T) {
	r1 := ReceiptV1{AllocationID: testAlloc, TimestampNs: 1, Nonce: 1, Value: tapcrypto.Uint128FromUint64(10)}
	r2 := ReceiptV1{AllocationID: testAlloc, TimestampNs: 2, Nonce: 2, Value: tapcrypto.Uint128FromUint64(20)}
	r3 := ReceiptV1{AllocationID: testAlloc, TimestampNs: 3, Nonce: 3, Value: tapcrypto.Uint128FromUint64(30)}

	allAtOnce, err := FoldV1(nil, []ReceiptV1{r1, r2, r3})
	if err != nil {
		t.Fatalf("FoldV1: %v", err)
	}

	step1, err := FoldV1(nil, []ReceiptV1{r1})
	if err != nil {
		t.Fatalf("FoldV1 step1: %v", err)
	}
	step2, err := FoldV1(&step1, []ReceiptV1{r2})
	if err != nil {
		t.Fatalf("FoldV1 step2: %v", err)
	}
	chained, err := FoldV1(&step2, []ReceiptV1{r3})
	if err != nil {
		t.Fatalf("FoldV1 step3: %v", err)
	}

	if allAtOnce.ValueAggregate.Cmp(chained.ValueAggregate) != 0 {
		t.Errorf("chained fold = %s, want %s", chained.ValueAggregate, allAtOnce.ValueAggregate)
	}
	if allAtOnce.TimestampNs != chained.TimestampNs {
		t.Errorf("chained watermark = %d, want %d", chained.TimestampNs, allAtOnce.TimestampNs)
	}
}

func TestFoldV1_EmptyBatchNoPrevious(t *testing.T) {
	_, err := FoldV1(nil, nil)
	if kind, ok := KindOf(err); !ok || kind != SchemaError {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestFoldV1_EmptyBatchWithPrevious(t *testing.T) {
	prev := RavV1{AllocationID: testAlloc, TimestampNs: 5, ValueAggregate: tapcrypto.Uint128FromUint64(10)}
	got, err := FoldV1(&prev, nil)
	if err != nil {
		t.Fatalf("FoldV1: %v", err)
	}
	if got != prev {
		t.Errorf("FoldV1 with empty batch should return previous unchanged: got %+v, want %+v", got, prev)
	}
}

func TestFoldV1_AllocationMismatch(t *testing.T) {
	other := testAlloc
	other[0] ^= 0xff
	r1 := ReceiptV1{AllocationID: testAlloc, TimestampNs: 1, Nonce: 1, Value: tapcrypto.Uint128FromUint64(1)}
	r2 := ReceiptV1{AllocationID: other, TimestampNs: 2, Nonce: 2, Value: tapcrypto.Uint128FromUint64(1)}

	_, err := FoldV1(nil, []ReceiptV1{r1, r2})
	if kind, ok := KindOf(err); !ok || kind != CoherenceError {
		t.Fatalf("expected CoherenceError, got %v", err)
	}
}

func TestFoldV2_CoherenceAndMetadataPolicy(t *testing.T) {
	collection := tapcrypto.Hash32{9}
	r1 := ReceiptV2{
		CollectionID: collection, Payer: testAlloc, DataService: testAlloc, ServiceProvider: testAlloc,
		TimestampNs: 1, Nonce: 1, Value: tapcrypto.Uint128FromUint64(5),
	}
	r2 := r1
	r2.TimestampNs, r2.Nonce, r2.Value = 2, 2, tapcrypto.Uint128FromUint64(7)

	got, err := FoldV2(nil, []ReceiptV2{r1, r2}, nil)
	if err != nil {
		t.Fatalf("FoldV2: %v", err)
	}
	if got.ValueAggregate.Cmp(tapcrypto.Uint128FromUint64(12)) != 0 {
		t.Errorf("value_aggregate = %s, want 12", got.ValueAggregate)
	}
	if got.Metadata != nil {
		t.Errorf("expected nil metadata from DefaultMetadataPolicy, got %v", got.Metadata)
	}

	withPolicy, err := FoldV2(nil, []ReceiptV2{r1, r2}, func(_ *RavV2, _ []ReceiptV2) []byte {
		return []byte("tag")
	})
	if err != nil {
		t.Fatalf("FoldV2 with policy: %v", err)
	}
	if string(withPolicy.Metadata) != "tag" {
		t.Errorf("metadata = %q, want %q", withPolicy.Metadata, "tag")
	}

	mismatched := r2
	mismatched.DataService = r1.Payer
	mismatched.DataService[0] ^= 0xff
	if _, err := FoldV2(nil, []ReceiptV2{r1, mismatched}, nil); err == nil {
		t.Fatal("expected error for mismatched data service")
	} else if kind, _ := KindOf(err); kind != CoherenceError {
		t.Fatalf("expected CoherenceError, got %v", err)
	}
}
