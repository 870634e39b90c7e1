package tap

import "github.com/graphprotocol/tap-aggregator/internal/tapcrypto"

// FoldV1 combines a batch of V1 receipts (already verified by
// VerifyBatchV1) with an optional previous RAV into a new RAV (spec.md §5).
// previous may be nil for the first aggregation in an allocation's
// lifetime.
//
// Checks, in order: every receipt shares one allocation ID (and matches
// previous's, if set); every receipt's timestamp strictly exceeds
// previous's watermark; the running sum never exceeds 128 bits.
func FoldV1(previous *RavV1, receipts []ReceiptV1) (RavV1, error) {
	if len(receipts) == 0 {
		if previous != nil {
			return *previous, nil
		}
		return RavV1{}, NewError(SchemaError, "empty receipt batch with no previous RAV")
	}

	allocationID := receipts[0].AllocationID
	sum := tapcrypto.Uint128{}
	watermark := uint64(0)

	if previous != nil {
		if previous.AllocationID != allocationID {
			return RavV1{}, NewError(CoherenceError, "previous RAV allocation mismatch")
		}
		var err error
		sum, err = sum.CheckedAdd(previous.ValueAggregate)
		if err != nil {
			return RavV1{}, WrapError(OverflowError, "fold previous RAV into sum", err)
		}
		watermark = previous.TimestampNs
	}

	newMax := watermark
	for _, r := range receipts {
		if r.AllocationID != allocationID {
			return RavV1{}, NewError(CoherenceError, "receipt allocation mismatch: "+r.AllocationID.Hex())
		}
		if r.TimestampNs <= watermark {
			return RavV1{}, NewError(TimestampError, "receipt timestamp does not exceed watermark")
		}
		var err error
		sum, err = sum.CheckedAdd(r.Value)
		if err != nil {
			return RavV1{}, WrapError(OverflowError, "checked sum overflow", err)
		}
		if r.TimestampNs > newMax {
			newMax = r.TimestampNs
		}
	}

	return RavV1{
		AllocationID:   allocationID,
		TimestampNs:    newMax,
		ValueAggregate: sum,
	}, nil
}

// MetadataPolicy controls what metadata a folded V2 RAV carries. The
// default is to emit no metadata: spec.md §9 leaves per-receipt metadata
// semantics as an Open Question, and the safest default is to not invent
// meaning for a field no consumer has specified.
type MetadataPolicy func(previous *RavV2, receipts []ReceiptV2) []byte

// DefaultMetadataPolicy always returns nil (no metadata).
func DefaultMetadataPolicy(_ *RavV2, _ []ReceiptV2) []byte { return nil }

// FoldV2 is the collection-based analog of FoldV1 (spec.md §5). Coherence
// requires every receipt and the previous RAV (if any) to share
// the same collection ID, payer, data service, and service provider.
func FoldV2(previous *RavV2, receipts []ReceiptV2, metadataPolicy MetadataPolicy) (RavV2, error) {
	if metadataPolicy == nil {
		metadataPolicy = DefaultMetadataPolicy
	}
	if len(receipts) == 0 {
		if previous != nil {
			return *previous, nil
		}
		return RavV2{}, NewError(SchemaError, "empty receipt batch with no previous RAV")
	}

	first := receipts[0]
	sum := tapcrypto.Uint128{}
	watermark := uint64(0)

	if previous != nil {
		if previous.CollectionID != first.CollectionID ||
			previous.Payer != first.Payer ||
			previous.DataService != first.DataService ||
			previous.ServiceProvider != first.ServiceProvider {
			return RavV2{}, NewError(CoherenceError, "previous RAV identity mismatch")
		}
		var err error
		sum, err = sum.CheckedAdd(previous.ValueAggregate)
		if err != nil {
			return RavV2{}, WrapError(OverflowError, "fold previous RAV into sum", err)
		}
		watermark = previous.TimestampNs
	}

	newMax := watermark
	for _, r := range receipts {
		if r.CollectionID != first.CollectionID ||
			r.Payer != first.Payer ||
			r.DataService != first.DataService ||
			r.ServiceProvider != first.ServiceProvider {
			return RavV2{}, NewError(CoherenceError, "receipt identity mismatch")
		}
		if r.TimestampNs <= watermark {
			return RavV2{}, NewError(TimestampError, "receipt timestamp does not exceed watermark")
		}
		var err error
		sum, err = sum.CheckedAdd(r.Value)
		if err != nil {
			return RavV2{}, WrapError(OverflowError, "checked sum overflow", err)
		}
		if r.TimestampNs > newMax {
			newMax = r.TimestampNs
		}
	}

	return RavV2{
		CollectionID:    first.CollectionID,
		Payer:           first.Payer,
		DataService:     first.DataService,
		ServiceProvider: first.ServiceProvider,
		TimestampNs:     newMax,
		ValueAggregate:  sum,
		Metadata:        metadataPolicy(previous, receipts),
	}, nil
}
