package tap

import "context"

// Engine is the dispatch shell (spec.md §4.8): it ties the version check,
// batch verifier, fold, and RAV signer together into the two request/reply
// operations the RPC surfaces expose. The core itself is stateless; the
// only state carried here is read-only after construction (spec.md §5).
type Engine struct {
	registry       *SignerRegistry
	signer         *RavSigner
	domainV1       Domain
	domainV2       Domain
	versions       VersionSet
	enableV2       bool
	metadataPolicy MetadataPolicy
}

// NewEngine constructs a dispatch shell. enableV2 gates the V2 entry point
// at the config level rather than with a build tag (spec.md §4.7):
// when false, AggregateV2 always returns a VersionError without touching
// any V2 code path.
func NewEngine(registry *SignerRegistry, signer *RavSigner, domainV1, domainV2 Domain, versions VersionSet, enableV2 bool) *Engine {
	return &Engine{
		registry:       registry,
		signer:         signer,
		domainV1:       domainV1,
		domainV2:       domainV2,
		versions:       versions,
		enableV2:       enableV2,
		metadataPolicy: DefaultMetadataPolicy,
	}
}

// SetMetadataPolicy overrides the default (empty) V2 metadata policy.
func (e *Engine) SetMetadataPolicy(p MetadataPolicy) { e.metadataPolicy = p }

// AggregateRequestV1 is the input to AggregateV1.
type AggregateRequestV1 struct {
	APIVersion  string
	Receipts    []SignedReceiptV1
	PreviousRav *SignedRavV1
}

// AggregateResultV1 is the output of AggregateV1.
type AggregateResultV1 struct {
	Rav        SignedRavV1
	Deprecated bool
}

// AggregateV1 runs the full V1 pipeline: version check, previous-RAV
// verification, batch verification, fold, and signing.
func (e *Engine) AggregateV1(ctx context.Context, req AggregateRequestV1) (*AggregateResultV1, error) {
	deprecated, err := e.versions.Check(req.APIVersion)
	if err != nil {
		return nil, err
	}

	var previous *RavV1
	if req.PreviousRav != nil {
		signer, err := RecoverRavV1(e.domainV1, *req.PreviousRav)
		if err != nil {
			return nil, WrapError(SignatureError, "recover previous RAV signer", err)
		}
		if !e.registry.Contains(signer) {
			return nil, NewError(AuthorizationError, "previous RAV signer not authorized: "+signer.Hex())
		}
		previous = &req.PreviousRav.Message
	}

	if err := VerifyBatchV1(ctx, e.domainV1, e.registry, req.Receipts); err != nil {
		return nil, err
	}

	receipts := make([]ReceiptV1, len(req.Receipts))
	for i, r := range req.Receipts {
		receipts[i] = r.Message
	}
	folded, err := FoldV1(previous, receipts)
	if err != nil {
		return nil, err
	}

	signed, err := e.signer.SignV1(folded)
	if err != nil {
		return nil, WrapError(SignatureError, "sign rav", err)
	}
	return &AggregateResultV1{Rav: signed, Deprecated: deprecated}, nil
}

// AggregateRequestV2 is the input to AggregateV2.
type AggregateRequestV2 struct {
	APIVersion  string
	Receipts    []SignedReceiptV2
	PreviousRav *SignedRavV2
}

// AggregateResultV2 is the output of AggregateV2.
type AggregateResultV2 struct {
	Rav        SignedRavV2
	Deprecated bool
}

// AggregateV2 is the V2 analog of AggregateV1. When V2 is disabled it
// returns a VersionError without evaluating any V2 fields, per spec.md
// §4.7's "V2 entry points must be absent" requirement.
func (e *Engine) AggregateV2(ctx context.Context, req AggregateRequestV2) (*AggregateResultV2, error) {
	if !e.enableV2 {
		return nil, NewError(VersionError, "v2 aggregation is disabled")
	}

	deprecated, err := e.versions.Check(req.APIVersion)
	if err != nil {
		return nil, err
	}

	var previous *RavV2
	if req.PreviousRav != nil {
		signer, err := RecoverRavV2(e.domainV2, *req.PreviousRav)
		if err != nil {
			return nil, WrapError(SignatureError, "recover previous RAV signer", err)
		}
		if !e.registry.Contains(signer) {
			return nil, NewError(AuthorizationError, "previous RAV signer not authorized: "+signer.Hex())
		}
		previous = &req.PreviousRav.Message
	}

	if err := VerifyBatchV2(ctx, e.domainV2, e.registry, req.Receipts); err != nil {
		return nil, err
	}

	receipts := make([]ReceiptV2, len(req.Receipts))
	for i, r := range req.Receipts {
		receipts[i] = r.Message
	}
	folded, err := FoldV2(previous, receipts, e.metadataPolicy)
	if err != nil {
		return nil, err
	}

	signed, err := e.signer.SignV2(folded)
	if err != nil {
		return nil, WrapError(SignatureError, "sign rav", err)
	}
	return &AggregateResultV2{Rav: signed, Deprecated: deprecated}, nil
}
