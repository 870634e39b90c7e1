package tap

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

// VerifyBatchV1 recovers and authorizes every receipt's signer in parallel,
// aborting as soon as the first failure is observed (spec.md §5). It also
// rejects a batch containing two receipts with the same signing digest,
// since a duplicate digest means the same receipt was submitted twice (or
// maliciously replayed).
func VerifyBatchV1(ctx context.Context, domain Domain, registry *SignerRegistry, receipts []SignedReceiptV1) error {
	digests := make([]tapcrypto.Hash32, len(receipts))
	for i, r := range receipts {
		digests[i] = DigestReceiptV1(domain, r.Message)
	}
	if err := checkUniqueDigests(digests); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, r := range receipts {
		i, r := i, r
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return WrapError(CancelledError, "verification cancelled", gctx.Err())
			default:
			}
			signer, err := recover(digests[i], r.Signature)
			if err != nil {
				return WrapError(SignatureError, "recover signer", err)
			}
			if !registry.Contains(signer) {
				return NewError(AuthorizationError, "signer not authorized: "+signer.Hex())
			}
			return nil
		})
	}
	return g.Wait()
}

// VerifyBatchV2 is the V2 analog of VerifyBatchV1.
func VerifyBatchV2(ctx context.Context, domain Domain, registry *SignerRegistry, receipts []SignedReceiptV2) error {
	digests := make([]tapcrypto.Hash32, len(receipts))
	for i, r := range receipts {
		digests[i] = DigestReceiptV2(domain, r.Message)
	}
	if err := checkUniqueDigests(digests); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, r := range receipts {
		i, r := i, r
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return WrapError(CancelledError, "verification cancelled", gctx.Err())
			default:
			}
			signer, err := recover(digests[i], r.Signature)
			if err != nil {
				return WrapError(SignatureError, "recover signer", err)
			}
			if !registry.Contains(signer) {
				return NewError(AuthorizationError, "signer not authorized: "+signer.Hex())
			}
			return nil
		})
	}
	return g.Wait()
}

func checkUniqueDigests(digests []tapcrypto.Hash32) error {
	seen := make(map[tapcrypto.Hash32]struct{}, len(digests))
	for _, d := range digests {
		if _, dup := seen[d]; dup {
			return NewError(UniquenessError, "duplicate receipt digest: "+d.Hex())
		}
		seen[d] = struct{}{}
	}
	return nil
}
